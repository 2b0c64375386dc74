// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package status

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/osdcquery/pkg/types"
)

func TestLookupDeduplicatesAndLogs(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.PutStatus(ctx, types.StatusRecord{ID: "a1", MD5OK: types.Bool(true)}))
	require.NoError(t, s.PutStatus(ctx, types.StatusRecord{ID: "a2", Reason: types.ReasonStatusError, Detail: "x"}))

	hits := []types.SearchHit{{ID: "a1"}, {ID: "a2"}, {ID: "a1"}, {ID: "a3"}}
	var buf bytes.Buffer
	got, err := Lookup(ctx, s, Request{}, hits, zerolog.New(&buf))
	require.NoError(t, err)

	assert.Len(t, got, 2)
	assert.Contains(t, buf.String(), `"requested":3`)
	assert.Contains(t, buf.String(), `"errors":1`)
}

func TestLookupWrapsBackendError(t *testing.T) {
	s := openTestSQLite(t)
	require.NoError(t, s.Close())

	_, err := Lookup(context.Background(), s, Request{}, []types.SearchHit{{ID: "a1"}}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite lookup")
	assert.False(t, errors.Is(err, ErrNotRegistered))
}
