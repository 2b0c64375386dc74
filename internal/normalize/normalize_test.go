// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/osdcquery/pkg/types"
)

var layout = Layout{TargetDir: "/t", LinkDir: "/q/data"}

func TestRecordsComputesPaths(t *testing.T) {
	hits := []types.SearchHit{{ID: "h1", AnalysisID: "a1", Category: "OV", Files: json.RawMessage(`[{"filename":"f.bam"}]`)}}
	status := map[string]types.StatusRecord{"h1": {ID: "h1", MD5OK: types.Bool(true)}}

	got := Records(hits, status, layout, zerolog.Nop())
	require.Len(t, got, 1)

	e := got["h1"]
	assert.Equal(t, "/t/OV/a1", e.Target)
	assert.Equal(t, "/q/data/a1", e.LinkName)
	assert.Equal(t, "OV", e.Category)
	assert.JSONEq(t, `[{"filename":"f.bam"}]`, string(e.Files))
	assert.Equal(t, types.Bool(true), e.MD5OK)
	assert.Equal(t, types.ReasonNone, e.Reason)
	assert.False(t, e.Linked)
}

func TestRecordsStatusMerge(t *testing.T) {
	hits := []types.SearchHit{
		{ID: "ok", AnalysisID: "a1", Category: "OV"},
		{ID: "bad", AnalysisID: "a2", Category: "OV"},
		{ID: "nomd5", AnalysisID: "a3", Category: "OV"},
		{ID: "err", AnalysisID: "a4", Category: "OV"},
		{ID: "gone", AnalysisID: "a5", Category: "OV"},
	}
	status := map[string]types.StatusRecord{
		"ok":    {ID: "ok", MD5OK: types.Bool(true)},
		"bad":   {ID: "bad", MD5OK: types.Bool(false)},
		"nomd5": {ID: "nomd5"},
		"err":   {ID: "err", Reason: types.ReasonStatusError, Detail: "not_found"},
	}

	got := Records(hits, status, layout, zerolog.Nop())

	tests := []struct {
		id         string
		wantMD5    *bool
		wantReason types.Reason
		wantDetail string
	}{
		{"ok", types.Bool(true), types.ReasonNone, ""},
		{"bad", types.Bool(false), types.ReasonNone, ""},
		{"nomd5", nil, types.ReasonNone, ""},
		{"err", nil, types.ReasonStatusError, "not_found"},
		{"gone", nil, types.ReasonStatusMissing, ""},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			e, ok := got[tt.id]
			require.True(t, ok)
			assert.Equal(t, tt.wantMD5, e.MD5OK)
			assert.Equal(t, tt.wantReason, e.Reason)
			assert.Equal(t, tt.wantDetail, e.Detail)
		})
	}
}

func TestRecordsIDsMatchHits(t *testing.T) {
	hits := []types.SearchHit{{ID: "x", AnalysisID: "1"}, {ID: "y", AnalysisID: "2"}}
	got := Records(hits, nil, layout, zerolog.Nop())

	assert.Len(t, got, 2)
	assert.Contains(t, got, "x")
	assert.Contains(t, got, "y")
}

func TestRecordsDuplicateFirstWins(t *testing.T) {
	hits := []types.SearchHit{
		{ID: "h1", AnalysisID: "first", Category: "OV"},
		{ID: "h1", AnalysisID: "second", Category: "BRCA"},
	}
	var buf bytes.Buffer

	got := Records(hits, nil, layout, zerolog.New(&buf))
	require.Len(t, got, 1)
	assert.Equal(t, "first", got["h1"].AnalysisID)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "Duplicate search hit ignored")
}

func TestRecordsEmpty(t *testing.T) {
	got := Records(nil, nil, layout, zerolog.Nop())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
