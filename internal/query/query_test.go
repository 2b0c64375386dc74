// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/osdcquery/internal/manifest"
	"github.com/pdiddy/osdcquery/internal/mock"
	"github.com/pdiddy/osdcquery/internal/normalize"
	"github.com/pdiddy/osdcquery/internal/search"
	"github.com/pdiddy/osdcquery/internal/status"
	"github.com/pdiddy/osdcquery/pkg/types"
)

var fixedNow = time.Date(2014, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func params() types.QueryParams {
	return types.QueryParams{Name: "ov", QueryString: "disease_abbr:OV", Index: "tcga-cghub", DocType: "analysis"}
}

func testHits() []types.SearchHit {
	return []types.SearchHit{
		{ID: "a", AnalysisID: "an-a", Category: "OV"},
		{ID: "b", AnalysisID: "an-b", Category: "OV"},
		{ID: "c", AnalysisID: "an-c", Category: "OV"},
		{ID: "d", AnalysisID: "an-d", Category: "OV"},
	}
}

func testStatus() map[string]types.StatusRecord {
	return map[string]types.StatusRecord{
		"a": {ID: "a", MD5OK: types.Bool(true)},
		"b": {ID: "b", MD5OK: types.Bool(false)},
		"c": {ID: "c", Reason: types.ReasonStatusError, Detail: "not_found"},
	}
}

func TestRunLive(t *testing.T) {
	var gotReq search.Request
	sc := mock.Hits(testHits())
	countFn := sc.CountFn
	sc.CountFn = func(ctx context.Context, req search.Request) (int, error) {
		gotReq = req
		return countFn(ctx, req)
	}

	r, err := Run(context.Background(), params(), sc, mock.Records(testStatus()), zerolog.Nop(), clock)
	require.NoError(t, err)

	assert.Equal(t, search.Request{Index: "tcga-cghub", DocType: "analysis", QueryString: "disease_abbr:OV"}, gotReq)
	assert.Equal(t, params(), r.Params())
	assert.Len(t, r.Hits(), 4)
	assert.Len(t, r.Status(), 3)
	assert.Equal(t, fixedNow, r.CompletedAt())
}

func TestRunPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("search", func(t *testing.T) {
		sc := &mock.SearchClient{
			CountFn: func(ctx context.Context, req search.Request) (int, error) { return 0, boom },
		}
		_, err := Run(context.Background(), params(), sc, mock.Records(nil), zerolog.Nop(), clock)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("status", func(t *testing.T) {
		st := &mock.StatusClient{
			LookupFn: func(ctx context.Context, req status.Request) (map[string]types.StatusRecord, error) { return nil, boom },
		}
		_, err := Run(context.Background(), params(), mock.Hits(testHits()), st, zerolog.Nop(), clock)
		assert.ErrorIs(t, err, boom)
	})
}

// A manifest rehydrated through Stored normalizes to the same entries the
// live result produced.
func TestStoredRoundTrip(t *testing.T) {
	layout := normalize.Layout{TargetDir: "/t", LinkDir: "/q/data"}

	live, err := Run(context.Background(), params(), mock.Hits(testHits()), mock.Records(testStatus()), zerolog.Nop(), clock)
	require.NoError(t, err)
	liveEntries := normalize.Records(live.Hits(), live.Status(), layout, zerolog.Nop())

	m := manifest.Build(nil, live.Params(), live.CompletedAt(), manifest.Dirs{TargetDir: "/t", TopDir: "/q"}, liveEntries)
	stored := FromManifest(m)

	assert.Equal(t, live.Params(), stored.Params())
	assert.Equal(t, live.CompletedAt(), stored.CompletedAt())
	assert.NotContains(t, stored.Status(), "d", "status_missing entries have no status record")

	storedEntries := normalize.Records(stored.Hits(), stored.Status(), layout, zerolog.Nop())
	assert.Equal(t, liveEntries, storedEntries)
}

func TestStoredHitsSorted(t *testing.T) {
	m := &manifest.Manifest{Results: map[string]types.Entry{
		"z": {AnalysisRecord: types.AnalysisRecord{ID: "z"}},
		"m": {AnalysisRecord: types.AnalysisRecord{ID: "m"}},
		"a": {AnalysisRecord: types.AnalysisRecord{ID: "a"}},
	}}
	var ids []string
	for _, h := range FromManifest(m).Hits() {
		ids = append(ids, h.ID)
	}
	assert.Equal(t, []string{"a", "m", "z"}, ids)
}

func TestQueryFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ov.yaml")
	live, err := Run(context.Background(), params(), mock.Hits(testHits()), mock.Records(nil), zerolog.Nop(), clock)
	require.NoError(t, err)

	require.NoError(t, WriteFile(path, live, true))

	qf, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, params(), qf.Query)
	assert.Len(t, qf.Hits, 4)
	assert.Equal(t, "an-a", qf.Hits[0].AnalysisID)
}

func TestReadFileErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"malformed", "query: [", "parsing query file"},
		{"no query string", "query:\n  name: ov\n", "no query string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := ReadFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := ReadFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadFileHandWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brca.yaml")
	content := `query:
  name: brca
  query: disease_abbr:BRCA AND library_strategy:WXS
  url: http://localhost:9200
  index: tcga-cghub
  doc_type: analysis
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	qf, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "brca", qf.Query.Name)
	assert.Equal(t, "disease_abbr:BRCA AND library_strategy:WXS", qf.Query.QueryString)
	assert.Equal(t, "http://localhost:9200", qf.Query.URL)
	assert.Empty(t, qf.Hits)
}
