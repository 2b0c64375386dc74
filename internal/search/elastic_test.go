// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/osdcquery/pkg/types"
)

const sampleSearchJSON = `{
  "took": 3,
  "hits": {
    "total": 3,
    "hits": [
      {"_id": "a1", "_source": {"analysis_id": "an-1", "disease_abbr": "OV", "files": [{"filename": "x.bam"}]}},
      {"_id": "a2", "_source": {"analysis_id": "an-2", "disease_abbr": ["BRCA"]}},
      {"_id": "a3", "_source": {"analysis_id": "an-3"}}
    ]
  }
}`

func newTestElastic(ts *httptest.Server) *Elastic {
	cfg := types.SearchConfig{
		HTTPConfig:    types.HTTPConfig{UserAgent: "osdcquery-test"},
		CategoryField: "disease_abbr",
	}
	e := NewElastic(cfg, ts.URL)
	e.Client = ts.Client()
	return e
}

func TestElasticCountRequest(t *testing.T) {
	var gotPath, gotUA string
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		fmt.Fprint(w, `{"count": 42}`)
	}))
	defer ts.Close()

	n, err := newTestElastic(ts).Count(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, 42, n)
	assert.Equal(t, "/tcga-cghub/analysis/_count", gotPath)
	assert.Equal(t, "osdcquery-test", gotUA)
	assert.NotContains(t, gotBody, "size", "count requests carry only the query")
	query := gotBody["query"].(map[string]any)["query_string"].(map[string]any)
	assert.Equal(t, "disease_abbr:OV", query["query"])
}

func TestElasticSearchParsesHits(t *testing.T) {
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tcga-cghub/analysis/_search", r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		fmt.Fprint(w, sampleSearchJSON)
	}))
	defer ts.Close()

	resp, err := newTestElastic(ts).Search(context.Background(), testRequest(), 3)
	require.NoError(t, err)

	assert.Equal(t, float64(3), gotBody["size"])
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Hits, 3)

	assert.Equal(t, "a1", resp.Hits[0].ID)
	assert.Equal(t, "an-1", resp.Hits[0].AnalysisID)
	assert.Equal(t, "OV", resp.Hits[0].Category)
	assert.JSONEq(t, `[{"filename": "x.bam"}]`, string(resp.Hits[0].Files))

	assert.Equal(t, "BRCA", resp.Hits[1].Category, "list-valued fields use the first element")
	assert.Equal(t, "none", resp.Hits[2].Category, "missing category falls back to the default")
	assert.Empty(t, resp.Hits[2].Files)
}

func TestElasticRequestURLOverridesBase(t *testing.T) {
	var hit bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		fmt.Fprint(w, `{"count": 1}`)
	}))
	defer ts.Close()

	e := newTestElastic(ts)
	e.BaseURL = "http://127.0.0.1:1"
	req := testRequest()
	req.URL = ts.URL

	n, err := e.Count(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, hit)
}

func TestElasticSearchObjectTotal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"hits":{"total":{"value":7,"relation":"eq"},"hits":[]}}`)
	}))
	defer ts.Close()

	resp, err := newTestElastic(ts).Search(context.Background(), testRequest(), 0)
	require.NoError(t, err)
	assert.Equal(t, 7, resp.Total)
	assert.Empty(t, resp.Hits)
}

func TestElasticCustomCategoryField(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"hits":{"total":1,"hits":[{"_id":"x","_source":{"analysis_id":"an","project":"LUAD"}}]}}`)
	}))
	defer ts.Close()

	e := newTestElastic(ts)
	e.CategoryField = "project"
	e.DefaultCategory = "misc"

	resp, err := e.Search(context.Background(), testRequest(), 1)
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "LUAD", resp.Hits[0].Category)
}

func TestElasticHTTPErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"bad request", http.StatusBadRequest, `{"error":"SearchParseException"}`},
		{"not found", http.StatusNotFound, `{"error":"IndexMissingException"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer ts.Close()

			_, err := newTestElastic(ts).Count(context.Background(), testRequest())
			require.Error(t, err)
			assert.Contains(t, err.Error(), fmt.Sprintf("HTTP %d", tt.status))
		})
	}
}

func TestElasticMapping(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			"index wrapped",
			`{"tcga-cghub":{"mappings":{"analysis":{"properties":{
				"analysis_id":{"type":"string"},
				"disease_abbr":{"type":"string"},
				"files":{"properties":{"filename":{"type":"string"}}},
				"upload_date":{"type":"date"}}}}}}`,
		},
		{
			"bare type",
			`{"analysis":{"properties":{
				"analysis_id":{"type":"string"},
				"disease_abbr":{"type":"string"},
				"files":{"properties":{"filename":{"type":"string"}}},
				"upload_date":{"type":"date"}}}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/tcga-cghub/_mapping/analysis", r.URL.Path)
				fmt.Fprint(w, tt.body)
			}))
			defer ts.Close()

			mapping, err := newTestElastic(ts).Mapping(context.Background(), "tcga-cghub", "analysis")
			require.NoError(t, err)

			assert.Equal(t, []string{"analysis_id", "disease_abbr", "files", "upload_date"}, FieldNames(mapping))
			assert.Equal(t, "object", mapping["files"])
			assert.Equal(t, "date", mapping["upload_date"])
		})
	}
}

func TestElasticMappingMissingType(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"other":{"mappings":{}}}`)
	}))
	defer ts.Close()

	_, err := newTestElastic(ts).Mapping(context.Background(), "tcga-cghub", "analysis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no mapping found")
}
