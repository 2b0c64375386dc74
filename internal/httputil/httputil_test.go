// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoJSON_DecodesSuccess(t *testing.T) {
	var gotBody map[string]any
	var gotContentType string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count": 3}`))
	}))
	defer ts.Close()

	req, err := NewJSONRequest(context.Background(), http.MethodPost, ts.URL, map[string]any{"size": 3})
	require.NoError(t, err)

	var out struct {
		Count int `json:"count"`
	}
	require.NoError(t, DoJSON(ts.Client(), req, &out))

	assert.Equal(t, 3, out.Count)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, float64(3), gotBody["size"])
}

func TestDoJSON_NonSuccessIsStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found","reason":"missing"}`))
	}))
	defer ts.Close()

	req, err := NewJSONRequest(context.Background(), http.MethodGet, ts.URL+"/db/doc", nil)
	require.NoError(t, err)

	err = DoJSON(ts.Client(), req, nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, http.MethodGet, se.Method)
	assert.Contains(t, se.Body, "not_found")
	assert.Contains(t, se.Error(), "HTTP 404")
}

func TestDoJSON_NoRetryOnTooManyRequests(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	req, err := NewJSONRequest(context.Background(), http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	err = DoJSON(ts.Client(), req, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoJSON_MalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer ts.Close()

	req, err := NewJSONRequest(context.Background(), http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	var out map[string]any
	err = DoJSON(ts.Client(), req, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response")
}

func TestDoJSON_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, err := NewJSONRequest(ctx, http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	err = DoJSON(ts.Client(), req, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		segments []string
		want     string
	}{
		{"plain", "http://es:9200", []string{"tcga-cghub", "analysis", "_search"}, "http://es:9200/tcga-cghub/analysis/_search"},
		{"trailing slash base", "http://es:9200/", []string{"idx"}, "http://es:9200/idx"},
		{"slashed segments", "http://db", []string{"/tcga-osdc/", "/_all_docs"}, "http://db/tcga-osdc/_all_docs"},
		{"empty segment skipped", "http://es", []string{"idx", "", "_count"}, "http://es/idx/_count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JoinURL(tt.base, tt.segments...))
		})
	}
}
