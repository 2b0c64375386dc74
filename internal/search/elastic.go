// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/pdiddy/osdcquery/internal/httputil"
	"github.com/pdiddy/osdcquery/pkg/types"
)

const (
	defaultCategoryField    = "disease_abbr"
	defaultFallbackCategory = "none"
)

// Elastic queries an Elasticsearch index over its REST API.
type Elastic struct {
	Client    *http.Client
	BaseURL   string
	UserAgent string

	// CategoryField is the _source field holding the disease category.
	CategoryField string

	// DefaultCategory is used for hits without CategoryField.
	DefaultCategory string
}

// Ensure Elastic implements Client at compile time.
var _ Client = (*Elastic)(nil)

// NewElastic returns an Elasticsearch client for baseURL configured from cfg.
// An empty baseURL falls back to cfg.URL.
func NewElastic(cfg types.SearchConfig, baseURL string) *Elastic {
	if baseURL == "" {
		baseURL = cfg.URL
	}
	return &Elastic{
		Client:          &http.Client{Timeout: cfg.Timeout},
		BaseURL:         baseURL,
		UserAgent:       cfg.UserAgent,
		CategoryField:   cfg.CategoryField,
		DefaultCategory: cfg.DefaultCategory,
	}
}

// Name returns the backend identifier.
func (e *Elastic) Name() string { return "elasticsearch" }

// Count issues a _count request (the count endpoint takes the bare query,
// without size).
func (e *Elastic) Count(ctx context.Context, req Request) (int, error) {
	body := map[string]any{"query": queryStringClause(req.QueryString)}

	var cr struct {
		Count int `json:"count"`
	}
	if err := e.do(ctx, http.MethodPost, e.endpoint(req, "_count"), body, &cr); err != nil {
		return 0, err
	}
	return cr.Count, nil
}

// Search issues a _search request for up to size hits.
func (e *Elastic) Search(ctx context.Context, req Request, size int) (Response, error) {
	body := map[string]any{
		"query": queryStringClause(req.QueryString),
		"size":  size,
	}

	var sr esSearchResponse
	if err := e.do(ctx, http.MethodPost, e.endpoint(req, "_search"), body, &sr); err != nil {
		return Response{}, err
	}

	resp := Response{Total: int(sr.Hits.Total)}
	for _, h := range sr.Hits.Hits {
		hit, err := e.toHit(h)
		if err != nil {
			return Response{}, err
		}
		resp.Hits = append(resp.Hits, hit)
	}
	return resp, nil
}

// Mapping returns the field names of docType mapped to their Elasticsearch
// types. Object fields without a type are reported as "object".
func (e *Elastic) Mapping(ctx context.Context, index, docType string) (map[string]string, error) {
	url := httputil.JoinURL(e.BaseURL, index, "_mapping", docType)

	var raw map[string]json.RawMessage
	if err := e.do(ctx, http.MethodGet, url, nil, &raw); err != nil {
		return nil, err
	}

	props, err := findProperties(raw, index, docType)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(props))
	for name, p := range props {
		if p.Type == "" {
			fields[name] = "object"
			continue
		}
		fields[name] = p.Type
	}
	return fields, nil
}

// FieldNames returns the sorted keys of a Mapping result.
func FieldNames(mapping map[string]string) []string {
	names := make([]string, 0, len(mapping))
	for name := range mapping {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Elastic) endpoint(req Request, action string) string {
	base := e.BaseURL
	if req.URL != "" {
		base = req.URL
	}
	return httputil.JoinURL(base, req.Index, req.DocType, action)
}

func (e *Elastic) do(ctx context.Context, method, url string, body, out any) error {
	req, err := httputil.NewJSONRequest(ctx, method, url, body)
	if err != nil {
		return err
	}
	if e.UserAgent != "" {
		req.Header.Set("User-Agent", e.UserAgent)
	}
	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	return httputil.DoJSON(client, req, out)
}

func (e *Elastic) toHit(h esHit) (types.SearchHit, error) {
	var src map[string]json.RawMessage
	if len(h.Source) > 0 {
		if err := json.Unmarshal(h.Source, &src); err != nil {
			return types.SearchHit{}, fmt.Errorf("parsing _source of hit %s: %w", h.ID, err)
		}
	}

	field := e.CategoryField
	if field == "" {
		field = defaultCategoryField
	}
	category := stringField(src, field)
	if category == "" {
		category = e.DefaultCategory
		if category == "" {
			category = defaultFallbackCategory
		}
	}

	return types.SearchHit{
		ID:         h.ID,
		AnalysisID: stringField(src, "analysis_id"),
		Category:   category,
		Files:      src["files"],
	}, nil
}

func queryStringClause(q string) map[string]any {
	return map[string]any{
		"query_string": map[string]any{"query": q},
	}
}

// stringField returns src[name] when it is a JSON string, or the first
// element when it is a list of strings (the form returned for stored fields).
func stringField(src map[string]json.RawMessage, name string) string {
	raw, ok := src[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

type esProperty struct {
	Type string `json:"type"`
}

// findProperties locates the properties object for docType in a _mapping
// response. Both the index-wrapped form
// {"idx":{"mappings":{"type":{"properties":…}}}} and the bare form
// {"type":{"properties":…}} are accepted.
func findProperties(raw map[string]json.RawMessage, index, docType string) (map[string]esProperty, error) {
	type typeMapping struct {
		Properties map[string]esProperty `json:"properties"`
	}

	if body, ok := raw[index]; ok {
		var wrapped struct {
			Mappings map[string]typeMapping `json:"mappings"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, fmt.Errorf("parsing mapping for %s: %w", index, err)
		}
		if tm, ok := wrapped.Mappings[docType]; ok {
			return tm.Properties, nil
		}
	}

	if body, ok := raw[docType]; ok {
		var tm typeMapping
		if err := json.Unmarshal(body, &tm); err != nil {
			return nil, fmt.Errorf("parsing mapping for %s: %w", docType, err)
		}
		return tm.Properties, nil
	}

	return nil, fmt.Errorf("no mapping found for %s/%s", index, docType)
}

// Elasticsearch search response structures.
type esSearchResponse struct {
	Hits struct {
		Total esTotal `json:"total"`
		Hits  []esHit `json:"hits"`
	} `json:"hits"`
}

type esHit struct {
	ID     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
}

// esTotal accepts both the legacy integer total and the {"value": n} form.
type esTotal int

func (t *esTotal) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*t = esTotal(n)
		return nil
	}
	var obj struct {
		Value int `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("parsing hits.total: %w", err)
	}
	*t = esTotal(obj.Value)
	return nil
}
