// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries the search backend for analysis metadata. A query is
// issued as a count followed by a search sized to that count.
package search

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/osdcquery/pkg/types"
)

// Client is the search collaborator. Each backend adapts its wire format to
// the hits the linking core consumes.
type Client interface {
	Name() string

	// Count returns the number of documents matching req.
	Count(ctx context.Context, req Request) (int, error)

	// Search returns up to size documents matching req.
	Search(ctx context.Context, req Request, size int) (Response, error)

	// Mapping returns the searchable field names mapped to their types.
	Mapping(ctx context.Context, index, docType string) (map[string]string, error)
}

// Request holds the search parameters.
type Request struct {
	// URL replaces the client's base URL when set.
	URL string

	Index       string
	DocType     string
	QueryString string
}

// RequestFor builds a Request from recorded query parameters.
func RequestFor(p types.QueryParams) Request {
	return Request{URL: p.URL, Index: p.Index, DocType: p.DocType, QueryString: p.QueryString}
}

// IsEmpty reports whether the request has no query string.
func (r Request) IsEmpty() bool {
	return r.QueryString == ""
}

// Response holds the hits of one search and the total the backend reported.
type Response struct {
	Total int
	Hits  []types.SearchHit
}

// Run counts the matching documents, then searches with the count as the
// result size. A count that disagrees with the number of hits returned is
// logged as a warning; the hits returned are used as-is.
func Run(ctx context.Context, c Client, req Request, logger zerolog.Logger) (Response, error) {
	if req.IsEmpty() {
		return Response{}, fmt.Errorf("query string is empty")
	}

	count, err := c.Count(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("%s count: %w", c.Name(), err)
	}
	logger.Debug().Str("query", req.QueryString).Int("count", count).Msg("Count complete")

	resp, err := c.Search(ctx, req, count)
	if err != nil {
		return Response{}, fmt.Errorf("%s search: %w", c.Name(), err)
	}

	if count != len(resp.Hits) {
		logger.Warn().
			Int("count", count).
			Int("hits", len(resp.Hits)).
			Msgf("Count returned %d results, while search returned %d results", count, len(resp.Hits))
	}
	if len(resp.Hits) == 0 {
		logger.Info().Str("query", req.QueryString).Msg("Query returned 0 results")
	}
	return resp, nil
}
