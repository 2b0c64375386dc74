// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query produces the search hits and status records a manifest is
// built from. A result is either fetched live from the backends or
// rehydrated from a persisted manifest; both satisfy Result, so downstream
// code never needs to know which.
package query

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/osdcquery/internal/manifest"
	"github.com/pdiddy/osdcquery/internal/search"
	"github.com/pdiddy/osdcquery/internal/status"
	"github.com/pdiddy/osdcquery/pkg/types"
)

// Result is a completed query.
type Result interface {
	Params() types.QueryParams
	Hits() []types.SearchHit
	Status() map[string]types.StatusRecord
	CompletedAt() time.Time
}

var (
	_ Result = (*Live)(nil)
	_ Result = (*Stored)(nil)
)

// Live is a result fetched from the search and status backends.
type Live struct {
	params    types.QueryParams
	hits      []types.SearchHit
	status    map[string]types.StatusRecord
	completed time.Time
}

// Run searches for params.QueryString and looks up the status of every hit,
// both at the locations recorded in params.
// now stamps the completion time; nil means time.Now.
func Run(ctx context.Context, params types.QueryParams, sc search.Client, st status.Client, logger zerolog.Logger, now func() time.Time) (*Live, error) {
	if now == nil {
		now = time.Now
	}

	resp, err := search.Run(ctx, sc, search.RequestFor(params), logger)
	if err != nil {
		return nil, err
	}
	records, err := status.Lookup(ctx, st, status.RequestFor(params), resp.Hits, logger)
	if err != nil {
		return nil, err
	}

	return &Live{
		params:    params,
		hits:      resp.Hits,
		status:    records,
		completed: now().UTC(),
	}, nil
}

func (l *Live) Params() types.QueryParams             { return l.params }
func (l *Live) Hits() []types.SearchHit               { return l.hits }
func (l *Live) Status() map[string]types.StatusRecord { return l.status }
func (l *Live) CompletedAt() time.Time                { return l.completed }

// Stored is a result rehydrated from a manifest.
type Stored struct {
	m *manifest.Manifest
}

// FromManifest wraps m as a Result.
func FromManifest(m *manifest.Manifest) *Stored {
	return &Stored{m: m}
}

func (s *Stored) Params() types.QueryParams { return s.m.QueryParams }
func (s *Stored) CompletedAt() time.Time    { return s.m.QueryTime }

// Hits returns one hit per entry, in id order.
func (s *Stored) Hits() []types.SearchHit {
	hits := make([]types.SearchHit, 0, len(s.m.Results))
	for _, id := range s.m.IDs() {
		e := s.m.Results[id]
		hits = append(hits, types.SearchHit{
			ID:         e.ID,
			AnalysisID: e.AnalysisID,
			Category:   e.Category,
			Files:      e.Files,
		})
	}
	return hits
}

// Status reconstructs the status lookup the manifest was built from. Entries
// that had no status record are left out so they normalize the same way.
func (s *Stored) Status() map[string]types.StatusRecord {
	out := make(map[string]types.StatusRecord, len(s.m.Results))
	for id, e := range s.m.Results {
		switch e.Reason {
		case types.ReasonStatusMissing:
			continue
		case types.ReasonStatusError:
			out[id] = types.StatusRecord{ID: id, Reason: e.Reason, Detail: e.Detail}
		default:
			out[id] = types.StatusRecord{ID: id, MD5OK: e.MD5OK}
		}
	}
	return out
}
