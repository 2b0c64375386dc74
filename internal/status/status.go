// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package status looks up per-analysis checksum status and registers
// manifests with the status backend. Two backends exist: a CouchDB server
// (the production status database) and a local SQLite file.
package status

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/osdcquery/internal/manifest"
	"github.com/pdiddy/osdcquery/pkg/types"
)

// Client is the status backend capability.
type Client interface {
	// Name returns the backend identifier (e.g. "couchdb").
	Name() string

	// Lookup returns the status records for req.IDs in one request. Ids the
	// backend knows nothing about are absent from the result; per-id lookup
	// failures are records carrying ReasonStatusError.
	Lookup(ctx context.Context, req Request) (map[string]types.StatusRecord, error)

	// Register stores m and returns the id the backend assigned to it.
	Register(ctx context.Context, m *manifest.Manifest) (string, error)

	// Fetch returns the manifest registered under id.
	Fetch(ctx context.Context, id string) (*manifest.Manifest, error)

	// Update replaces the manifest registered under id.
	Update(ctx context.Context, id string, m *manifest.Manifest) error
}

// Request is one status lookup.
type Request struct {
	IDs []string

	// URL and Database replace the client's configured location when set.
	// URL is a CouchDB server or a SQLiteScheme path.
	URL      string
	Database string
}

// RequestFor builds the lookup location recorded in p.
func RequestFor(p types.QueryParams) Request {
	return Request{URL: p.StatusURL, Database: p.StatusDB}
}

// Open returns the client selected by cfg.Backend. Callers should close the
// result when it implements io.Closer.
func Open(cfg types.StatusConfig, logger zerolog.Logger) (Client, error) {
	switch cfg.Backend {
	case types.StatusCouchDB, "":
		return NewCouchDB(cfg, logger), nil
	case types.StatusSQLite:
		s, err := OpenSQLite(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown status backend %q", cfg.Backend)
	}
}

// Lookup fetches status for the ids of hits from the location in req,
// logging how many were resolved.
func Lookup(ctx context.Context, c Client, req Request, hits []types.SearchHit, logger zerolog.Logger) (map[string]types.StatusRecord, error) {
	ids := make([]string, 0, len(hits))
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		if seen[h.ID] {
			continue
		}
		seen[h.ID] = true
		ids = append(ids, h.ID)
	}

	req.IDs = ids
	records, err := c.Lookup(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s lookup: %w", c.Name(), err)
	}

	failed := 0
	for _, r := range records {
		if r.Reason == types.ReasonStatusError {
			failed++
		}
	}
	logger.Info().
		Str("backend", c.Name()).
		Int("requested", len(ids)).
		Int("returned", len(records)).
		Int("errors", failed).
		Msg("Status lookup complete")
	return records, nil
}
