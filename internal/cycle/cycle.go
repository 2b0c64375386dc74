// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cycle runs a full pass over a query directory: query the backends,
// build the manifest, rebuild the links, and persist the result.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/osdcquery/internal/filesystem"
	"github.com/pdiddy/osdcquery/internal/links"
	"github.com/pdiddy/osdcquery/internal/logging"
	"github.com/pdiddy/osdcquery/internal/manifest"
	"github.com/pdiddy/osdcquery/internal/normalize"
	"github.com/pdiddy/osdcquery/internal/query"
	"github.com/pdiddy/osdcquery/internal/search"
	"github.com/pdiddy/osdcquery/internal/status"
	"github.com/pdiddy/osdcquery/pkg/types"
)

// ErrTopDirExists is returned by Create when the query directory is already
// present.
var ErrTopDirExists = errors.New("query directory already exists")

// Options control one pass.
type Options struct {
	// TargetDir is where the analyses live. Update and Relink fall back to
	// the manifest's target dir when empty.
	TargetDir string

	// Dangle links entries whose target is missing.
	Dangle bool

	// Register records an unregistered manifest with the status backend.
	Register bool
}

// Report is the outcome of a pass.
type Report struct {
	Manifest *manifest.Manifest
	Summary  manifest.Summary
	Linked   int
}

// Runner owns the collaborators of a pass.
type Runner struct {
	Search search.Client
	Status status.Client
	FS     filesystem.FS
	Store  *manifest.Store
	Logger zerolog.Logger

	// Now stamps query completion. Nil means time.Now.
	Now func() time.Time
}

// New returns a Runner whose manifest store shares fsys.
func New(sc search.Client, st status.Client, fsys filesystem.FS, logger zerolog.Logger) *Runner {
	return &Runner{
		Search: sc,
		Status: st,
		FS:     fsys,
		Store:  manifest.NewStore(fsys, logging.Component(logger, "manifest")),
		Logger: logger,
	}
}

// Create runs params for the first time into a new query directory top.
func (r *Runner) Create(ctx context.Context, params types.QueryParams, top string, opts Options) (*Report, error) {
	done := logging.OperationStart(r.Logger, "create")
	defer done()

	exists, err := r.FS.Exists(top)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", top, err)
	}
	if exists {
		return nil, fmt.Errorf("%s: %w", top, ErrTopDirExists)
	}

	// Nothing is created until the query has succeeded.
	result, err := query.Run(ctx, params, r.Search, r.Status, r.component("query"), r.Now)
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{top, manifest.DataDir(top), manifest.MetadataDir(top)} {
		if err := r.FS.MkdirAll(dir); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return r.rebuild(ctx, nil, result, top, opts)
}

// Update re-runs the query recorded in top's current manifest, with any
// non-empty field of overrides replacing the recorded one, and rebuilds
// every link.
func (r *Runner) Update(ctx context.Context, top string, overrides types.QueryParams, opts Options) (*Report, error) {
	done := logging.OperationStart(r.Logger, "update")
	defer done()

	prev, err := r.Store.Load(top)
	if err != nil {
		return nil, err
	}

	params := prev.QueryParams.Merge(overrides)
	result, err := query.Run(ctx, params, r.Search, r.Status, r.component("query"), r.Now)
	if err != nil {
		return nil, err
	}
	return r.rebuild(ctx, prev, result, top, withTarget(opts, prev))
}

// Relink rebuilds top's links from its current manifest without querying
// the backends.
func (r *Runner) Relink(ctx context.Context, top string, opts Options) (*Report, error) {
	done := logging.OperationStart(r.Logger, "relink")
	defer done()

	prev, err := r.Store.Load(top)
	if err != nil {
		return nil, err
	}
	return r.rebuild(ctx, prev, query.FromManifest(prev), top, withTarget(opts, prev))
}

func (r *Runner) rebuild(ctx context.Context, prev *manifest.Manifest, result query.Result, top string, opts Options) (*Report, error) {
	dataDir := manifest.DataDir(top)
	layout := normalize.Layout{TargetDir: opts.TargetDir, LinkDir: dataDir}
	records := normalize.Records(result.Hits(), result.Status(), layout, r.component("normalize"))

	m := manifest.Build(prev, result.Params(), result.CompletedAt(),
		manifest.Dirs{TargetDir: opts.TargetDir, TopDir: top}, records)

	reconciler := links.NewReconciler(r.FS, r.component("links"), opts.Dangle)
	removed, err := reconciler.Clear(dataDir)
	if err != nil {
		return nil, fmt.Errorf("clearing links: %w", err)
	}
	if removed > 0 {
		r.Logger.Info().Int("removed", removed).Msg("Previous links removed")
	}

	var linked int
	m.Results, linked = reconciler.Reconcile(m.Results)

	if err := r.register(ctx, m, opts); err != nil {
		return nil, err
	}

	summary := manifest.Summarize(m)
	if err := r.Store.Persist(m, summary); err != nil {
		return nil, err
	}

	r.Logger.Info().
		Str("query", m.Name).
		Int("found", summary.Found).
		Int("linked", linked).
		Str("manifest", m.Filename).
		Msg("Query directory updated")
	return &Report{Manifest: m, Summary: summary, Linked: linked}, nil
}

// register updates the backend copy of a registered manifest, or registers
// a new one when asked to.
func (r *Runner) register(ctx context.Context, m *manifest.Manifest, opts Options) error {
	switch {
	case m.ExternalID != "":
		if err := r.Status.Update(ctx, m.ExternalID, m); err != nil {
			return fmt.Errorf("%s update: %w", r.Status.Name(), err)
		}
	case opts.Register:
		id, err := r.Status.Register(ctx, m)
		if err != nil {
			return fmt.Errorf("%s register: %w", r.Status.Name(), err)
		}
		m.Register(id)
	}
	return nil
}

func (r *Runner) component(name string) zerolog.Logger {
	return logging.Component(r.Logger, name)
}

func withTarget(opts Options, prev *manifest.Manifest) Options {
	if opts.TargetDir == "" {
		opts.TargetDir = prev.TargetDir
	}
	return opts
}
