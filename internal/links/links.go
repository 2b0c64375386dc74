// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package links decides which manifest entries are linked and creates the
// symlinks for them.
package links

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/pdiddy/osdcquery/internal/filesystem"
	"github.com/pdiddy/osdcquery/pkg/types"
)

// Reconciler applies the link rules to manifest entries.
type Reconciler struct {
	fs     filesystem.FS
	logger zerolog.Logger

	// dangle links entries whose target does not exist.
	dangle bool
}

// NewReconciler returns a Reconciler creating links through fsys.
func NewReconciler(fsys filesystem.FS, logger zerolog.Logger, dangle bool) *Reconciler {
	return &Reconciler{fs: fsys, logger: logger, dangle: dangle}
}

// Reconcile decides every entry in id order and returns the updated entries
// together with the number linked. The first matching rule wins:
//
//  1. a status-derived reason is kept and no filesystem call is made
//  2. no md5 verdict gives md5_not_found
//  3. a failed md5 verdict gives md5_not_ok
//  4. a missing target gives not_found_linking, which stops here unless
//     dangling links are allowed
//  5. the link is created; a failure gives symlink_failed with the error text
//
// A dangling link that was created keeps not_found_linking.
func (r *Reconciler) Reconcile(entries map[string]types.Entry) (map[string]types.Entry, int) {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	linked := 0
	for _, id := range ids {
		e := r.decide(entries[id])
		if e.Linked {
			linked++
		}
		entries[id] = e
	}

	r.logger.Info().Int("entries", len(entries)).Int("linked", linked).Msg("Links reconciled")
	return entries, linked
}

func (r *Reconciler) decide(e types.Entry) types.Entry {
	e.Linked = false

	if e.Reason.StatusDerived() {
		return e
	}
	// Reasons from an earlier pass are recomputed.
	e.Reason = types.ReasonNone
	e.Detail = ""

	switch {
	case e.MD5OK == nil:
		e.Reason = types.ReasonMD5NotFound
		return e
	case !*e.MD5OK:
		e.Reason = types.ReasonMD5NotOK
		return e
	}

	exists, err := r.fs.Exists(e.Target)
	if err != nil {
		e.Reason = types.ReasonSymlinkFailed
		e.Detail = err.Error()
		r.logger.Warn().Err(err).Str("target", e.Target).Msg("Checking link target failed")
		return e
	}
	if !exists {
		e.Reason = types.ReasonNotFoundLinking
		if !r.dangle {
			r.logger.Debug().Str("target", e.Target).Msg("Link target not found")
			return e
		}
	}

	if err := r.fs.Symlink(e.Target, e.LinkName); err != nil {
		e.Reason = types.ReasonSymlinkFailed
		e.Detail = err.Error()
		r.logger.Warn().Err(err).Str("link", e.LinkName).Msg("Creating link failed")
		return e
	}

	e.Linked = true
	if e.Reason != types.ReasonNotFoundLinking {
		e.Reason = types.ReasonNone
	}
	r.logger.Trace().Str("link", e.LinkName).Str("target", e.Target).Msg("Linked")
	return e
}

// Clear removes every entry of dir and returns how many were removed. A
// missing dir is created empty.
func (r *Reconciler) Clear(dir string) (int, error) {
	exists, err := r.fs.Exists(dir)
	if err != nil {
		return 0, fmt.Errorf("checking %s: %w", dir, err)
	}
	if !exists {
		if err := r.fs.MkdirAll(dir); err != nil {
			return 0, fmt.Errorf("creating %s: %w", dir, err)
		}
		return 0, nil
	}

	names, err := r.fs.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	for _, name := range names {
		if err := r.fs.Remove(filepath.Join(dir, name)); err != nil {
			return 0, fmt.Errorf("removing link: %w", err)
		}
	}

	r.logger.Debug().Str("dir", dir).Int("removed", len(names)).Msg("Link directory cleared")
	return len(names), nil
}
