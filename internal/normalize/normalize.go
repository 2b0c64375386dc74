// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize merges search hits with their status records into
// manifest entries. It performs no I/O.
package normalize

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/pdiddy/osdcquery/pkg/types"
)

// Layout locates link targets and link names.
type Layout struct {
	// TargetDir holds the original analyses as TargetDir/category/analysis_id.
	TargetDir string

	// LinkDir receives one link per analysis, named after the analysis id.
	LinkDir string
}

// Target returns the path the link for hit points at.
func (l Layout) Target(hit types.SearchHit) string {
	return filepath.Join(l.TargetDir, hit.Category, hit.AnalysisID)
}

// LinkName returns the path of the link for hit.
func (l Layout) LinkName(hit types.SearchHit) string {
	return filepath.Join(l.LinkDir, hit.AnalysisID)
}

// Records builds one entry per distinct hit id. Hits without a status record
// are tagged status_missing. When two hits share an id the first wins.
func Records(hits []types.SearchHit, status map[string]types.StatusRecord, layout Layout, logger zerolog.Logger) map[string]types.Entry {
	entries := make(map[string]types.Entry, len(hits))
	missing := 0

	for _, hit := range hits {
		if _, dup := entries[hit.ID]; dup {
			logger.Warn().Str("id", hit.ID).Msg("Duplicate search hit ignored")
			continue
		}

		e := types.Entry{
			AnalysisRecord: types.AnalysisRecord{
				ID:         hit.ID,
				AnalysisID: hit.AnalysisID,
				Category:   hit.Category,
				Files:      hit.Files,
				Target:     layout.Target(hit),
				LinkName:   layout.LinkName(hit),
			},
		}

		rec, ok := status[hit.ID]
		switch {
		case !ok:
			e.Reason = types.ReasonStatusMissing
			missing++
		case rec.Reason != types.ReasonNone:
			e.Reason = rec.Reason
			e.Detail = rec.Detail
		default:
			e.MD5OK = rec.MD5OK
		}
		entries[hit.ID] = e
	}

	if missing > 0 {
		logger.Info().Int("count", missing).Msg("Hits without a status record")
	}
	return entries
}
