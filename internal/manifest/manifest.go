// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest owns the manifest document (query metadata plus one entry
// per search hit) and the summary document that points at the current
// manifest. Both live in the metadata directory of a query directory:
//
//	top_dir/data/                  symlinks
//	top_dir/metadata/MANIFEST-*.json
//	top_dir/metadata/SUMMARY.json  {"Manifest": "MANIFEST-*.json", ...}
package manifest

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/pdiddy/osdcquery/pkg/types"
)

const (
	DataDirName     = "data"
	MetadataDirName = "metadata"
	SummaryFileName = "SUMMARY.json"
	filenamePrefix  = "MANIFEST-"
	filenameSuffix  = ".json"
)

// Dirs locates a query directory and the directory its targets live in.
type Dirs struct {
	TargetDir string
	TopDir    string
}

// DataDir returns the link-holding directory under top.
func DataDir(top string) string { return filepath.Join(top, DataDirName) }

// MetadataDir returns the metadata directory under top.
func MetadataDir(top string) string { return filepath.Join(top, MetadataDirName) }

// Manifest records one query's merged, reconciled analysis records.
type Manifest struct {
	types.QueryParams

	// QueryTime is when the search completed. It names unregistered manifests.
	QueryTime time.Time `json:"query_datetime"`

	TargetDir string `json:"target_dir"`
	TopDir    string `json:"top_dir"`

	// ExternalID is the registration id assigned by the status backend.
	// Once set it is carried through every rebuild.
	ExternalID string `json:"external_id,omitempty"`

	Results map[string]types.Entry `json:"results"`

	// Filename is derived, never serialized.
	Filename string `json:"-"`
}

// Build assembles a manifest from query metadata and normalized records. When
// prev carries a registration id, the new manifest keeps it.
func Build(prev *Manifest, params types.QueryParams, completed time.Time, dirs Dirs, records map[string]types.Entry) *Manifest {
	if records == nil {
		records = map[string]types.Entry{}
	}
	m := &Manifest{
		QueryParams: params,
		QueryTime:   completed,
		TargetDir:   dirs.TargetDir,
		TopDir:      dirs.TopDir,
		Results:     records,
	}
	if prev != nil && prev.ExternalID != "" {
		m.ExternalID = prev.ExternalID
	}
	m.Filename = FilenameFor(m)
	return m
}

// FilenameFor names a manifest: MANIFEST-<external id>.json when registered,
// otherwise MANIFEST-<unix seconds of the query time>.json. Two unregistered
// manifests for the same query built within one second share a name.
func FilenameFor(m *Manifest) string {
	if m.ExternalID != "" {
		return filenamePrefix + m.ExternalID + filenameSuffix
	}
	return fmt.Sprintf("%s%d%s", filenamePrefix, m.QueryTime.Unix(), filenameSuffix)
}

// Register records an external registration id and renames the manifest to match.
func (m *Manifest) Register(id string) {
	m.ExternalID = id
	m.Filename = FilenameFor(m)
}

// IDs returns the entry ids in sorted order.
func (m *Manifest) IDs() []string {
	ids := make([]string, 0, len(m.Results))
	for id := range m.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Summary is the aggregate view of a manifest, persisted as SUMMARY.json.
type Summary struct {
	QueryName  string `json:"Query Name" yaml:"query_name"`
	SearchURL  string `json:"Search URL" yaml:"search_url"`
	StatusURL  string `json:"Status URL" yaml:"status_url"`
	Query      string `json:"Query" yaml:"query"`
	QueryTime  string `json:"Query Date/Time" yaml:"query_datetime"`
	Found      int    `json:"Analyses Found" yaml:"analyses_found"`
	Linked     int    `json:"Analyses Linked" yaml:"analyses_linked"`
	OriginDir  string `json:"Analyses Origin Dir" yaml:"origin_dir"`
	ResultDir  string `json:"Analyses Result Dir" yaml:"result_dir"`
	Manifest   string `json:"Manifest" yaml:"manifest"`
	ExternalID string `json:"External ID,omitempty" yaml:"external_id,omitempty"`

	// Reasons counts entries per reason, linked dangling entries included.
	Reasons map[types.Reason]int `json:"Reasons" yaml:"reasons"`
}

// Summarize computes the summary of m.
func Summarize(m *Manifest) Summary {
	s := Summary{
		QueryName:  m.Name,
		SearchURL:  joinNonEmpty(m.URL, m.Index, m.DocType),
		StatusURL:  joinNonEmpty(m.StatusURL, m.StatusDB),
		Query:      m.QueryString,
		QueryTime:  m.QueryTime.Format(time.RFC3339),
		OriginDir:  m.TargetDir,
		ResultDir:  m.TopDir,
		Manifest:   m.Filename,
		ExternalID: m.ExternalID,
		Reasons:    map[types.Reason]int{},
	}
	if s.Manifest == "" {
		s.Manifest = FilenameFor(m)
	}
	for _, e := range m.Results {
		s.Found++
		if e.Linked {
			s.Linked++
		}
		if e.Reason != types.ReasonNone {
			s.Reasons[e.Reason]++
		}
	}
	return s
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out == "" {
			out = p
			continue
		}
		out += "/" + p
	}
	return out
}
