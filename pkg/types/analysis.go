// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the osdcquery pipeline:
// search hits, status records, manifest entries, query parameters, and the
// per-component configuration.
package types

import "encoding/json"

// SearchHit is one document returned by the search backend, reduced to the
// fields the linking core consumes.
type SearchHit struct {
	// ID is the search backend's document id. Manifest entries are keyed by it.
	ID string `json:"id" yaml:"id"`

	// AnalysisID names the analysis directory on the backing store.
	AnalysisID string `json:"analysis_id" yaml:"analysis_id"`

	// Category is the disease category (e.g. "OV") the analysis is filed under.
	Category string `json:"disease_category" yaml:"disease_category"`

	// Files is the hit's file list, passed through verbatim.
	Files json.RawMessage `json:"files,omitempty" yaml:"-"`
}

// Reason is the closed vocabulary of reasons an entry was not linked (or, for
// dangling links, was linked to a missing target).
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonStatusError     Reason = "status_error"
	ReasonStatusMissing   Reason = "status_missing"
	ReasonMD5NotFound     Reason = "md5_not_found"
	ReasonMD5NotOK        Reason = "md5_not_ok"
	ReasonNotFoundLinking Reason = "not_found_linking"
	ReasonSymlinkFailed   Reason = "symlink_failed"
)

// Reasons lists every non-empty reason in the vocabulary.
var Reasons = []Reason{
	ReasonStatusError,
	ReasonStatusMissing,
	ReasonMD5NotFound,
	ReasonMD5NotOK,
	ReasonNotFoundLinking,
	ReasonSymlinkFailed,
}

// Valid reports whether r belongs to the vocabulary. The empty reason is valid.
func (r Reason) Valid() bool {
	if r == ReasonNone {
		return true
	}
	for _, known := range Reasons {
		if r == known {
			return true
		}
	}
	return false
}

// StatusDerived reports whether r originates from the status lookup rather
// than from reconciliation.
func (r Reason) StatusDerived() bool {
	return r == ReasonStatusError || r == ReasonStatusMissing
}

// StatusRecord is the status backend's verdict for one id: either a checksum
// result or a lookup failure.
type StatusRecord struct {
	ID string `json:"id" yaml:"id"`

	// MD5OK is nil when the status document carries no checksum verdict.
	MD5OK *bool `json:"md5_ok,omitempty" yaml:"md5_ok,omitempty"`

	// Reason is ReasonStatusError when the lookup failed for this id.
	Reason Reason `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Detail carries the backend's error text, if any.
	Detail string `json:"reason_detail,omitempty" yaml:"error,omitempty"`
}

// AnalysisRecord is a search hit with its computed link paths.
type AnalysisRecord struct {
	ID         string          `json:"id"`
	AnalysisID string          `json:"analysis_id"`
	Category   string          `json:"disease_category"`
	Files      json.RawMessage `json:"files,omitempty"`

	// Target is target_dir/category/analysis_id.
	Target string `json:"target"`

	// LinkName is link_dir/analysis_id.
	LinkName string `json:"link_name"`
}

// Entry is one manifest result: an analysis record merged with its status
// fields and the reconciliation outcome.
type Entry struct {
	AnalysisRecord

	MD5OK  *bool  `json:"md5_ok,omitempty"`
	Linked bool   `json:"linked"`
	Reason Reason `json:"reason,omitempty"`
	Detail string `json:"reason_detail,omitempty"`
}

// Bool returns a pointer to v, for populating MD5OK.
func Bool(v bool) *bool { return &v }

// QueryParams identifies a query and the backends it was run against. It is
// recorded in every manifest so an update can re-run the same query.
type QueryParams struct {
	Name        string `json:"query_name" yaml:"name"`
	QueryString string `json:"query_string" yaml:"query"`
	URL         string `json:"query_url" yaml:"url"`
	Index       string `json:"query_index" yaml:"index"`
	DocType     string `json:"query_doc_type" yaml:"doc_type"`
	StatusURL   string `json:"status_url" yaml:"status_url"`
	StatusDB    string `json:"status_db" yaml:"status_db"`
}

// Merge returns p with every non-empty field of o applied on top.
func (p QueryParams) Merge(o QueryParams) QueryParams {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&p.Name, o.Name)
	set(&p.QueryString, o.QueryString)
	set(&p.URL, o.URL)
	set(&p.Index, o.Index)
	set(&p.DocType, o.DocType)
	set(&p.StatusURL, o.StatusURL)
	set(&p.StatusDB, o.StatusDB)
	return p
}
