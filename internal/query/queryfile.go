// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package query

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/osdcquery/pkg/types"
)

// File is the on-disk form of a saved query. It lets a query be re-run by
// name without retyping the query string or backend locations.
type File struct {
	Query types.QueryParams `yaml:"query"`

	// Saved is when the file was written.
	Saved time.Time `yaml:"saved,omitempty"`

	// Hits records the matches seen when the file was written, if any.
	Hits []types.SearchHit `yaml:"hits,omitempty"`
}

// WriteFile saves r's parameters, and its hits when withHits is set, to a
// YAML file at path.
func WriteFile(path string, r Result, withHits bool) error {
	qf := File{Query: r.Params(), Saved: time.Now().UTC()}
	if withHits {
		qf.Hits = r.Hits()
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile loads a saved query file. A file missing a query string is
// rejected.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf File
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	if qf.Query.QueryString == "" {
		return nil, fmt.Errorf("query file %s has no query string", path)
	}
	return &qf, nil
}
