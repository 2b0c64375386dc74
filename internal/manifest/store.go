// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/pdiddy/osdcquery/internal/filesystem"
	"github.com/pdiddy/osdcquery/pkg/types"
)

// ErrManifestNotFound is returned by Load when the summary or the manifest it
// references does not exist.
var ErrManifestNotFound = errors.New("manifest not found")

// Store reads and writes manifest and summary documents.
type Store struct {
	fs     filesystem.FS
	logger zerolog.Logger
}

// NewStore returns a Store writing through fsys.
func NewStore(fsys filesystem.FS, logger zerolog.Logger) *Store {
	return &Store{fs: fsys, logger: logger}
}

// Persist writes the manifest and then the summary into the metadata
// directory of m.TopDir. The summary is written last so it only ever points
// at a manifest that exists.
func (s *Store) Persist(m *Manifest, summary Summary) error {
	if m.Filename == "" {
		m.Filename = FilenameFor(m)
	}
	summary.Manifest = m.Filename

	dir := MetadataDir(m.TopDir)
	if err := s.fs.MkdirAll(dir); err != nil {
		return fmt.Errorf("creating metadata directory: %w", err)
	}
	if err := s.writeDoc(filepath.Join(dir, m.Filename), m); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := s.writeDoc(filepath.Join(dir, SummaryFileName), summary); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	s.logger.Info().
		Str("manifest", m.Filename).
		Int("found", summary.Found).
		Int("linked", summary.Linked).
		Msg("Metadata written")
	return nil
}

// LoadSummary reads top/metadata/SUMMARY.json.
func (s *Store) LoadSummary(top string) (*Summary, error) {
	var summary Summary
	if err := s.readDoc(filepath.Join(MetadataDir(top), SummaryFileName), &summary); err != nil {
		return nil, err
	}
	if summary.Manifest == "" {
		return nil, fmt.Errorf("%s has no Manifest reference: %w", SummaryFileName, ErrManifestNotFound)
	}
	return &summary, nil
}

// Load follows the summary's Manifest reference and returns that manifest.
func (s *Store) Load(top string) (*Manifest, error) {
	summary, err := s.LoadSummary(top)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := s.readDoc(filepath.Join(MetadataDir(top), summary.Manifest), &m); err != nil {
		return nil, err
	}
	m.Filename = summary.Manifest
	if m.Results == nil {
		m.Results = map[string]types.Entry{}
	}

	s.logger.Debug().Str("manifest", m.Filename).Int("entries", len(m.Results)).Msg("Manifest loaded")
	return &m, nil
}

func (s *Store) writeDoc(path string, v any) error {
	data, err := EncodeSorted(v)
	if err != nil {
		return err
	}
	return s.fs.WriteFile(path, data)
}

func (s *Store) readDoc(path string, v any) error {
	data, err := s.fs.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", path, ErrManifestNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// EncodeSorted renders v as JSON with every object's keys sorted and a
// four-space indent.
func EncodeSorted(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	// Round-trip through generic maps, which encoding/json emits in key order.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	// Query strings keep their <, > and & unescaped.
	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
