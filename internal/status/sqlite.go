// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package status

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/osdcquery/internal/manifest"
	"github.com/pdiddy/osdcquery/pkg/types"
)

// ErrNotRegistered is returned when no manifest is stored under an id.
var ErrNotRegistered = errors.New("manifest not registered")

// lookupBatch bounds the number of ids bound into one IN clause, below
// SQLite's default host parameter limit.
const lookupBatch = 500

// SQLite keeps status records and registered manifests in a local database
// file. It stands in for CouchDB on hosts without network access to the
// status server.
type SQLite struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// Ensure SQLite implements Client at compile time.
var _ Client = (*SQLite)(nil)

// OpenSQLite opens or creates the database at path and its schema.
func OpenSQLite(path string, logger zerolog.Logger) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite status backend requires a path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLite{db: db, path: path, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Name returns the backend identifier.
func (s *SQLite) Name() string { return "sqlite" }

func (s *SQLite) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS status (
			id TEXT PRIMARY KEY,
			md5_ok INTEGER,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS manifests (
			id TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Lookup returns the status rows for req.IDs. Rows with a non-empty error
// column are reported as status errors. When req.URL names another database
// file, that file is opened read-only for the lookup.
func (s *SQLite) Lookup(ctx context.Context, req Request) (map[string]types.StatusRecord, error) {
	db, release, err := s.dbFor(req)
	if err != nil {
		return nil, err
	}
	defer release()

	ids := req.IDs
	out := make(map[string]types.StatusRecord, len(ids))
	for start := 0; start < len(ids); start += lookupBatch {
		end := min(start+lookupBatch, len(ids))
		if err := lookupChunk(ctx, db, ids[start:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// dbFor returns the database req points at and a function releasing it.
func (s *SQLite) dbFor(req Request) (*sql.DB, func(), error) {
	if req.URL == "" {
		return s.db, func() {}, nil
	}
	path, ok := strings.CutPrefix(req.URL, types.SQLiteScheme)
	if !ok {
		return nil, nil, fmt.Errorf("status url %s is not a sqlite database", req.URL)
	}
	if path == s.path {
		return s.db, func() {}, nil
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	s.logger.Debug().Str("db", path).Msg("Looking up status in recorded database")
	return db, func() { db.Close() }, nil
}

func lookupChunk(ctx context.Context, db *sql.DB, ids []string, out map[string]types.StatusRecord) error {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT id, md5_ok, error FROM status WHERE id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `)`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id     string
			md5OK  sql.NullBool
			errMsg sql.NullString
		)
		if err := rows.Scan(&id, &md5OK, &errMsg); err != nil {
			return fmt.Errorf("scanning status row: %w", err)
		}
		rec := types.StatusRecord{ID: id}
		switch {
		case errMsg.Valid && errMsg.String != "":
			rec.Reason = types.ReasonStatusError
			rec.Detail = errMsg.String
		case md5OK.Valid:
			rec.MD5OK = types.Bool(md5OK.Bool)
		}
		out[id] = rec
	}
	return rows.Err()
}

// PutStatus inserts or replaces one status row.
func (s *SQLite) PutStatus(ctx context.Context, rec types.StatusRecord) error {
	return putStatus(ctx, s.db, rec)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putStatus(ctx context.Context, db execer, rec types.StatusRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("status record has no id")
	}
	var md5OK, errMsg any
	if rec.MD5OK != nil {
		md5OK = *rec.MD5OK
	}
	if rec.Detail != "" {
		errMsg = rec.Detail
	} else if rec.Reason == types.ReasonStatusError {
		errMsg = string(types.ReasonStatusError)
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO status (id, md5_ok, error) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET md5_ok=excluded.md5_ok, error=excluded.error`,
		rec.ID, md5OK, errMsg,
	)
	if err != nil {
		return fmt.Errorf("storing status %s: %w", rec.ID, err)
	}
	return nil
}

// Import reads a YAML list of status records from r and stores them in one
// transaction. It returns the number of records stored.
func (s *SQLite) Import(ctx context.Context, r io.Reader) (int, error) {
	var records []types.StatusRecord
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("parsing status records: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		if err := putStatus(ctx, tx, rec); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing status records: %w", err)
	}

	s.logger.Info().Int("records", len(records)).Str("db", s.path).Msg("Status records imported")
	return len(records), nil
}

// Register stores m under a new random id.
func (s *SQLite) Register(ctx context.Context, m *manifest.Manifest) (string, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding manifest: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO manifests (id, body, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, string(body), now, now,
	); err != nil {
		return "", fmt.Errorf("registering manifest: %w", err)
	}

	s.logger.Info().Str("id", id).Msg("Manifest registered")
	return id, nil
}

// Fetch returns the manifest stored under id.
func (s *SQLite) Fetch(ctx context.Context, id string) (*manifest.Manifest, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM manifests WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fetching manifest %s: %w", id, ErrNotRegistered)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching manifest %s: %w", id, err)
	}

	var m manifest.Manifest
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", id, err)
	}
	if m.ExternalID == "" {
		m.ExternalID = id
	}
	m.Filename = manifest.FilenameFor(&m)
	return &m, nil
}

// Update replaces the manifest stored under id.
func (s *SQLite) Update(ctx context.Context, id string, m *manifest.Manifest) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE manifests SET body = ?, updated_at = ? WHERE id = ?`,
		string(body), time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("updating manifest %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("updating manifest %s: %w", id, ErrNotRegistered)
	}

	s.logger.Info().Str("id", id).Msg("Manifest updated")
	return nil
}
