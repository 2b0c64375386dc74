// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/osdcquery/internal/httputil"
	"github.com/pdiddy/osdcquery/internal/manifest"
	"github.com/pdiddy/osdcquery/pkg/types"
)

// CouchDB reads status documents from one database and keeps registered
// manifests in another.
type CouchDB struct {
	Client    *http.Client
	BaseURL   string
	UserAgent string

	// Database holds one status document per analysis, keyed by hit id.
	Database string

	// QueryDatabase holds registered manifests.
	QueryDatabase string

	Username string
	Password string

	logger zerolog.Logger
}

// Ensure CouchDB implements Client at compile time.
var _ Client = (*CouchDB)(nil)

// NewCouchDB returns a CouchDB client configured from cfg.
func NewCouchDB(cfg types.StatusConfig, logger zerolog.Logger) *CouchDB {
	return &CouchDB{
		Client:        &http.Client{Timeout: cfg.Timeout},
		BaseURL:       cfg.URL,
		UserAgent:     cfg.UserAgent,
		Database:      cfg.Database,
		QueryDatabase: cfg.QueryDatabase,
		Username:      cfg.Username,
		Password:      cfg.Password,
		logger:        logger,
	}
}

// Name returns the backend identifier.
func (c *CouchDB) Name() string { return "couchdb" }

// Lookup issues a single _all_docs request for req.IDs with documents
// included, against req's server and database when set.
func (c *CouchDB) Lookup(ctx context.Context, req Request) (map[string]types.StatusRecord, error) {
	ids := req.IDs
	out := make(map[string]types.StatusRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	base, db := c.BaseURL, c.Database
	if req.URL != "" {
		if strings.HasPrefix(req.URL, types.SQLiteScheme) {
			return nil, fmt.Errorf("status url %s is not a CouchDB server", req.URL)
		}
		base = req.URL
	}
	if req.Database != "" {
		db = req.Database
	}

	endpoint := httputil.JoinURL(base, db, "_all_docs") + "?include_docs=true"
	var resp allDocsResponse
	if err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"keys": ids}, &resp); err != nil {
		return nil, err
	}

	for _, row := range resp.Rows {
		switch {
		case row.Error != "":
			out[row.Key] = types.StatusRecord{ID: row.Key, Reason: types.ReasonStatusError, Detail: row.Error}
		case row.Doc == nil:
			// Deleted documents come back with a null doc.
			out[row.Key] = types.StatusRecord{ID: row.Key, Reason: types.ReasonStatusError, Detail: "deleted"}
		default:
			out[row.Key] = types.StatusRecord{ID: row.Key, MD5OK: row.Doc.MD5OK}
		}
	}

	c.logger.Debug().Str("db", db).Int("keys", len(ids)).Int("rows", len(resp.Rows)).Msg("CouchDB _all_docs")
	return out, nil
}

// Register posts m to the query database and returns the generated id.
func (c *CouchDB) Register(ctx context.Context, m *manifest.Manifest) (string, error) {
	var resp docResponse
	if err := c.do(ctx, http.MethodPost, httputil.JoinURL(c.BaseURL, c.QueryDatabase), m, &resp); err != nil {
		return "", fmt.Errorf("registering manifest: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("registering manifest: response carried no id")
	}
	c.logger.Info().Str("id", resp.ID).Str("db", c.QueryDatabase).Msg("Manifest registered")
	return resp.ID, nil
}

// Fetch reads the manifest document stored under id.
func (c *CouchDB) Fetch(ctx context.Context, id string) (*manifest.Manifest, error) {
	var m manifest.Manifest
	if err := c.do(ctx, http.MethodGet, c.docURL(id), nil, &m); err != nil {
		return nil, fmt.Errorf("fetching manifest %s: %w", id, err)
	}
	if m.ExternalID == "" {
		m.ExternalID = id
	}
	m.Filename = manifest.FilenameFor(&m)
	return &m, nil
}

// Update overwrites the manifest stored under id, reading its current
// revision first.
func (c *CouchDB) Update(ctx context.Context, id string, m *manifest.Manifest) error {
	var current struct {
		Rev string `json:"_rev"`
	}
	if err := c.do(ctx, http.MethodGet, c.docURL(id), nil, &current); err != nil {
		return fmt.Errorf("reading revision of %s: %w", id, err)
	}

	body, err := withRevision(m, id, current.Rev)
	if err != nil {
		return err
	}
	var resp docResponse
	if err := c.do(ctx, http.MethodPut, c.docURL(id), body, &resp); err != nil {
		return fmt.Errorf("updating manifest %s: %w", id, err)
	}
	c.logger.Info().Str("id", id).Str("rev", resp.Rev).Msg("Manifest updated")
	return nil
}

func (c *CouchDB) docURL(id string) string {
	return httputil.JoinURL(c.BaseURL, c.QueryDatabase, url.PathEscape(id))
}

func (c *CouchDB) do(ctx context.Context, method, endpoint string, body, out any) error {
	req, err := httputil.NewJSONRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	return httputil.DoJSON(client, req, out)
}

// withRevision encodes m as a generic document carrying CouchDB's _id and _rev.
func withRevision(m *manifest.Manifest, id, rev string) (map[string]any, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	doc["_id"] = id
	if rev != "" {
		doc["_rev"] = rev
	}
	return doc, nil
}

// CouchDB response structures.
type allDocsResponse struct {
	Rows []allDocsRow `json:"rows"`
}

type allDocsRow struct {
	Key   string     `json:"key"`
	Error string     `json:"error"`
	Doc   *statusDoc `json:"doc"`
}

type statusDoc struct {
	MD5OK *bool `json:"md5_ok"`
}

type docResponse struct {
	OK  bool   `json:"ok"`
	ID  string `json:"id"`
	Rev string `json:"rev"`
}
