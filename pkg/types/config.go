package types

import "time"

// HTTPConfig holds shared HTTP settings used by the backend clients.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "osdcquery/0.2").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds settings for the search backend.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// URL is the Elasticsearch base URL (e.g. "http://172.16.1.3:9200").
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	// Index and DocType select the collection searched.
	Index   string `json:"index" yaml:"index" mapstructure:"index"`
	DocType string `json:"doc_type" yaml:"doc_type" mapstructure:"doc_type"`

	// CategoryField is the source field holding the disease category
	// (default "disease_abbr").
	CategoryField string `json:"category_field" yaml:"category_field" mapstructure:"category_field"`

	// DefaultCategory is used for hits that lack CategoryField (default "none").
	DefaultCategory string `json:"default_category" yaml:"default_category" mapstructure:"default_category"`
}

// StatusBackend identifies the status database implementation.
type StatusBackend string

const (
	StatusCouchDB StatusBackend = "couchdb"
	StatusSQLite  StatusBackend = "sqlite"
)

// SQLiteScheme prefixes the status URL recorded for a SQLite status database.
const SQLiteScheme = "sqlite://"

// StatusConfig holds settings for the status backend.
type StatusConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Backend selects couchdb or sqlite.
	Backend StatusBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// URL is the CouchDB base URL.
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	// Database holds per-analysis status documents.
	Database string `json:"database" yaml:"database" mapstructure:"database"`

	// QueryDatabase holds registered manifests.
	QueryDatabase string `json:"query_database" yaml:"query_database" mapstructure:"query_database"`

	// Path is the SQLite database file when Backend is sqlite.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// Username and Password enable basic auth against CouchDB. They are
	// normally supplied through .secrets/ rather than the config file.
	Username string `json:"username,omitempty" yaml:"username,omitempty" mapstructure:"username"`
	Password string `json:"-" yaml:"-" mapstructure:"password"`
}

// LinkConfig holds settings for link reconciliation.
type LinkConfig struct {
	// TargetDir is where the original analysis directories live.
	TargetDir string `json:"target_dir" yaml:"target_dir" mapstructure:"target_dir"`

	// LinkDir is the parent of every query directory.
	LinkDir string `json:"link_dir" yaml:"link_dir" mapstructure:"link_dir"`

	// Dangle creates links even when the target does not exist.
	Dangle bool `json:"dangle" yaml:"dangle" mapstructure:"dangle"`

	// Register records manifests with the status backend.
	Register bool `json:"register" yaml:"register" mapstructure:"register"`
}

// Config groups all component configurations.
type Config struct {
	Search SearchConfig `json:"search" yaml:"search" mapstructure:"search"`
	Status StatusConfig `json:"status" yaml:"status" mapstructure:"status"`
	Links  LinkConfig   `json:"links" yaml:"links" mapstructure:"links"`
}

// Params returns the query parameters implied by the configured backends for
// a query with the given name and query string.
func (c Config) Params(name, queryString string) QueryParams {
	p := QueryParams{
		Name:        name,
		QueryString: queryString,
		URL:         c.Search.URL,
		Index:       c.Search.Index,
		DocType:     c.Search.DocType,
		StatusURL:   c.Status.URL,
		StatusDB:    c.Status.Database,
	}
	if c.Status.Backend == StatusSQLite {
		p.StatusURL = SQLiteScheme + c.Status.Path
	}
	return p
}
