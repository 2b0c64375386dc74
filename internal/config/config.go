// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config registers default settings with viper and unmarshals them
// into types.Config. The defaults describe the TCGA deployment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/osdcquery/pkg/types"
)

// Keys bound to command-line flags.
const (
	KeySearchURL     = "search.url"
	KeyTargetDir     = "links.target_dir"
	KeyLinkDir       = "links.link_dir"
	KeyDangle        = "links.dangle"
	KeyRegister      = "links.register"
	KeyStatusBackend = "status.backend"
	KeyStatusPath    = "status.path"
	KeyUsername      = "status.username"
	KeyPassword      = "status.password"
)

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("search.url", "http://172.16.1.3:9200")
	v.SetDefault("search.index", "tcga-cghub")
	v.SetDefault("search.doc_type", "analysis")
	v.SetDefault("search.category_field", "disease_abbr")
	v.SetDefault("search.default_category", "none")
	v.SetDefault("search.timeout", 60*time.Second)
	v.SetDefault("search.user_agent", "osdcquery/0.2")

	v.SetDefault("status.backend", string(types.StatusCouchDB))
	v.SetDefault("status.url", "https://172.16.1.3:6984")
	v.SetDefault("status.database", "tcga-osdc")
	v.SetDefault("status.query_database", "tcga-query")
	v.SetDefault("status.path", "osdcquery-status.db")
	v.SetDefault("status.timeout", 60*time.Second)
	v.SetDefault("status.user_agent", "osdcquery/0.2")
	v.SetDefault(KeyUsername, "")
	v.SetDefault(KeyPassword, "")

	v.SetDefault("links.target_dir", "/glusterfs/data/TCGA/")
	v.SetDefault("links.link_dir", "/tmp")
	v.SetDefault("links.dangle", false)
	v.SetDefault("links.register", false)
}

// Load unmarshals v into a Config and expands ~ in filesystem paths.
func Load(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing configuration: %w", err)
	}

	var err error
	for _, p := range []*string{&cfg.Links.TargetDir, &cfg.Links.LinkDir, &cfg.Status.Path} {
		if *p, err = expandHome(*p); err != nil {
			return cfg, err
		}
	}

	switch cfg.Status.Backend {
	case types.StatusCouchDB, types.StatusSQLite:
	default:
		return cfg, fmt.Errorf("status.backend must be %q or %q, got %q",
			types.StatusCouchDB, types.StatusSQLite, cfg.Status.Backend)
	}
	return cfg, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expanding %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
