// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the osdcquery CLI.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/osdcquery/internal/config"
	"github.com/pdiddy/osdcquery/internal/logging"
	"github.com/pdiddy/osdcquery/internal/secrets"
	"github.com/pdiddy/osdcquery/internal/status"
	"github.com/pdiddy/osdcquery/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// logger is built from -v before any command runs.
	logger = zerolog.Nop()

	// cfg is the merged configuration: defaults, config file, env, flags.
	cfg types.Config
)

// rootCmd creates, updates, or relinks a query directory.
var rootCmd = &cobra.Command{
	Use:   "osdcquery [flags] QUERY_NAME [URL] QUERY_STRING",
	Short: "Link the analyses matching a metadata query into a directory",
	Long: `osdcquery runs a query against the metadata search index, checks each
matching analysis against the status database, and links every analysis with
a verified checksum into LINK_DIR/QUERY_NAME/data. A manifest recording every
match and why it was or was not linked is written to
LINK_DIR/QUERY_NAME/metadata.

With --update the query recorded in the existing manifest is run again and
the links are rebuilt from scratch. With --from-manifest the links are
rebuilt from the manifest without contacting the backends.`,
	Example: `  osdcquery ov_wxs "disease_abbr:OV AND library_strategy:WXS"
  osdcquery ov_wxs http://localhost:9200 "disease_abbr:OV"
  osdcquery -u ov_wxs
  osdcquery -m -i ov_wxs`,
	Args:              cobra.RangeArgs(0, 3),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runQuery,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./osdcquery.yaml or ~/.config/osdcquery/config.yaml)")
	pf.CountP("verbose", "v", "increase log verbosity (-v info, -vv debug, -vvv trace)")
	pf.StringP("link-dir", "l", "", "parent directory of query directories")
	pf.String("status-backend", "", "status backend: couchdb or sqlite")
	pf.String("status-path", "", "SQLite status database file")

	f := rootCmd.Flags()
	f.BoolP("update", "u", false, "re-run the query recorded in QUERY_NAME's manifest and rebuild its links")
	f.BoolP("from-manifest", "m", false, "rebuild QUERY_NAME's links from its manifest without querying")
	f.StringP("target-dir", "t", "", "directory holding the original analyses")
	f.BoolP("dangle", "i", false, "link analyses whose target does not exist")
	f.Bool("register", false, "register the manifest with the status backend")
	f.String("query-file", "", "read query parameters from a YAML query file")
	f.String("save-query", "", "write the query parameters and hits to a YAML query file")
	rootCmd.MarkFlagsMutuallyExclusive("update", "from-manifest")

	mustBind(config.KeyLinkDir, pf.Lookup("link-dir"))
	mustBind(config.KeyStatusBackend, pf.Lookup("status-backend"))
	mustBind(config.KeyStatusPath, pf.Lookup("status-path"))
	mustBind(config.KeyTargetDir, f.Lookup("target-dir"))
	mustBind(config.KeyDangle, f.Lookup("dangle"))
	mustBind(config.KeyRegister, f.Lookup("register"))
}

func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("osdcquery")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "osdcquery"))
		}
	}

	config.SetDefaults(viper.GetViper())
	viper.SetEnvPrefix("OSDCQUERY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setup builds the logger, loads secrets, and resolves the configuration.
func setup(cmd *cobra.Command, args []string) error {
	verbosity, _ := cmd.Flags().GetCount("verbose")
	logger = logging.New(verbosity, os.Stderr)

	s, err := secrets.Load(".secrets/", logger)
	if err != nil {
		return err
	}
	if len(s) > 0 {
		keys := make([]string, 0, len(s))
		for k := range s {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		logger.Info().Strs("keys", keys).Msg("Loaded secrets")
	}

	cfg, err = config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	// Configured credentials win over the secrets directory.
	if cfg.Status.Username == "" {
		cfg.Status.Username, cfg.Status.Password = secrets.CouchDB(s)
	}
	return nil
}

// openStatus opens the configured status backend. The returned function
// releases it.
func openStatus() (status.Client, func(), error) {
	client, err := status.Open(cfg.Status, logging.Component(logger, "status"))
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if c, ok := client.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Warn().Err(err).Msg("Closing status backend")
			}
		}
	}
	return client, release, nil
}

// topDir returns the query directory for name.
func topDir(name string) string {
	return filepath.Join(cfg.Links.LinkDir, name)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
