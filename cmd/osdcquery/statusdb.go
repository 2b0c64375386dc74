// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/osdcquery/internal/logging"
	"github.com/pdiddy/osdcquery/internal/status"
)

var statusdbCmd = &cobra.Command{
	Use:   "statusdb",
	Short: "Manage the local SQLite status database",
	Long: `Statusdb manages the SQLite status database used when status.backend
is sqlite. The database file is status.path (or --status-path).`,
}

// --- import subcommand ---

var statusdbImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load status records from a YAML file",
	Long: `Import reads a YAML list of status records and stores them, replacing
existing records with the same id:

  - id: 0a1b2c...
    md5_ok: true
  - id: 3d4e5f...
    error: not_found`,
	Args: cobra.ExactArgs(1),
	RunE: runStatusdbImport,
}

func runStatusdbImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening status file: %w", err)
	}
	defer f.Close()

	db, err := status.OpenSQLite(cfg.Status.Path, logging.Component(logger, "status"))
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.Import(context.Background(), f)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Imported %d status records into %s\n", n, cfg.Status.Path)
	return nil
}

func init() {
	statusdbCmd.AddCommand(statusdbImportCmd)
	rootCmd.AddCommand(statusdbCmd)
}
