// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/osdcquery/internal/manifest"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch EXTERNAL_ID",
	Short: "Print a manifest registered with the status backend",
	Long: `Fetch reads the manifest registered under EXTERNAL_ID (see --register)
from the status backend and prints it as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	st, release, err := openStatus()
	if err != nil {
		return err
	}
	defer release()

	m, err := st.Fetch(context.Background(), args[0])
	if err != nil {
		return err
	}

	data, err := manifest.EncodeSorted(m)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
