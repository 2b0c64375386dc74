// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/osdcquery/internal/filesystem"
	"github.com/pdiddy/osdcquery/internal/manifest"
)

var summaryCmd = &cobra.Command{
	Use:   "summary QUERY_NAME",
	Short: "Print the summary of a query directory",
	Long: `Summary prints the SUMMARY.json of LINK_DIR/QUERY_NAME: the query, when
it ran, how many analyses it found and linked, and why the rest were not
linked.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		format = "json"
	}

	store := manifest.NewStore(filesystem.NewOS(), logger)
	s, err := store.LoadSummary(topDir(args[0]))
	if err != nil {
		return err
	}

	switch format {
	case "text", "":
		printSummary(os.Stdout, *s)
	case "json":
		data, err := manifest.EncodeSorted(s)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(s)
	default:
		return fmt.Errorf("unsupported format %q: use text, json, or yaml", format)
	}
	return nil
}

func init() {
	summaryCmd.Flags().Bool("json", false, "output the summary as JSON (same as --format json)")
	summaryCmd.Flags().String("format", "text", "output format: text, json, or yaml")
	rootCmd.AddCommand(summaryCmd)
}
