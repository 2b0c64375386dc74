// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/osdcquery/internal/search"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields [URL]",
	Short: "List the searchable metadata fields and their types",
	Long: `Fields reads the search index mapping and prints every field a
QUERY_STRING can reference, with its type. URL defaults to the configured
search URL.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFields,
}

func runFields(cmd *cobra.Command, args []string) error {
	url := ""
	if len(args) == 1 {
		url = args[0]
	}
	es := search.NewElastic(cfg.Search, url)

	mapping, err := es.Mapping(context.Background(), cfg.Search.Index, cfg.Search.DocType)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(mapping)
	}

	for _, name := range search.FieldNames(mapping) {
		fmt.Fprintf(os.Stdout, "%-40s %s\n", name, mapping[name])
	}
	fmt.Fprintf(os.Stdout, "\n%d fields\n", len(mapping))
	return nil
}

func init() {
	fieldsCmd.Flags().Bool("json", false, "output fields as JSON")
	rootCmd.AddCommand(fieldsCmd)
}
