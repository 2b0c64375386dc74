// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/osdcquery/internal/cycle"
	"github.com/pdiddy/osdcquery/internal/filesystem"
	"github.com/pdiddy/osdcquery/internal/logging"
	"github.com/pdiddy/osdcquery/internal/manifest"
	"github.com/pdiddy/osdcquery/internal/query"
	"github.com/pdiddy/osdcquery/internal/search"
	"github.com/pdiddy/osdcquery/pkg/types"
)

// queryArgs is the positional form QUERY_NAME [URL] QUERY_STRING, plus the
// optional query file.
type queryArgs struct {
	params types.QueryParams
	name   string
}

// parseQueryArgs resolves the positional arguments for a create or update.
// An update takes QUERY_NAME and an optional replacement QUERY_STRING;
// a relink takes QUERY_NAME alone.
func parseQueryArgs(cmd *cobra.Command, args []string) (queryArgs, error) {
	update, _ := cmd.Flags().GetBool("update")
	relink, _ := cmd.Flags().GetBool("from-manifest")
	queryFile, _ := cmd.Flags().GetString("query-file")

	var qa queryArgs
	if queryFile != "" {
		qf, err := query.ReadFile(queryFile)
		if err != nil {
			return qa, err
		}
		qa.params = qf.Query
		qa.name = qf.Query.Name
	}

	switch {
	case relink:
		if len(args) != 1 {
			return qa, fmt.Errorf("--from-manifest takes exactly one QUERY_NAME")
		}
		qa.name = args[0]
	case update:
		if len(args) < 1 || len(args) > 2 {
			return qa, fmt.Errorf("--update takes QUERY_NAME and an optional QUERY_STRING")
		}
		qa.name = args[0]
		if len(args) == 2 {
			qa.params.QueryString = args[1]
		}
	default:
		switch len(args) {
		case 0:
			if queryFile == "" {
				return qa, fmt.Errorf("QUERY_NAME and QUERY_STRING are required")
			}
		case 1:
			if queryFile == "" {
				return qa, fmt.Errorf("QUERY_STRING is required")
			}
			qa.name = args[0]
		case 2:
			qa.name, qa.params.QueryString = args[0], args[1]
		case 3:
			qa.name, qa.params.URL, qa.params.QueryString = args[0], args[1], args[2]
		}
	}

	if qa.name == "" {
		return qa, fmt.Errorf("QUERY_NAME is required")
	}
	if strings.ContainsRune(qa.name, os.PathSeparator) {
		return qa, fmt.Errorf("QUERY_NAME %q must not contain %q", qa.name, os.PathSeparator)
	}
	qa.params.Name = qa.name
	return qa, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	qa, err := parseQueryArgs(cmd, args)
	if err != nil {
		return err
	}
	update, _ := cmd.Flags().GetBool("update")
	relink, _ := cmd.Flags().GetBool("from-manifest")

	opts := cycle.Options{
		TargetDir: cfg.Links.TargetDir,
		Dangle:    cfg.Links.Dangle,
		Register:  cfg.Links.Register,
	}
	// Updates keep the manifest's target dir unless one is given explicitly.
	if (update || relink) && !cmd.Flags().Changed("target-dir") {
		opts.TargetDir = ""
	}

	st, release, err := openStatus()
	if err != nil {
		return err
	}
	defer release()

	// Requests carry the recorded search URL; the configured one is the fallback.
	sc := search.NewElastic(cfg.Search, "")
	runner := cycle.New(sc, st, filesystem.NewOS(), logging.Component(logger, "cycle"))

	ctx := context.Background()
	top := topDir(qa.name)

	var report *cycle.Report
	switch {
	case relink:
		report, err = runner.Relink(ctx, top, opts)
	case update:
		report, err = runner.Update(ctx, top, qa.params, opts)
	default:
		params := cfg.Params(qa.name, "").Merge(qa.params)
		report, err = runner.Create(ctx, params, top, opts)
	}
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("save-query"); path != "" {
		if err := query.WriteFile(path, query.FromManifest(report.Manifest), true); err != nil {
			return err
		}
		logger.Info().Str("path", path).Msg("Query file written")
	}

	printSummary(os.Stdout, report.Summary)
	return nil
}

// printSummary writes s as aligned "key: value" lines followed by the reason
// histogram.
func printSummary(w io.Writer, s manifest.Summary) {
	rows := [][2]string{
		{"Query Name", s.QueryName},
		{"Query", s.Query},
		{"Query Date/Time", s.QueryTime},
		{"Search URL", s.SearchURL},
		{"Status URL", s.StatusURL},
		{"Analyses Origin Dir", s.OriginDir},
		{"Analyses Result Dir", s.ResultDir},
		{"Analyses Found", fmt.Sprint(s.Found)},
		{"Analyses Linked", fmt.Sprint(s.Linked)},
		{"Manifest", s.Manifest},
	}
	if s.ExternalID != "" {
		rows = append(rows, [2]string{"External ID", s.ExternalID})
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%-20s %s\n", r[0]+":", r[1])
	}

	if len(s.Reasons) == 0 {
		return
	}
	reasons := make([]string, 0, len(s.Reasons))
	for r := range s.Reasons {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	fmt.Fprintln(w, "Reasons:")
	for _, r := range reasons {
		fmt.Fprintf(w, "  %-18s %d\n", r, s.Reasons[types.Reason(r)])
	}
}
