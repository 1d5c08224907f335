package main

import (
	"fmt"

	"github.com/scttfrdmn/gbk2circos/pkg/config"
	"github.com/scttfrdmn/gbk2circos/pkg/rundb"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs [runs.db]",
	Short: "List runs recorded in a run database",
	Long: `List the conversions recorded with --db, newest first, with the number
of alignments kept and links stored for each run.

The database defaults to GBK2CIRCOS_DB.

Example:
  gbk2circos runs runs.db`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := env.DB
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("no run database given (argument or %s)", config.EnvDB)
		}

		ctx := cmd.Context()
		db, err := rundb.Open(ctx, path)
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.Runs(ctx)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "===========================================")
		fmt.Fprintln(out, "Recorded Runs")
		fmt.Fprintln(out, "===========================================")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Database: %s\n", path)
		fmt.Fprintf(out, "Runs: %d\n", len(runs))

		for _, r := range runs {
			links, err := db.CountLinks(ctx, r.RunID)
			if err != nil {
				return fmt.Errorf("failed to count links of run %s: %w", r.RunID, err)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Run %s\n", r.RunID)
			fmt.Fprintf(out, "  Created: %s\n", r.Created)
			fmt.Fprintf(out, "  Genomes: %s vs %s\n", r.QueryName, r.SubjectName)
			fmt.Fprintf(out, "  Alignments: %d\n", r.Alignments)
			fmt.Fprintf(out, "  Links: %d\n", links)
		}
		return nil
	},
}
