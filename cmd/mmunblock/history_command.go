package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mmunblock/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs and their outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if id := strings.TrimSpace(runID); id != "" {
				outcomes, err := store.Outcomes(cmd.Context(), id)
				if err != nil {
					return err
				}
				if len(outcomes) == 0 {
					fmt.Fprintf(out, "No outcomes recorded for run %s\n", id)
					return nil
				}
				rows := make([][]string, 0, len(outcomes))
				for _, o := range outcomes {
					rows = append(rows, []string{o.Key, o.Address, o.Outcome, o.Detail})
				}
				fmt.Fprintln(out, renderTable([]column{
					{title: "Key"}, {title: "Address"}, {title: "Outcome"}, {title: "Detail", maxWidth: 60},
				}, rows))
				return nil
			}

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.ListName,
					runMode(run),
					run.Keys,
					strconv.Itoa(run.Total),
					strconv.Itoa(problemCount(run)),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{title: "Run"},
				{title: "Started"},
				{title: "List"},
				{title: "Mode"},
				{title: "Keys", maxWidth: 20},
				{title: "Total", right: true},
				{title: "Problems", right: true},
			}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show the outcomes of one run")
	return cmd
}

func runMode(run history.Run) string {
	mode := "live"
	if run.DryRun {
		mode = "dry-run"
	}
	if run.Interrupted {
		mode += " (interrupted)"
	}
	return mode
}

func problemCount(run history.Run) int {
	return run.Counts["failed"] + run.Counts["skipped"] + run.Counts["fallback exhausted"]
}
