package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"harvest/internal/harvest"
	"harvest/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs recorded in the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if id := strings.TrimSpace(runID); id != "" {
				return renderRunDetail(cmd, store, id)
			}

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					humanize.Time(run.StartedAt),
					string(run.Status),
					formatRunDuration(run),
					strconv.Itoa(run.Total),
					strconv.Itoa(run.Counts.Cloned),
					strconv.Itoa(run.Counts.AlreadyPresent),
					strconv.Itoa(run.Counts.CloneFailed + run.Counts.ExportFailed),
					strconv.Itoa(run.ArtifactCount),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Status", "Duration", "Total", "Cloned", "Present", "Failed", "Artifacts"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show per-repository results for one run")
	return cmd
}

func renderRunDetail(cmd *cobra.Command, store *ledger.Store, id string) error {
	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	items, err := store.RunItems(cmd.Context(), run.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s), started %s\n", run.ID, run.Status, run.StartedAt.Local().Format(time.RFC1123))
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.Itoa(item.Position + 1),
			item.Ref,
			harvest.Outcome(item.Acquisition).Label(),
			harvest.Outcome(item.Export).Label(),
			item.Duration.Round(time.Millisecond).String(),
			item.ErrorMessage,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Repository", "Acquisition", "Export", "Duration", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}

func formatRunDuration(run ledger.Run) string {
	if run.FinishedAt.IsZero() {
		return "-"
	}
	return run.Duration().Round(time.Second).String()
}
