package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"harvest/internal/config"
	"harvest/internal/harvestrun"
)

type runFlags struct {
	workers    int
	catalog    string
	noProgress bool
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var flags runFlags

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:   "harvest",
		Short: "Clone a fixed catalog of repositories and flatten each into a text artifact",
		Long: `harvest clones every repository in its catalog into the clone root (skipping
ones that already have a working copy) and runs a flattening tool over each
working copy, writing <owner>_<name>.txt into the export root.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg, flags); err != nil {
				return err
			}
			return runHarvest(cmd, cfg)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Number of repositories processed concurrently (overrides workflow.workers)")
	rootCmd.Flags().StringVar(&flags.catalog, "catalog", "", "Catalog YAML file (overrides catalog.file)")
	rootCmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "Print one line per repository instead of a progress bar")

	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newCatalogCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))

	return rootCmd
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config, flags runFlags) error {
	if cmd.Flags().Changed("workers") {
		if flags.workers < 1 {
			return fmt.Errorf("--workers must be at least 1")
		}
		cfg.Workflow.Workers = flags.workers
	}
	if path := strings.TrimSpace(flags.catalog); path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return fmt.Errorf("resolve catalog path: %w", err)
		}
		cfg.Catalog.File = expanded
	}
	if flags.noProgress {
		cfg.Workflow.ProgressBar = false
	}
	return nil
}

func runHarvest(cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()
	summary, err := harvestrun.Run(cmd.Context(), cfg, harvestrun.Options{
		Stdout:      out,
		Interactive: out == os.Stdout && shouldColorize(out),
	})
	if summary != nil {
		fmt.Fprint(out, renderSummary(summary, cfg.Paths.ExportRoot, shouldColorize(out)))
	}
	return err
}
