package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"harvest/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify required tools and directories before a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cfg)
			fmt.Fprintln(out, renderSectionHeader("Preflight", colorize))
			lines := make([]string, 0, len(results))
			for _, result := range results {
				lines = append(lines, renderCheckLine(result, colorize))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if preflight.Failed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
}
