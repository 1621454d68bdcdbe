package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"harvest/internal/export"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List catalog entries with their working copy and artifact state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cat, err := ctx.ensureCatalog()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, cat.Len())
			for i, ref := range cat.Entries() {
				workingCopy := filepath.Join(cfg.Paths.CloneRoot, ref.Name)
				artifact := export.ArtifactPath(cfg.Paths.ExportRoot, ref.SafeIdentifier())
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					ref.String(),
					presence(workingCopy, true),
					presence(artifact, false),
					ref.RemoteURL(cfg.Acquisition.RemoteURLTemplate),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Repository", "Working copy", "Artifact", "Remote"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func presence(path string, wantDir bool) string {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return "missing"
	case wantDir != info.IsDir():
		return "conflict"
	default:
		return "present"
	}
}
