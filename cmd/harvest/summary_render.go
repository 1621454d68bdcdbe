package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"harvest/internal/harvest"
	"harvest/internal/services"
)

func renderSummary(summary *harvest.Summary, exportRoot string, colorize bool) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(renderSectionHeader("Run summary", colorize))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Run %s: %d of %d repositories processed in %s\n",
		summary.RunID, summary.Processed(), summary.Total, summary.Duration().Round(time.Millisecond))
	if summary.Cancelled {
		b.WriteString(renderCancelledLine(summary.Processed(), summary.Total, colorize))
		b.WriteString("\n")
	}

	rows := make([][]string, 0, len(harvest.Outcomes()))
	for _, outcome := range harvest.Outcomes() {
		rows = append(rows, []string{outcome.Label(), strconv.Itoa(summary.Count(outcome))})
	}
	b.WriteString(renderTable([]string{"Outcome", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	b.WriteString("\n")

	if failed := summary.FailedItems(); len(failed) > 0 {
		b.WriteString("\n")
		b.WriteString(renderSectionHeader("Failures", colorize))
		b.WriteString("\n")
		for _, item := range failed {
			details := services.ErrorDetails(item.Err)
			b.WriteString(renderItemLine(item, failureMessage(details), colorize))
			b.WriteString("\n")
			for _, line := range strings.Split(details.Excerpt, "\n") {
				if strings.TrimSpace(line) != "" {
					fmt.Fprintf(&b, "%s    | %s\n", statusIndent, line)
				}
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(renderSectionHeader("Export root "+exportRoot, colorize))
	b.WriteString("\n")
	if len(summary.Artifacts) == 0 {
		b.WriteString("(empty)\n")
		return b.String()
	}
	artifactRows := make([][]string, 0, len(summary.Artifacts))
	var total int64
	for _, artifact := range summary.Artifacts {
		total += artifact.Size
		artifactRows = append(artifactRows, []string{
			artifact.Name,
			humanize.IBytes(uint64(artifact.Size)),
			artifact.ModTime.Local().Format("2006-01-02 15:04:05"),
		})
	}
	b.WriteString(renderTable(
		[]string{"Artifact", "Size", "Modified"},
		artifactRows,
		[]columnAlignment{alignLeft, alignRight, alignLeft},
		fmt.Sprintf("%d files", len(summary.Artifacts)), humanize.IBytes(uint64(total)), "",
	))
	b.WriteString("\n")
	return b.String()
}

func failureMessage(details services.Details) string {
	switch {
	case details.Message != "":
		return details.Message
	case details.Stage != "":
		return details.Stage + " failed"
	default:
		return ""
	}
}
