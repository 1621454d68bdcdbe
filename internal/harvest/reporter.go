package harvest

import (
	"fmt"
	"io"
	"strings"

	"github.com/cheggaaa/pb/v3"

	"harvest/internal/catalog"
	"harvest/internal/services"
)

// Reporter receives run progress. The controller serializes calls.
// ItemStarted gets the 1-based catalog position; ItemFinished gets the
// number of entries finished so far, which differs under a worker pool.
type Reporter interface {
	RunStarted(runID string, total int)
	ItemStarted(position, total int, ref catalog.RepositoryRef)
	ItemFinished(done, total int, result ItemResult)
	RunFinished(summary *Summary)
}

// NopReporter discards progress.
type NopReporter struct{}

func (NopReporter) RunStarted(string, int)                      {}
func (NopReporter) ItemStarted(int, int, catalog.RepositoryRef) {}
func (NopReporter) ItemFinished(int, int, ItemResult)           {}
func (NopReporter) RunFinished(*Summary)                        {}

// LineReporter prints a line when an entry starts and one when it finishes,
// followed by the diagnostic excerpt of any failure.
type LineReporter struct {
	w io.Writer
}

// NewLineReporter returns a LineReporter writing to w.
func NewLineReporter(w io.Writer) *LineReporter {
	return &LineReporter{w: w}
}

func (r *LineReporter) RunStarted(runID string, total int) {
	fmt.Fprintf(r.w, "Harvesting %d repositories (run %s)\n", total, runID)
}

func (r *LineReporter) ItemStarted(position, total int, ref catalog.RepositoryRef) {
	fmt.Fprintf(r.w, "[%d/%d] %s: started\n", position, total, ref)
}

func (r *LineReporter) ItemFinished(done, total int, result ItemResult) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d/%d] %s: %s", done, total, result.Ref, result.Acquisition.Label())
	if result.Export != "" {
		fmt.Fprintf(&b, ", %s", result.Export.Label())
	}
	b.WriteByte('\n')
	if result.Err != nil {
		details := services.ErrorDetails(result.Err)
		if details.Message != "" {
			fmt.Fprintf(&b, "    error: %s\n", details.Message)
		}
		for _, line := range strings.Split(details.Excerpt, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			fmt.Fprintf(&b, "    | %s\n", line)
		}
	}
	_, _ = io.WriteString(r.w, b.String())
}

func (r *LineReporter) RunFinished(summary *Summary) {
	if summary != nil && summary.Cancelled {
		fmt.Fprintf(r.w, "Run cancelled after %d of %d repositories\n", summary.Processed(), summary.Total)
	}
}

const barTemplate pb.ProgressBarTemplate = `{{counters . }} {{bar . }} {{percent . }} {{etime . }} {{string . "prefix"}}`

// BarReporter renders a terminal progress bar. Failures are listed once the
// bar finishes so they do not interleave with redraws.
type BarReporter struct {
	w        io.Writer
	bar      *pb.ProgressBar
	failures []ItemResult
}

// NewBarReporter returns a BarReporter drawing to w.
func NewBarReporter(w io.Writer) *BarReporter {
	return &BarReporter{w: w}
}

func (r *BarReporter) RunStarted(_ string, total int) {
	r.bar = barTemplate.New(total)
	r.bar.SetWriter(r.w)
	r.bar.Start()
}

func (r *BarReporter) ItemStarted(_, _ int, ref catalog.RepositoryRef) {
	if r.bar != nil {
		r.bar.Set("prefix", ref.String())
	}
}

func (r *BarReporter) ItemFinished(_, _ int, result ItemResult) {
	if result.Failed() {
		r.failures = append(r.failures, result)
	}
	if r.bar == nil {
		return
	}
	r.bar.Increment()
}

func (r *BarReporter) RunFinished(summary *Summary) {
	if r.bar != nil {
		r.bar.Set("prefix", "")
		r.bar.Finish()
	}
	total := 0
	if summary != nil {
		total = summary.Total
	}
	lines := NewLineReporter(r.w)
	for _, failure := range r.failures {
		lines.ItemFinished(failure.Index+1, total, failure)
	}
	lines.RunFinished(summary)
}

var (
	_ Reporter = NopReporter{}
	_ Reporter = (*LineReporter)(nil)
	_ Reporter = (*BarReporter)(nil)
)
