package harvest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"harvest/internal/catalog"
	"harvest/internal/ledger"
)

// ItemResult is the record of one processed catalog entry.
type ItemResult struct {
	Index       int
	Ref         catalog.RepositoryRef
	Acquisition Outcome
	// Export is empty when acquisition failed and export was skipped.
	Export   Outcome
	Artifact string
	Err      error
	Duration time.Duration
}

// Failed reports whether either stage failed for this entry.
func (r ItemResult) Failed() bool {
	return r.Acquisition.Failed() || r.Export.Failed()
}

// Artifact is one entry of the export root listing.
type Artifact struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Summary describes a finished (or cancelled) run.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	// Total is the catalog size; Items holds only the entries that finished.
	Total     int
	Counts    map[Outcome]int
	Items     []ItemResult
	Artifacts []Artifact
	Cancelled bool
}

// Count returns how many entries recorded outcome o.
func (s *Summary) Count(o Outcome) int {
	if s == nil || s.Counts == nil {
		return 0
	}
	return s.Counts[o]
}

// Processed returns how many entries finished both applicable stages.
func (s *Summary) Processed() int {
	if s == nil {
		return 0
	}
	return len(s.Items)
}

// FailedItems returns the entries with a stage failure, in catalog order.
func (s *Summary) FailedItems() []ItemResult {
	if s == nil {
		return nil
	}
	var failed []ItemResult
	for _, item := range s.Items {
		if item.Failed() {
			failed = append(failed, item)
		}
	}
	return failed
}

// Duration returns the wall-clock length of the run.
func (s *Summary) Duration() time.Duration {
	if s == nil || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

func (s *Summary) tally() {
	s.Counts = make(map[Outcome]int, len(Outcomes()))
	for _, o := range Outcomes() {
		s.Counts[o] = 0
	}
	for _, item := range s.Items {
		s.Counts[item.Acquisition]++
		if item.Export != "" {
			s.Counts[item.Export]++
		}
	}
}

func (s *Summary) ledgerRun() ledger.Run {
	status := ledger.RunCompleted
	if s.Cancelled {
		status = ledger.RunCancelled
	}
	return ledger.Run{
		ID:         s.RunID,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Status:     status,
		Total:      s.Total,
		Counts: ledger.Counts{
			Cloned:          s.Count(Cloned),
			AlreadyPresent:  s.Count(AlreadyPresent),
			CloneFailed:     s.Count(CloneFailed),
			ExportSucceeded: s.Count(ExportSucceeded),
			ExportFailed:    s.Count(ExportFailed),
		},
		ArtifactCount: len(s.Artifacts),
	}
}

// ListArtifacts returns the regular files in root, sorted by name. A missing
// root yields an empty listing.
func ListArtifacts(root string) ([]Artifact, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list export root: %w", err)
	}
	artifacts := make([]Artifact, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat artifact %s: %w", entry.Name(), err)
		}
		artifacts = append(artifacts, Artifact{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return artifacts, nil
}
