package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"harvest/internal/acquisition"
	"harvest/internal/catalog"
	"harvest/internal/export"
	"harvest/internal/ledger"
	"harvest/internal/logging"
	"harvest/internal/services"
	"harvest/internal/stageexec"
)

// Acquirer ensures a working copy exists for a catalog entry.
type Acquirer interface {
	Acquire(ctx context.Context, ref catalog.RepositoryRef) (acquisition.Outcome, error)
	TargetDir(ref catalog.RepositoryRef) string
}

// Exporter flattens a working copy into an artifact.
type Exporter interface {
	Export(ctx context.Context, localPath, safeIdentifier string) (export.Outcome, error)
}

// Recorder persists run history.
type Recorder interface {
	BeginRun(ctx context.Context, id string, startedAt time.Time, total int) (string, error)
	RecordItem(ctx context.Context, item ledger.Item) error
	FinishRun(ctx context.Context, run ledger.Run) error
}

// Options configures a Controller. All fields except Catalog, Acquirer,
// Exporter, CloneRoot and ExportRoot are optional.
type Options struct {
	Catalog    *catalog.Catalog
	Acquirer   Acquirer
	Exporter   Exporter
	CloneRoot  string
	ExportRoot string
	// LockPath guards the roots against a concurrent run. Empty disables it.
	LockPath string
	Ledger   Recorder
	Reporter Reporter
	Logger   *slog.Logger
	Workers  int
	// RunID overrides the generated run identifier.
	RunID string
}

// Controller runs the catalog through acquisition and export.
type Controller struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	results []ItemResult
	done    []bool
	count   int
}

// NewController validates opts and returns a Controller.
func NewController(opts Options) (*Controller, error) {
	var missing []string
	if opts.Catalog == nil {
		missing = append(missing, "catalog")
	}
	if opts.Acquirer == nil {
		missing = append(missing, "acquirer")
	}
	if opts.Exporter == nil {
		missing = append(missing, "exporter")
	}
	if strings.TrimSpace(opts.CloneRoot) == "" {
		missing = append(missing, "clone root")
	}
	if strings.TrimSpace(opts.ExportRoot) == "" {
		missing = append(missing, "export root")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("controller requires %s", strings.Join(missing, ", "))
	}
	if opts.Reporter == nil {
		opts.Reporter = NopReporter{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Controller{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "controller"),
	}, nil
}

// Run processes every catalog entry once and returns the run summary.
//
// A non-nil error with a nil summary means the run never started: the lock
// was held, a root could not be created, or the ledger refused the run.
// Per-entry failures never surface as an error. When ctx is cancelled no new
// entries are started, entries in flight are abandoned, and Run returns the
// partial summary together with the context error.
func (c *Controller) Run(ctx context.Context) (*Summary, error) {
	if c.opts.LockPath != "" {
		lock := flock.New(c.opts.LockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return nil, services.Wrap(services.ErrEnvironment, "controller", "lock", c.opts.LockPath, err)
		}
		if !ok {
			return nil, services.Wrap(services.ErrEnvironment, "controller", "lock",
				"another harvest run is already using "+c.opts.LockPath, nil)
		}
		defer func() { _ = lock.Unlock() }()
	}

	for _, root := range []struct{ name, path string }{
		{"clone root", c.opts.CloneRoot},
		{"export root", c.opts.ExportRoot},
	} {
		if err := os.MkdirAll(root.path, 0o755); err != nil {
			return nil, services.Wrap(services.ErrEnvironment, "controller", "create "+root.name, root.path, err)
		}
	}

	refs := c.opts.Catalog.Entries()
	runID := strings.TrimSpace(c.opts.RunID)
	if runID == "" {
		runID = ledger.NewRunID()
	}
	summary := &Summary{
		RunID:     runID,
		StartedAt: time.Now(),
		Total:     len(refs),
	}

	if c.opts.Ledger != nil {
		if _, err := c.opts.Ledger.BeginRun(ctx, runID, summary.StartedAt, len(refs)); err != nil {
			return nil, services.Wrap(services.ErrEnvironment, "controller", "ledger", "record run start", err)
		}
	}

	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, c.logger)
	logger.Info("harvest run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("repositories", len(refs)),
		logging.Int("workers", c.opts.Workers),
		logging.String("clone_root", c.opts.CloneRoot),
		logging.String("export_root", c.opts.ExportRoot),
	)
	c.opts.Reporter.RunStarted(runID, len(refs))

	c.results = make([]ItemResult, len(refs))
	c.done = make([]bool, len(refs))
	c.count = 0

	if c.opts.Workers > 1 && len(refs) > 1 {
		c.runPool(ctx, refs)
	} else {
		for i, ref := range refs {
			if ctx.Err() != nil {
				break
			}
			c.process(ctx, i, ref)
		}
	}

	// Cleanup must survive cancellation of the run context.
	finishCtx := context.WithoutCancel(ctx)
	summary.Cancelled = ctx.Err() != nil
	for i, ok := range c.done {
		if ok {
			summary.Items = append(summary.Items, c.results[i])
		}
	}
	summary.tally()

	artifacts, err := ListArtifacts(c.opts.ExportRoot)
	if err != nil {
		logging.WarnWithContext(logger, "export root listing failed", "artifact_listing_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the export root"),
		)
	}
	summary.Artifacts = artifacts
	summary.FinishedAt = time.Now()

	if c.opts.Ledger != nil {
		if err := c.opts.Ledger.FinishRun(finishCtx, summary.ledgerRun()); err != nil {
			logging.WarnWithContext(logger, "ledger update failed", "ledger_write_failed", logging.Error(err))
		}
	}

	c.opts.Reporter.RunFinished(summary)
	logger.Info("harvest run finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("processed", summary.Processed()),
		logging.Int(string(Cloned), summary.Count(Cloned)),
		logging.Int(string(AlreadyPresent), summary.Count(AlreadyPresent)),
		logging.Int(string(CloneFailed), summary.Count(CloneFailed)),
		logging.Int(string(ExportSucceeded), summary.Count(ExportSucceeded)),
		logging.Int(string(ExportFailed), summary.Count(ExportFailed)),
		logging.Int("artifacts", len(summary.Artifacts)),
		logging.Bool("cancelled", summary.Cancelled),
		logging.Duration("duration", summary.Duration()),
	)

	if summary.Cancelled {
		return summary, ctx.Err()
	}
	return summary, nil
}

func (c *Controller) runPool(ctx context.Context, refs []catalog.RepositoryRef) {
	jobs := make(chan int)
	var wg sync.WaitGroup
	for range min(c.opts.Workers, len(refs)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c.process(ctx, i, refs[i])
			}
		}()
	}

feed:
	for i := range refs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
}

// process runs both stages for one entry. Entries interrupted by
// cancellation are dropped rather than recorded as failures.
func (c *Controller) process(ctx context.Context, index int, ref catalog.RepositoryRef) {
	if ctx.Err() != nil {
		return
	}
	c.mu.Lock()
	c.opts.Reporter.ItemStarted(index+1, len(c.results), ref)
	c.mu.Unlock()

	itemCtx := services.WithRepo(ctx, ref.String())
	started := time.Now()
	result := ItemResult{Index: index, Ref: ref}

	acquired, err := stageexec.Run(itemCtx, stageexec.Options{
		Logger:    c.opts.Logger,
		StageName: acquisition.StageName,
		ErrorHint: "check that the repository exists and is public",
	}, func(ctx context.Context) (acquisition.Outcome, error) {
		return c.opts.Acquirer.Acquire(ctx, ref)
	})
	if err != nil {
		if isInterrupted(ctx, err) {
			return
		}
		result.Acquisition = CloneFailed
		result.Err = err
		result.Duration = time.Since(started)
		c.complete(ctx, result)
		return
	}
	result.Acquisition = fromAcquisition(acquired)

	exported, err := stageexec.Run(itemCtx, stageexec.Options{
		Logger:    c.opts.Logger,
		StageName: export.StageName,
		ErrorHint: "inspect the flattening tool output",
	}, func(ctx context.Context) (export.Outcome, error) {
		return c.opts.Exporter.Export(ctx, c.opts.Acquirer.TargetDir(ref), ref.SafeIdentifier())
	})
	if err != nil && isInterrupted(ctx, err) {
		return
	}
	result.Export = fromExport(exported)
	if err != nil {
		result.Export = ExportFailed
		result.Err = err
	}
	result.Artifact = export.ArtifactPath(c.opts.ExportRoot, ref.SafeIdentifier())
	result.Duration = time.Since(started)
	c.complete(ctx, result)
}

func isInterrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

func (c *Controller) complete(ctx context.Context, result ItemResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.results[result.Index] = result
	c.done[result.Index] = true
	c.count++

	if c.opts.Ledger != nil {
		item := ledger.Item{
			RunID:       runIDFrom(ctx),
			Position:    result.Index,
			Ref:         result.Ref.String(),
			Acquisition: string(result.Acquisition),
			Export:      string(result.Export),
			Duration:    result.Duration,
		}
		if result.Err != nil {
			details := services.ErrorDetails(result.Err)
			item.ErrorMessage = details.Message
			item.Excerpt = details.Excerpt
		}
		if err := c.opts.Ledger.RecordItem(context.WithoutCancel(ctx), item); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, c.logger), "ledger item write failed", "ledger_write_failed",
				logging.String(logging.FieldRepo, result.Ref.String()),
				logging.Error(err),
			)
		}
	}
	c.opts.Reporter.ItemFinished(c.count, len(c.results), result)
}

func runIDFrom(ctx context.Context) string {
	id, _ := services.RunIDFromContext(ctx)
	return id
}
