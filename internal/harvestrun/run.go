package harvestrun

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"harvest/internal/acquisition"
	"harvest/internal/catalog"
	"harvest/internal/config"
	"harvest/internal/export"
	"harvest/internal/harvest"
	"harvest/internal/ledger"
	"harvest/internal/logging"
	"harvest/internal/preflight"
	"harvest/internal/procexec"
	"harvest/internal/services"
)

// Options configures batch process runtime behavior.
type Options struct {
	// Stdout receives progress output. Defaults to os.Stdout.
	Stdout io.Writer
	// Interactive enables the progress bar when the config allows it.
	Interactive bool
	// Logger overrides the logger built from config.
	Logger *slog.Logger
}

// Run performs one batch run for cfg.
//
// Fatal checks happen in a fixed order so that a bad catalog leaves the
// filesystem untouched: catalog, required tools, state directory, ledger.
// SIGINT and SIGTERM cancel the run; the partial summary is still returned.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) (*harvest.Summary, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cat, err := catalog.Resolve(cfg.Catalog.File)
	if err != nil {
		return nil, err
	}
	if err := preflight.RequireTools(cfg); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrEnvironment, "harvest", "state directory", cfg.Paths.StateDir, err)
	}

	logger := opts.Logger
	if logger == nil {
		var closeLog func() error
		logger, closeLog, err = logging.NewFromConfig(cfg)
		if err != nil {
			return nil, services.Wrap(services.ErrEnvironment, "harvest", "init logger", cfg.LogPath(), err)
		}
		defer func() { _ = closeLog() }()
	}
	logDependencySnapshot(logger, cfg)

	store, err := ledger.Open(cfg)
	if err != nil {
		return nil, services.Wrap(services.ErrEnvironment, "harvest", "open ledger", cfg.LedgerPath(), err)
	}
	defer store.Close()

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	var reporter harvest.Reporter = harvest.NewLineReporter(stdout)
	if opts.Interactive && cfg.Workflow.ProgressBar {
		reporter = harvest.NewBarReporter(stdout)
	}

	runner := procexec.NewExec()
	controller, err := harvest.NewController(harvest.Options{
		Catalog:    cat,
		Acquirer:   acquisition.New(acquisition.OptionsFromConfig(cfg), runner, logger),
		Exporter:   export.New(export.OptionsFromConfig(cfg), runner, logger),
		CloneRoot:  cfg.Paths.CloneRoot,
		ExportRoot: cfg.Paths.ExportRoot,
		LockPath:   cfg.LockPath(),
		Ledger:     store,
		Reporter:   reporter,
		Logger:     logger,
		Workers:    cfg.Workflow.Workers,
	})
	if err != nil {
		return nil, err
	}
	summary, err := controller.Run(signalCtx)
	if err != nil && services.IsFatal(err) {
		logging.ErrorWithContext(logger, "harvest run aborted", "run_aborted",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the environment and rerun"),
		)
	}
	return summary, err
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	for _, status := range preflight.CheckSystemDeps(cfg) {
		logger.Debug("dependency resolved",
			logging.String(logging.FieldEventType, "dependency_snapshot"),
			logging.String("dependency", status.Name),
			logging.String("command", status.Command),
			logging.String("path", status.Path),
			logging.Bool("available", status.Available),
		)
	}
}
