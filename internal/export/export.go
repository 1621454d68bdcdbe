package export

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"harvest/internal/config"
	"harvest/internal/logging"
	"harvest/internal/procexec"
	"harvest/internal/services"
)

// StageName labels export in logs, errors, and the ledger.
const StageName = "export"

// ArtifactExtension is appended to the safe identifier to name artifacts.
const ArtifactExtension = ".txt"

const (
	placeholderInput  = "{input}"
	placeholderOutput = "{output}"
)

// Outcome is the result of an export attempt.
type Outcome string

const (
	Succeeded Outcome = "succeeded"
	Failed    Outcome = "failed"
)

// Options configures a Stage.
type Options struct {
	ExportRoot      string
	Binary          string
	Args            []string
	Timeout         time.Duration
	DiagnosticLines int
}

// OptionsFromConfig derives stage options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ExportRoot:      cfg.Paths.ExportRoot,
		Binary:          cfg.Export.Binary,
		Args:            append([]string(nil), cfg.Export.Args...),
		Timeout:         cfg.ExportTimeout(),
		DiagnosticLines: cfg.Workflow.DiagnosticLines,
	}
}

// ArtifactPath returns the artifact location for a safe identifier.
func ArtifactPath(root, safeIdentifier string) string {
	return filepath.Join(root, safeIdentifier+ArtifactExtension)
}

// Stage runs the flattening tool against working copies.
type Stage struct {
	opts   Options
	runner procexec.Runner
	logger *slog.Logger
}

// New constructs an export stage. A nil runner uses procexec.NewExec.
func New(opts Options, runner procexec.Runner, logger *slog.Logger) *Stage {
	if runner == nil {
		runner = procexec.NewExec()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		opts:   opts,
		runner: runner,
		logger: logging.NewComponentLogger(logger, StageName),
	}
}

// Binary reports the configured flattening tool.
func (s *Stage) Binary() string {
	return strings.TrimSpace(s.opts.Binary)
}

// Export flattens localPath into the artifact for safeIdentifier. A failed
// run leaves any partially written artifact in place and returns Failed with
// a *services.ItemError tagged ErrExport. Cancellation of ctx is returned
// unchanged.
func (s *Stage) Export(ctx context.Context, localPath, safeIdentifier string) (Outcome, error) {
	output := ArtifactPath(s.opts.ExportRoot, safeIdentifier)
	args := s.commandArgs(localPath, output)
	logger := logging.WithContext(ctx, s.logger)
	logger.Debug("flattening working copy",
		logging.String("input", localPath),
		logging.String("output", output),
	)

	result, err := s.runner.Run(ctx, procexec.Request{
		Label:   "flatten",
		Binary:  s.opts.Binary,
		Args:    args,
		Timeout: s.opts.Timeout,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Failed, err
		}
		ref, _ := services.RepoFromContext(ctx)
		if ref == "" {
			ref = safeIdentifier
		}
		excerpt := services.Excerpt(result.Output, s.opts.DiagnosticLines)
		return Failed, services.NewItemError(services.ErrExport, StageName, ref, excerpt, err)
	}
	logger.Debug("artifact written",
		logging.String("output", output),
		logging.Duration("duration", result.Duration),
	)
	return Succeeded, nil
}

func (s *Stage) commandArgs(input, output string) []string {
	replacer := strings.NewReplacer(placeholderInput, input, placeholderOutput, output)
	args := make([]string, 0, len(s.opts.Args))
	for _, arg := range s.opts.Args {
		args = append(args, replacer.Replace(arg))
	}
	return args
}
