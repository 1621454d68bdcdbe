package acquisition

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"harvest/internal/catalog"
	"harvest/internal/config"
	"harvest/internal/logging"
	"harvest/internal/procexec"
	"harvest/internal/services"
)

// StageName labels acquisition in logs, errors, and the ledger.
const StageName = "acquisition"

// Outcome is the result of a successful acquisition.
type Outcome string

const (
	Cloned         Outcome = "cloned"
	AlreadyPresent Outcome = "already_present"
)

const (
	stagingSuffix  = ".harvest-tmp"
	replacedSuffix = ".harvest-old"
)

// Options configures a Stage.
type Options struct {
	CloneRoot         string
	MarkerDir         string
	RequireMarker     bool
	GitBinary         string
	RemoteURLTemplate string
	Depth             int
	Timeout           time.Duration
	DiagnosticLines   int
}

// OptionsFromConfig derives stage options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		CloneRoot:         cfg.Paths.CloneRoot,
		MarkerDir:         cfg.MarkerDir(),
		RequireMarker:     cfg.Acquisition.RequireMarker,
		GitBinary:         cfg.Acquisition.GitBinary,
		RemoteURLTemplate: cfg.Acquisition.RemoteURLTemplate,
		Depth:             cfg.Acquisition.Depth,
		Timeout:           cfg.AcquisitionTimeout(),
		DiagnosticLines:   cfg.Workflow.DiagnosticLines,
	}
}

// Stage clones catalog entries into the clone root.
type Stage struct {
	opts   Options
	runner procexec.Runner
	logger *slog.Logger
}

// New constructs an acquisition stage. A nil runner uses procexec.NewExec.
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

// TargetDir returns the working-copy directory for ref.
func (s *Stage) TargetDir(ref catalog.RepositoryRef) string {
	return filepath.Join(s.opts.CloneRoot, ref.Name)
}

// Acquire ensures a working copy of ref exists under the clone root.
// Failures are returned as *services.ItemError tagged ErrAcquisition, except
// for cancellation of ctx which is returned unchanged.
func (s *Stage) Acquire(ctx context.Context, ref catalog.RepositoryRef) (Outcome, error) {
	target := s.TargetDir(ref)
	logger := logging.WithContext(ctx, s.logger)

	present, err := s.workingCopyPresent(ref, target)
	if err != nil {
		return "", services.NewItemError(services.ErrAcquisition, StageName, ref.String(), "", err)
	}
	if present {
		logger.Debug("working copy already present", logging.String("path", target))
		return AlreadyPresent, nil
	}

	remote := ref.RemoteURL(s.opts.RemoteURLTemplate)
	// In marker mode the clone lands in a scratch sibling so an unmarked
	// working copy survives a failed clone.
	dest := target
	if s.opts.RequireMarker {
		dest = target + stagingSuffix
		if err := os.RemoveAll(dest); err != nil {
			return "", services.NewItemError(services.ErrAcquisition, StageName, ref.String(), "",
				fmt.Errorf("clear staging directory %q: %w", dest, err))
		}
	}
	logger.Debug("cloning repository",
		logging.String("remote", remote),
		logging.String("path", dest),
		logging.Int("depth", s.opts.Depth),
	)

	result, err := s.runner.Run(ctx, procexec.Request{
		Label:   "git clone",
		Binary:  s.opts.GitBinary,
		Args:    s.cloneArgs(remote, dest),
		Env:     []string{"GIT_TERMINAL_PROMPT=0"},
		Timeout: s.opts.Timeout,
	})
	if err != nil {
		if dest != target {
			_ = os.RemoveAll(dest)
		}
		if ctx.Err() != nil {
			return "", err
		}
		excerpt := services.Excerpt(result.Output, s.opts.DiagnosticLines)
		return "", services.NewItemError(services.ErrAcquisition, StageName, ref.String(), excerpt, err)
	}

	if s.opts.RequireMarker {
		if err := s.promote(ref, dest, target); err != nil {
			return "", services.NewItemError(services.ErrAcquisition, StageName, ref.String(), "", err)
		}
		if err := s.writeMarker(ref); err != nil {
			return "", services.NewItemError(services.ErrAcquisition, StageName, ref.String(), "", err)
		}
	}
	logger.Debug("clone finished", logging.Duration("duration", result.Duration))
	return Cloned, nil
}

// promote moves a finished clone from staging onto target. An unmarked copy
// already at target is set aside first and restored if the move fails.
func (s *Stage) promote(ref catalog.RepositoryRef, staging, target string) error {
	previous := target + replacedSuffix
	replacing := false
	if _, err := os.Stat(target); err == nil {
		if err := os.RemoveAll(previous); err != nil {
			return fmt.Errorf("clear %q: %w", previous, err)
		}
		if err := os.Rename(target, previous); err != nil {
			return fmt.Errorf("set aside unmarked working copy %q: %w", target, err)
		}
		replacing = true
	}
	if err := os.Rename(staging, target); err != nil {
		if replacing {
			_ = os.Rename(previous, target)
		}
		_ = os.RemoveAll(staging)
		return fmt.Errorf("move clone into %q: %w", target, err)
	}
	if replacing {
		s.logger.Warn("replaced unmarked working copy",
			logging.String(logging.FieldRepo, ref.String()),
			logging.String(logging.FieldEventType, "incomplete_clone"),
			logging.String("path", target),
		)
		if err := os.RemoveAll(previous); err != nil {
			s.logger.Warn("could not remove replaced working copy",
				logging.String(logging.FieldRepo, ref.String()),
				logging.String("path", previous),
				logging.Error(err),
			)
		}
	}
	return nil
}

func (s *Stage) cloneArgs(remote, target string) []string {
	args := []string{"clone"}
	if s.opts.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(s.opts.Depth))
	}
	return append(args, remote, target)
}

func (s *Stage) workingCopyPresent(ref catalog.RepositoryRef, target string) (bool, error) {
	info, err := os.Stat(target)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("inspect working copy %q: %w", target, err)
	case !info.IsDir():
		return false, fmt.Errorf("working copy path %q exists and is not a directory", target)
	}
	if !s.opts.RequireMarker {
		return true, nil
	}

	if _, err := os.Stat(s.markerPath(ref)); err == nil {
		return true, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("inspect completion marker: %w", err)
	}
	s.logger.Info("working copy has no completion marker; cloning again",
		logging.String(logging.FieldRepo, ref.String()),
		logging.String(logging.FieldEventType, "incomplete_clone"),
		logging.String("path", target),
	)
	return false, nil
}

func (s *Stage) markerPath(ref catalog.RepositoryRef) string {
	return filepath.Join(s.opts.MarkerDir, ref.SafeIdentifier()+".done")
}

func (s *Stage) writeMarker(ref catalog.RepositoryRef) error {
	if err := os.MkdirAll(s.opts.MarkerDir, 0o755); err != nil {
		return fmt.Errorf("create marker directory: %w", err)
	}
	stamp := time.Now().UTC().Format(time.RFC3339) + "\n"
	if err := os.WriteFile(s.markerPath(ref), []byte(stamp), 0o644); err != nil {
		return fmt.Errorf("write completion marker: %w", err)
	}
	return nil
}

// Binary reports the configured version-control client.
func (s *Stage) Binary() string {
	return strings.TrimSpace(s.opts.GitBinary)
}
