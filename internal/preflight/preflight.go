package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"harvest/internal/config"
	"harvest/internal/deps"
	"harvest/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Requirements lists the tools the configured pipeline invokes.
func Requirements(cfg *config.Config) []deps.Requirement {
	return []deps.Requirement{
		{
			Name:        "git",
			Command:     cfg.Acquisition.GitBinary,
			Description: "Required to clone repositories",
		},
		{
			Name:        "Flattener",
			Command:     cfg.Export.Binary,
			Description: "Required to export working copies",
		},
	}
}

// CheckSystemDeps evaluates the tool requirements for cfg.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(Requirements(cfg))
}

// RequireTools returns an environment error naming every required tool that
// cannot be found.
func RequireTools(cfg *config.Config) error {
	missing := deps.Missing(CheckSystemDeps(cfg))
	if len(missing) == 0 {
		return nil
	}
	parts := make([]string, 0, len(missing))
	for _, status := range missing {
		parts = append(parts, fmt.Sprintf("%s (%s)", status.Name, status.Detail))
	}
	return services.Wrap(services.ErrEnvironment, "preflight", "tools",
		"missing "+strings.Join(parts, ", "), nil)
}

// RunAll executes every check for cfg: tool availability followed by the
// clone root, export root, and state directory.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, resultFromStatus(status))
	}
	results = append(results,
		CheckCreatableDirectory("Clone root", cfg.Paths.CloneRoot),
		CheckCreatableDirectory("Export root", cfg.Paths.ExportRoot),
		CheckCreatableDirectory("State directory", cfg.Paths.StateDir),
	)
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return true
		}
	}
	return false
}

func resultFromStatus(status deps.Status) Result {
	if status.Available {
		return Result{Name: status.Name, Passed: true, Detail: status.Path}
	}
	detail := status.Detail
	if status.Description != "" {
		detail = fmt.Sprintf("%s; %s", detail, strings.ToLower(status.Description))
	}
	return Result{Name: status.Name, Detail: detail}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatableDirectory passes when path is an accessible directory, or
// when it does not exist yet but its nearest existing ancestor is writable.
func CheckCreatableDirectory(name, path string) Result {
	if _, err := os.Stat(path); err == nil || !errors.Is(err, fs.ErrNotExist) {
		return CheckDirectoryAccess(name, path)
	}
	ancestor := filepath.Dir(path)
	for {
		info, err := os.Stat(ancestor)
		if err == nil {
			if !info.IsDir() {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s is not a directory)", path, ancestor)}
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat %s: %v)", path, ancestor, err)}
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			break
		}
		ancestor = parent
	}
	if err := unix.Access(ancestor, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, ancestor, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}
