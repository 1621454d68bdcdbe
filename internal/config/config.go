package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories harvest reads and writes.
type Paths struct {
	CloneRoot  string `toml:"clone_root"`
	ExportRoot string `toml:"export_root"`
	StateDir   string `toml:"state_dir"`
}

// Catalog selects the repository catalog. An empty file uses the catalog
// compiled into the binary.
type Catalog struct {
	File string `toml:"file"`
}

// Acquisition contains version-control client settings.
type Acquisition struct {
	GitBinary         string `toml:"git_binary"`
	RemoteURLTemplate string `toml:"remote_url_template"`
	Depth             int    `toml:"depth"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	// RequireMarker treats a working copy as complete only when the clone
	// finished in a previous run, instead of trusting directory existence.
	RequireMarker bool `toml:"require_marker"`
}

// Export contains flattening tool settings. Args may reference the {input}
// and {output} placeholders.
type Export struct {
	Binary         string   `toml:"binary"`
	Args           []string `toml:"args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Workflow contains batch scheduling and reporting settings.
type Workflow struct {
	Workers         int  `toml:"workers"`
	DiagnosticLines int  `toml:"diagnostic_lines"`
	ProgressBar     bool `toml:"progress_bar"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for harvest.
//
// Configuration sections by subsystem:
//   - Paths: clone root, export root, state directory (logs, ledger, lock)
//   - Catalog: optional catalog file override
//   - Acquisition: git client, remote URL template, clone depth and timeout
//   - Export: flattening tool command line and timeout
//   - Workflow: worker count, diagnostic excerpt length, progress display
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Catalog     Catalog     `toml:"catalog"`
	Acquisition Acquisition `toml:"acquisition"`
	Export      Export      `toml:"export"`
	Workflow    Workflow    `toml:"workflow"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/harvest/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("harvest.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory used for logs, the ledger and
// the run lock. The clone and export roots are created by the batch controller
// so that failures there surface as environment errors for the run.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.StateDir, err)
	}
	return nil
}

// LogPath is the file the run log is teed into.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "harvest.log")
}

// LedgerPath is the SQLite database holding run history.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// LockPath is the advisory lock file that keeps runs from overlapping.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "harvest.lock")
}

// MarkerDir holds clone completion markers when acquisition.require_marker is set.
func (c *Config) MarkerDir() string {
	return filepath.Join(c.Paths.StateDir, "markers")
}

// AcquisitionTimeout converts the configured clone timeout; zero disables it.
func (c *Config) AcquisitionTimeout() time.Duration {
	return time.Duration(c.Acquisition.TimeoutSeconds) * time.Second
}

// ExportTimeout converts the configured flatten timeout; zero disables it.
func (c *Config) ExportTimeout() time.Duration {
	return time.Duration(c.Export.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
