package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"harvest/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	workDir := t.TempDir()
	t.Chdir(workDir)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if want := filepath.Join(workDir, "repos"); cfg.Paths.CloneRoot != want {
		t.Fatalf("unexpected clone root: got %q want %q", cfg.Paths.CloneRoot, want)
	}
	if want := filepath.Join(workDir, "exports"); cfg.Paths.ExportRoot != want {
		t.Fatalf("unexpected export root: got %q want %q", cfg.Paths.ExportRoot, want)
	}
	if want := filepath.Join(workDir, ".harvest"); cfg.Paths.StateDir != want {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, want)
	}
	if cfg.Acquisition.GitBinary != "git" {
		t.Fatalf("unexpected git binary: %q", cfg.Acquisition.GitBinary)
	}
	if cfg.Acquisition.RequireMarker {
		t.Fatal("expected completion markers disabled by default")
	}
	if cfg.Workflow.Workers != 1 {
		t.Fatalf("expected sequential processing by default, got %d workers", cfg.Workflow.Workers)
	}
	if cfg.Catalog.File != "" {
		t.Fatalf("expected embedded catalog by default, got %q", cfg.Catalog.File)
	}
	if got := cfg.AcquisitionTimeout(); got != 600*time.Second {
		t.Fatalf("unexpected acquisition timeout: %s", got)
	}
	if cfg.LedgerPath() != filepath.Join(cfg.Paths.StateDir, "ledger.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.LedgerPath())
	}

	if _, err := os.Stat(cfg.Paths.StateDir); !os.IsNotExist(err) {
		t.Fatalf("expected Load to leave the filesystem untouched, stat err=%v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	info, err := os.Stat(cfg.Paths.StateDir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected state dir to exist: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "harvest.toml")

	type payload struct {
		Paths struct {
			CloneRoot  string `toml:"clone_root"`
			ExportRoot string `toml:"export_root"`
		} `toml:"paths"`
		Catalog struct {
			File string `toml:"file"`
		} `toml:"catalog"`
		Export struct {
			Binary string   `toml:"binary"`
			Args   []string `toml:"args"`
		} `toml:"export"`
		Workflow struct {
			Workers int `toml:"workers"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Paths.CloneRoot = filepath.Join(tempDir, "src")
	custom.Paths.ExportRoot = filepath.Join(tempDir, "out")
	custom.Catalog.File = filepath.Join(tempDir, "catalog.yaml")
	custom.Export.Binary = "files-to-prompt"
	custom.Export.Args = []string{" {input} ", "-o", "{output}"}
	custom.Workflow.Workers = 3
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.CloneRoot != custom.Paths.CloneRoot {
		t.Fatalf("expected clone root override, got %q", cfg.Paths.CloneRoot)
	}
	if cfg.Catalog.File != custom.Catalog.File {
		t.Fatalf("expected catalog file override, got %q", cfg.Catalog.File)
	}
	if cfg.Export.Binary != "files-to-prompt" {
		t.Fatalf("expected export binary override, got %q", cfg.Export.Binary)
	}
	if strings.Join(cfg.Export.Args, " ") != "{input} -o {output}" {
		t.Fatalf("expected trimmed export args, got %v", cfg.Export.Args)
	}
	if cfg.Workflow.Workers != 3 {
		t.Fatalf("expected 3 workers, got %d", cfg.Workflow.Workers)
	}
	if cfg.Acquisition.RemoteURLTemplate != config.Default().Acquisition.RemoteURLTemplate {
		t.Fatalf("expected default remote template, got %q", cfg.Acquisition.RemoteURLTemplate)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "harvest.toml")
	if err := os.WriteFile(configPath, []byte("[paths]\nclone_rot = \"typo\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestEnvOverridesBinaries(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("HARVEST_GIT_BINARY", "/opt/git/bin/git")
	t.Setenv("HARVEST_EXPORT_BINARY", " gitingest ")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Acquisition.GitBinary != "/opt/git/bin/git" {
		t.Errorf("expected git binary from env, got %q", cfg.Acquisition.GitBinary)
	}
	if cfg.Export.Binary != "gitingest" {
		t.Errorf("expected export binary from env, got %q", cfg.Export.Binary)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "remote_url_template") {
		t.Fatalf("sample config missing remote template: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Paths.CloneRoot != "repos" || cfg.Paths.ExportRoot != "exports" {
		t.Fatalf("unexpected sample paths: %#v", cfg.Paths)
	}
	if len(cfg.Export.Args) == 0 {
		t.Fatal("expected sample export args")
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	valid := func() config.Config {
		cfg := config.Default()
		cfg.Paths.CloneRoot = "/data/repos"
		cfg.Paths.ExportRoot = "/data/exports"
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"same roots", func(c *config.Config) { c.Paths.ExportRoot = c.Paths.CloneRoot }},
		{"export inside clone root", func(c *config.Config) { c.Paths.ExportRoot = "/data/repos/exports" }},
		{"template without name", func(c *config.Config) { c.Acquisition.RemoteURLTemplate = "https://example.com/{owner}" }},
		{"template without owner", func(c *config.Config) { c.Acquisition.RemoteURLTemplate = "https://example.com/mirror/{name}.git" }},
		{"negative depth", func(c *config.Config) { c.Acquisition.Depth = -1 }},
		{"negative clone timeout", func(c *config.Config) { c.Acquisition.TimeoutSeconds = -5 }},
		{"args without output", func(c *config.Config) { c.Export.Args = []string{"{input}"} }},
		{"args without input", func(c *config.Config) { c.Export.Args = []string{"-o", "{output}"} }},
		{"negative export timeout", func(c *config.Config) { c.Export.TimeoutSeconds = -1 }},
		{"zero workers", func(c *config.Config) { c.Workflow.Workers = 0 }},
		{"zero diagnostic lines", func(c *config.Config) { c.Workflow.DiagnosticLines = 0 }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "verbose" }},
	}

	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("expected baseline config to validate, got %v", err)
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
