package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"harvest/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Remotes resolve to file:// URLs under RemotesDir so no network is needed.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CloneRoot = filepath.Join(base, "repos")
	cfgVal.Paths.ExportRoot = filepath.Join(base, "exports")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Acquisition.RemoteURLTemplate = "file://" + filepath.Join(base, "remotes") + "/{owner}/{name}"
	cfgVal.Acquisition.TimeoutSeconds = 30
	cfgVal.Export.TimeoutSeconds = 30
	cfgVal.Workflow.ProgressBar = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkers sets the worker pool size.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.Workers = n
	}
}

// WithCatalog writes a catalog file listing entries and points the config
// at it.
func WithCatalog(entries ...string) ConfigOption {
	return func(b *configBuilder) {
		var sb strings.Builder
		sb.WriteString("repositories:\n")
		for _, entry := range entries {
			fmt.Fprintf(&sb, "  - %q\n", entry)
		}
		path := filepath.Join(b.baseDir, "catalog.yaml")
		if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
			b.t.Fatalf("write catalog: %v", err)
		}
		b.cfg.Catalog.File = path
	}
}

const fakeGitScript = `#!/bin/sh
[ "$1" = "clone" ] || { echo "fake git: unsupported command: $*" >&2; exit 1; }
shift
if [ "$1" = "--depth" ]; then shift 2; fi
url="$1"
dest="$2"
echo "$url" >> %q
src="${url#file://}"
echo "Cloning into '$dest'..." >&2
if [ -f "$src/.hang" ]; then sleep 60; fi
if [ ! -d "$src" ]; then
  echo "fatal: repository '$url' does not exist" >&2
  exit 128
fi
mkdir -p "$dest" && cp -R "$src/." "$dest/"
`

const fakeFlattenScript = `#!/bin/sh
out=""
in=""
while [ $# -gt 0 ]; do
  case "$1" in
    --output) out="$2"; shift 2 ;;
    *) in="$1"; shift ;;
  esac
done
if [ -f "$in/.broken" ]; then
  echo "Error: cannot flatten $in" >&2
  exit 2
fi
{
  for f in $(cd "$in" && find . -type f | sort); do
    echo "=== $f"
    cat "$in/$f"
  done
} > "$out"
echo "wrote $out"
`

// WithStubbedTools writes fake git and flattening scripts and points the
// config at them. The fake git copies file:// remotes and appends every
// clone URL to CloneLog; a remote containing .hang sleeps before cloning.
// The fake flattener fails for working copies containing .broken.
func WithStubbedTools() ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		gitPath := filepath.Join(binDir, "git")
		script := fmt.Sprintf(fakeGitScript, filepath.Join(b.baseDir, "clone.log"))
		if err := os.WriteFile(gitPath, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write fake git: %v", err)
		}
		flattenPath := filepath.Join(binDir, "flatten")
		if err := os.WriteFile(flattenPath, []byte(fakeFlattenScript), 0o755); err != nil {
			b.t.Fatalf("write fake flattener: %v", err)
		}
		b.cfg.Acquisition.GitBinary = gitPath
		b.cfg.Export.Binary = flattenPath
		b.cfg.Export.Args = []string{"--output", "{output}", "{input}"}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// RemotesDir returns the directory file:// remotes are served from.
func RemotesDir(cfg *config.Config) string {
	return filepath.Join(BaseDir(cfg), "remotes")
}

// AddRemote creates a remote repository for owner/name containing files.
func AddRemote(t testing.TB, cfg *config.Config, owner, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(RemotesDir(cfg), owner, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir remote: %v", err)
	}
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir remote subdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write remote file %s: %v", rel, err)
		}
	}
	return dir
}

// CloneLog returns the URLs the fake git was asked to clone, in order.
func CloneLog(t testing.TB, cfg *config.Config) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(BaseDir(cfg), "clone.log"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read clone log: %v", err)
	}
	var urls []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line != "" {
			urls = append(urls, line)
		}
	}
	return urls
}
