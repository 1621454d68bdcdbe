package testsupport

import (
	"os"
	"testing"

	"harvest/internal/catalog"
	"harvest/internal/export"
)

// WriteArtifact places an export artifact for ref under root as if the
// flattening tool had produced it, and returns its path.
func WriteArtifact(t testing.TB, root, ref, content string) string {
	t.Helper()

	parsed, err := catalog.Parse(ref)
	if err != nil {
		t.Fatalf("parse ref %q: %v", ref, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir export root %s: %v", root, err)
	}
	path := export.ArtifactPath(root, parsed.SafeIdentifier())
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write artifact %s: %v", path, err)
	}
	return path
}
