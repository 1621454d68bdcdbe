package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"harvest/internal/catalog"
	"harvest/internal/services"
)

func TestNewPreservesOrder(t *testing.T) {
	cat, err := catalog.New([]string{"b/two", "a/one", "c/three"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	entries := cat.Entries()
	got := make([]string, 0, len(entries))
	for _, ref := range entries {
		got = append(got, ref.String())
	}
	if strings.Join(got, ",") != "b/two,a/one,c/three" {
		t.Fatalf("unexpected order: %v", got)
	}
	if cat.Len() != 3 {
		t.Fatalf("unexpected length %d", cat.Len())
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	cat, err := catalog.New([]string{"octocat/Hello-World"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	entries := cat.Entries()
	entries[0].Name = "mutated"
	if cat.Entries()[0].Name != "Hello-World" {
		t.Fatal("expected catalog to be immutable through Entries")
	}
}

func TestNewRejectsMalformedEntryEagerly(t *testing.T) {
	_, err := catalog.New([]string{"octocat/Hello-World", "not-a-valid-ref"})
	if err == nil {
		t.Fatal("expected error for malformed entry")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "not-a-valid-ref") || !strings.Contains(err.Error(), "entry 2") {
		t.Fatalf("expected error to name the offending entry, got %v", err)
	}
}

func TestNewRejectsWorkingCopyCollisions(t *testing.T) {
	cases := [][]string{
		{"octocat/Hello-World", "octocat/Hello-World"},
		{"alice/tool", "bob/tool"},
	}
	for _, entries := range cases {
		if _, err := catalog.New(entries); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("expected configuration error for %v, got %v", entries, err)
		}
	}
}

func TestNewAcceptsCaseDistinctNames(t *testing.T) {
	cat, err := catalog.New([]string{"alice/Foo", "bob/foo"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", cat.Len())
	}
}

func TestDefaultCatalogIsValid(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("Default returned error: %v", err)
	}
	if cat.Len() == 0 {
		t.Fatal("expected embedded catalog entries")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := "repositories:\n  - octocat/Hello-World\n  - octocat/Spoon-Knife\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	cat, err := catalog.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cat.Len() != 2 || cat.Entries()[1].Name != "Spoon-Knife" {
		t.Fatalf("unexpected entries: %v", cat.Entries())
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	unknown := filepath.Join(dir, "unknown.yaml")
	if err := os.WriteFile(unknown, []byte("repos:\n  - a/b\n"), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	malformed := filepath.Join(dir, "malformed.yaml")
	if err := os.WriteFile(malformed, []byte("repositories:\n  - not-a-valid-ref\n"), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	for _, path := range []string{unknown, malformed, filepath.Join(dir, "missing.yaml")} {
		if _, err := catalog.Load(path); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("expected configuration error for %s, got %v", filepath.Base(path), err)
		}
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	cat, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cat.Len() != 0 {
		t.Fatalf("expected empty catalog, got %d", cat.Len())
	}
}
