package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"harvest/internal/services"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is an immutable, ordered list of repository refs.
type Catalog struct {
	entries []RepositoryRef
}

type catalogFile struct {
	Repositories []string `yaml:"repositories"`
}

// New validates every entry before returning. Any malformed entry, and any
// two entries that would share a working copy directory, fail the whole
// catalog with services.ErrConfiguration.
func New(entries []string) (*Catalog, error) {
	refs := make([]RepositoryRef, 0, len(entries))
	// Working copies are keyed by name alone.
	seen := make(map[string]int, len(entries))
	for i, entry := range entries {
		ref, err := Parse(entry)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "catalog", fmt.Sprintf("entry %d", i+1), "", err)
		}
		if first, dup := seen[ref.Name]; dup {
			return nil, services.Wrap(services.ErrConfiguration, "catalog", fmt.Sprintf("entry %d", i+1),
				fmt.Sprintf("%s collides with entry %d (%s) on working copy %q", ref, first+1, refs[first], ref.Name), nil)
		}
		seen[ref.Name] = i
		refs = append(refs, ref)
	}
	return &Catalog{entries: refs}, nil
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return decode(defaultCatalog, "embedded catalog")
}

// Load reads a YAML catalog file with a top-level repositories list.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "read", path, err)
	}
	return decode(data, path)
}

// Resolve picks the catalog file when one is configured and the embedded
// catalog otherwise.
func Resolve(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

func decode(data []byte, source string) (*Catalog, error) {
	var file catalogFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "parse", source, err)
	}
	return New(file.Repositories)
}

// Entries returns the refs in catalog order. The slice is a copy.
func (c *Catalog) Entries() []RepositoryRef {
	if c == nil {
		return nil
	}
	out := make([]RepositoryRef, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len reports the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}
