package catalog

import (
	"fmt"
	"strings"
)

const (
	refSeparator  = "/"
	safeSeparator = "_"
)

// RepositoryRef identifies a remote repository by owner and name.
type RepositoryRef struct {
	Owner string
	Name  string
}

// Parse converts "owner/name" into a RepositoryRef. The value must contain
// exactly one separator with non-empty parts on both sides.
func Parse(value string) (RepositoryRef, error) {
	trimmed := strings.TrimSpace(value)
	if strings.Count(trimmed, refSeparator) != 1 {
		return RepositoryRef{}, fmt.Errorf("repository %q: expected exactly one %q separator", value, refSeparator)
	}
	owner, name, _ := strings.Cut(trimmed, refSeparator)
	owner = strings.TrimSpace(owner)
	name = strings.TrimSpace(name)
	if owner == "" || name == "" {
		return RepositoryRef{}, fmt.Errorf("repository %q: owner and name must be non-empty", value)
	}
	if name == "." || name == ".." {
		return RepositoryRef{}, fmt.Errorf("repository %q: name cannot be a relative path segment", value)
	}
	return RepositoryRef{Owner: owner, Name: name}, nil
}

func (r RepositoryRef) String() string {
	return r.Owner + refSeparator + r.Name
}

// SafeIdentifier is the file-name-safe form of the ref used to name export
// artifacts.
func (r RepositoryRef) SafeIdentifier() string {
	return r.Owner + safeSeparator + r.Name
}

// RemoteURL expands {owner} and {name} in template.
func (r RepositoryRef) RemoteURL(template string) string {
	return strings.NewReplacer("{owner}", r.Owner, "{name}", r.Name).Replace(template)
}
