// Package catalog holds the fixed, ordered list of repositories a harvest run
// processes.
//
// Entries are "owner/name" strings. They are parsed into RepositoryRef values
// eagerly when a Catalog is built: a single malformed or duplicated entry
// rejects the whole catalog with a configuration error, so a run never starts
// on a hand-authored list that contains a mistake. The default catalog is
// compiled into the binary from catalog.yaml; Load reads an alternate file in
// the same format.
package catalog
