// Package acquisition makes sure a local working copy exists for each
// catalog entry.
//
// A working copy lives at <clone_root>/<name>. An existing directory is
// trusted and reported as AlreadyPresent without touching the network;
// otherwise the version-control client clones the remote into place. When
// completion markers are enabled, a directory left without a marker (an
// interrupted clone) is removed and cloned again.
package acquisition
