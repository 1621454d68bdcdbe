// Package config loads, normalizes, and validates harvest configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HARVEST_GIT_BINARY. The Config type centralizes every knob the batch run and
// CLI need: the clone and export roots, the external tool invocations, their
// timeouts, and worker settings.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
