// Package main hosts the harvest CLI entrypoint and command graph.
//
// Running harvest with no arguments performs one batch run over the
// repository catalog: every entry is cloned (unless a working copy already
// exists) and flattened into a text artifact, and a summary table is printed
// when the run ends. Per-repository failures are reported but never change
// the exit status; configuration and environment faults exit non-zero.
//
// Subcommands cover configuration scaffolding, catalog inspection, host
// readiness checks, and the run history kept in the ledger. The heavy lifting
// lives in internal packages; this package only wires flags to them and
// renders their results.
package main
