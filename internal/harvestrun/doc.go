// Package harvestrun wires configuration, the catalog, the ledger, and the
// pipeline stages into a single batch run. The CLI's root command is a thin
// wrapper around Run.
package harvestrun
