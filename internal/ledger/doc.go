// Package ledger records batch runs in a SQLite database under the state
// directory.
//
// Each run gets a row in runs with its outcome counts, and each catalog entry
// processed during the run gets a row in items with the stage outcomes and
// any diagnostic excerpt. The ledger is an audit trail only: it never decides
// whether work is skipped, which stays a property of the filesystem.
package ledger
