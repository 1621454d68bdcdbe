// Package harvest drives a batch run over the repository catalog.
//
// The Controller walks the catalog in order, acquiring each repository and
// exporting it to a flat text artifact. A failure on one entry is logged,
// recorded, and reported, and the run moves on to the next entry; only
// environment faults (roots that cannot be created, a held run lock, an
// unavailable ledger) abort the run. When the run ends the controller lists
// the export root and returns a Summary with per-outcome counts.
//
// Work is sequential by default. With more than one worker, entries are
// drained from a channel by a fixed pool and results land in index-addressed
// slots, so the summary keeps catalog order.
package harvest
