// Package services defines shared utilities consumed by the pipeline stages
// and the batch controller.
//
// Key responsibilities:
//   - Context helpers that stamp repository refs, stage names, and run
//     identifiers for logging.
//   - Structured error markers, the Wrap helper and ItemError, which separate
//     run-fatal failures (configuration, environment) from per-item failures
//     (acquisition, export).
//   - Excerpt, which trims external tool diagnostics down to the few lines
//     worth keeping in a batch report.
//
// Use these helpers when wiring new stage logic so failure classification
// stays uniform across the pipeline.
package services
