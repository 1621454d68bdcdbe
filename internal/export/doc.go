// Package export flattens a working copy into a single text artifact by
// invoking an external flattening tool.
//
// Artifacts are written to <export_root>/<owner>_<name>.txt and overwritten on
// every run. The tool's command line comes from configuration, with {input}
// and {output} placeholders substituted per repository.
package export
