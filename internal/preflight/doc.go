// Package preflight provides readiness checks for the external tools and
// filesystem paths harvest depends on.
//
// These checks run in two contexts:
//   - The batch controller refuses to start when a required tool is missing,
//     so a misconfigured host fails once instead of once per repository.
//   - The CLI "harvest check" command renders every check as a table.
package preflight
