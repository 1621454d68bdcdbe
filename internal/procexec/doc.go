// Package procexec runs external tools as scoped subprocesses.
//
// Every invocation gets its own process group, an optional deadline, and a
// bounded capture of its combined stdout/stderr. When the deadline passes, the
// caller's context is cancelled, or Run returns for any other reason, the
// whole group is killed so a hung tool (or a helper it forked) cannot stall
// the batch. Failures are tagged with services.ErrTimeout or
// services.ErrExternalTool so stages can classify them.
package procexec
