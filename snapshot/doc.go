// Package snapshot provides snapshot assertions for Go tests.
//
// A snapshot is text produced from a value by a Strategy (Lines, JSON, YAML, Description). Run.Assert compares it against a reference file under __snapshots__
// next to the test. Run.AssertInline compares it against an expectation closure written directly in the test, and records missing or changed expectations by
// rewriting the test's source file when the Run is flushed:
//
//	func TestGreet(t *testing.T) {
//		snap.AssertInline(t, greet("go"), snapshot.Lines, func() string {
//			return `
//			hello, go
//			`
//		})
//	}
//
// What gets written is decided by the RecordMode: missing (the default) writes only new snapshots, failed also overwrites mismatches, all always writes, and never
// writes nothing. Every write fails the test, so a recorded snapshot is only trusted after a second run.
//
// Configuration comes from .inlinesnap.toml (searched upward from the working directory) and INLINESNAP_* environment variables; see LoadConfig.
package snapshot
