// Package diff computes line-oriented differences between two sequences and renders them as human-readable patches.
//
// The pipeline has three stages:
//   - Sequences (and its text wrapper Lines) computes an ordered list of Difference runs using a longest-common-subsequence search. Every run is tagged with the
//     side it came from: OriginFirst (only in the first sequence), OriginSecond (only in the second), or OriginCommon.
//   - Group folds those runs into contextual hunks, keeping at most context unchanged lines around each group of changes.
//   - Render joins hunks into the patch text that is embedded in assertion failures. RenderColor is the same patch with ANSI colors and intra-line highlights.
//
// Invariants:
//   - concat(First and Common elements) == first sequence, and concat(Second and Common elements) == second sequence.
//   - Sequences(a, a) is a single OriginCommon run (or nothing when a is empty).
//   - No hunk returned by Group has empty Lines, and every hunk contains at least one deleted or inserted line.
//
// Patch format:
//
//	@@ −1,3 +1,3 @@
//	 a
//	−b
//	+x
//	 c
//
// Headers use 1-based starts and U+2212 (minus sign) rather than an ASCII hyphen. Context lines are prefixed with U+2007 (figure space). Lines whose content ends
// with a space get a trailing "¬" so that trailing whitespace is visible.
package diff
