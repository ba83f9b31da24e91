package snapshot

import (
	"fmt"
	"strings"
	"time"
)

// NoReferenceMessage is the failure when there is no reference and record mode is never.
const NoReferenceMessage = "No reference was found on disk. New snapshot was not recorded because recording is disabled"

func mismatchMessage(patch string) string {
	return "Snapshot did not match. Difference: … (−expected +actual)\n\n" + indentBlock(patch)
}

func timeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("Exceeded timeout of %s waiting for the value to snapshot. Raise the timeout (INLINESNAP_TIMEOUT or a Timeout option) if the value is expected to take this long.", timeout)
}

// recordedMessage describes a snapshot that was (or will be, for inline snapshots) written at where.
func recordedMessage(mode RecordMode, where, testName string, hadReference bool, patch string) string {
	var b strings.Builder
	switch {
	case mode == RecordAll:
		b.WriteString("Record mode is on. Automatically recorded snapshot: …")
	case !hadReference:
		b.WriteString("No reference was found on disk. Automatically recorded snapshot: …")
	default:
		b.WriteString("Snapshot did not match. Automatically recorded a new snapshot: …")
	}
	b.WriteString("\n\n  ")
	b.WriteString(where)
	if patch != "" {
		b.WriteString("\n\nDifference: … (−expected +actual)\n\n")
		b.WriteString(indentBlock(patch))
	}
	fmt.Fprintf(&b, "\n\nRe-run %q to assert against the newly-recorded snapshot.", testName)
	return b.String()
}

func indentBlock(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
