package rewrite

import (
	"fmt"
	"strings"

	"github.com/codalotl/inlinesnap/internal/diff"
	"github.com/codalotl/inlinesnap/internal/locate"
	"github.com/codalotl/inlinesnap/internal/snaperr"
)

// Record is one pending edit to the expectation closure of a call site.
type Record struct {
	File       string            `msgpack:"file"`     // absolute path of the source file
	Line       uint              `msgpack:"line"`     // line of the call's '('
	Column     uint              `msgpack:"column"`   // column of the call's '(', or 0 to match by Function
	Function   string            `msgpack:"function"` // callee name, ex: "AssertInline"
	Descriptor locate.Descriptor `msgpack:"descriptor"`

	Reference    *string `msgpack:"reference"`     // value of the current expectation; nil if there is none
	Diffable     *string `msgpack:"diffable"`      // value to write; nil removes the closure
	WasRecording bool    `msgpack:"was_recording"` // whether the record was made because record mode forced it
}

// IsNoop reports whether applying r would not change the expectation.
func (r Record) IsNoop() bool {
	if r.Reference == nil || r.Diffable == nil {
		return r.Reference == nil && r.Diffable == nil
	}
	return *r.Reference == *r.Diffable
}

// Key identifies the call site slot r targets. Records with equal keys replace each other.
func (r Record) Key() string {
	return fmt.Sprintf("%s:%d:%d:%s:%d:%s", r.File, r.Line, r.Column, r.Function, r.Descriptor.Offset, r.Descriptor.Label)
}

// Report is a message for the test framework about one call site.
type Report struct {
	File     string
	Line     int  // line in the rewritten file when Recorded, else in the original file
	Message  string
	Recorded bool // whether the source was changed for this call site
}

// Messages used in reports.
const (
	MessageRecorded    = "Automatically recorded a new snapshot."
	MessageRemoved     = "Automatically removed the inline snapshot."
	MessageNotRecorded = "Could not assert against the inline snapshot. Record mode is on, but the source was not updated."
	rerunHint          = "Re-run the test to assert against the newly-recorded snapshot."
)

func recordedMessage(r Record, context int) string {
	if r.Diffable == nil {
		return MessageRemoved
	}

	var b strings.Builder
	b.WriteString(MessageRecorded)
	if r.Reference != nil {
		if patch, ok := diff.Patch(*r.Reference, *r.Diffable, context); ok {
			b.WriteString("\n\nDifference: …\n\n")
			b.WriteString(indent(patch, "  "))
		}
	}
	b.WriteString("\n\n")
	b.WriteString(rerunHint)
	return b.String()
}

// skippedMessage is the report for a record whose edit could not be located or applied.
func skippedMessage(err error) string {
	return MessageNotRecorded + "\n\n" + indent(err.Error(), "  ")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// EditError reports that a record's edit could not be applied. It matches snaperr.ErrEditConflict.
type EditError struct {
	File   string
	Line   int
	Reason string
}

func (e *EditError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
}

func (e *EditError) Is(target error) bool {
	return target == snaperr.ErrEditConflict
}
