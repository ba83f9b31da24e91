package snapshot

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"fortio.org/safecast"
	"github.com/codalotl/inlinesnap/internal/gocode"
	"github.com/codalotl/inlinesnap/internal/literal"
	"github.com/codalotl/inlinesnap/internal/locate"
	"github.com/codalotl/inlinesnap/internal/rewrite"
)

// Closure holds an inline expectation. Recorded closures have the form:
//
//	func() string {
//		return `
//		expected text
//		`
//	}
//
// The leading newline, the common indentation, and the trailing indented line are not part of the expected value.
type Closure func() string

// Labeled marks body as the expectation closure named label in a call's argument list, for helpers that take more than one closure. It returns body.
func Labeled(label string, body Closure) Closure {
	return body
}

// Descriptor says which closure of the asserting call holds the expectation. The zero value is the call's last closure argument.
type Descriptor = locate.Descriptor

// InlineOptions configures AssertInlineWith.
type InlineOptions struct {
	Descriptor Descriptor

	// Function is the name of the function whose call holds the expectation. Defaults to "AssertInlineWith".
	Function string

	// CallerSkip is the number of stack frames between that call and AssertInlineWith (ex: 1 when a helper calls AssertInlineWith directly).
	CallerSkip int

	// Timeout overrides the configured timeout for producing the value.
	Timeout time.Duration

	// RemoveWhenEmpty removes the expectation closure instead of recording an empty one.
	RemoveWhenEmpty bool
}

// AssertInline compares the snapshot of value against the expectation closure passed as the call's last argument, if any. When the snapshot is missing or
// differs and the record mode allows it, the closure is written into the calling source file when the Run is flushed. Only the first closure is used.
//
//	snap.AssertInline(t, greet("go"), snapshot.Lines, func() string {
//		return `
//		hello, go
//		`
//	})
func (r *Run) AssertInline(t testing.TB, value any, strategy Strategy, expected ...Closure) {
	t.Helper()
	var first Closure
	if len(expected) > 0 {
		first = expected[0]
	}
	r.assertInline(t, value, strategy, first, InlineOptions{Function: "AssertInline"}, 0)
}

// AssertInlineWith is AssertInline for custom assertion helpers. expected is the closure selected by opts.Descriptor (nil if the call has none).
//
//	func check(t *testing.T, in string, closures ...snapshot.Closure) {
//		t.Helper()
//		var expected snapshot.Closure
//		if len(closures) > 1 {
//			expected = closures[1]
//		}
//		snap.AssertInlineWith(t, parse(in), snapshot.JSON, expected, snapshot.InlineOptions{
//			Descriptor: snapshot.Descriptor{Label: "expect", Offset: 1},
//			Function:   "check",
//			CallerSkip: 1,
//		})
//	}
func (r *Run) AssertInlineWith(t testing.TB, value any, strategy Strategy, expected Closure, opts InlineOptions) {
	t.Helper()
	if opts.Function == "" {
		opts.Function = "AssertInlineWith"
	}
	r.assertInline(t, value, strategy, expected, opts, opts.CallerSkip)
}

func (r *Run) assertInline(t testing.TB, value any, strategy Strategy, expected Closure, opts InlineOptions, skip int) {
	t.Helper()

	// Frames: runtime.Caller <- assertInline <- AssertInline(With) <- caller.
	_, file, line, ok := runtime.Caller(2 + skip)
	if !ok {
		t.Error("Could not determine the calling source location.")
		return
	}

	timeout := r.cfg.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	actual, err := capture(strategy, value, timeout)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			r.fail(t, err, timeoutMessage(timeout))
			return
		}
		r.fail(t, err, fmt.Sprintf("Could not snapshot value: %v", err))
		return
	}

	var reference *string
	if expected != nil {
		ref := literal.Unframe(expected())
		reference = &ref
	}
	matched := reference != nil && *reference == actual

	if matched && r.cfg.Record != RecordAll {
		return
	}
	if !shouldRecord(r.cfg.Record, reference != nil, matched) {
		if reference == nil {
			t.Error(NoReferenceMessage)
			return
		}
		t.Error(mismatchMessage(r.patch(*reference, actual)))
		return
	}
	if matched {
		t.Errorf("Record mode is on. The inline snapshot already matches. Turn record mode off and re-run %q to assert against it.", t.Name())
		return
	}

	if !filepath.IsAbs(file) {
		t.Errorf("Could not record inline snapshot: source path %q is not absolute (built with -trimpath?).", file)
		return
	}
	uline, err := safecast.Conv[uint](line)
	if err != nil {
		t.Errorf("Could not record inline snapshot: %v", err)
		return
	}

	rec := rewrite.Record{
		File:         file,
		Line:         uline,
		Function:     opts.Function,
		Descriptor:   opts.Descriptor,
		Reference:    reference,
		Diffable:     &actual,
		WasRecording: r.cfg.Record == RecordAll,
	}
	if opts.RemoveWhenEmpty && actual == "" {
		rec.Diffable = nil
	}
	if err := r.store.Write(rec); err != nil {
		r.fail(t, err, fmt.Sprintf("Could not record inline snapshot: %v", err))
		return
	}
	r.debug("queued inline snapshot", "file", file, "line", line, "function", opts.Function)

	patch := ""
	if reference != nil {
		patch = r.patch(*reference, actual)
	}
	t.Error(recordedMessage(r.cfg.Record, fmt.Sprintf("%s:%d", gocode.DisplayPath(file), line), t.Name(), reference != nil, patch))
}

// shouldRecord reports whether mode writes a snapshot, given whether a reference exists and matched.
func shouldRecord(mode RecordMode, hasReference, matched bool) bool {
	switch mode {
	case RecordAll:
		return true
	case RecordMissing:
		return !hasReference
	case RecordFailed:
		return !matched
	}
	return false
}
