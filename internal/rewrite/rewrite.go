// Package rewrite applies pending inline snapshot records to a Go source file.
//
// Edits are collected as a list of byte-range replacements against the original contents and applied in one pass, so the parsed tree is never mutated. Records
// are processed in ascending (line, column, trailing closure offset) order. An edit that overlaps an earlier one is skipped with an *EditError.
package rewrite

import (
	"cmp"
	"go/ast"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/codalotl/inlinesnap/internal/gocode"
	"github.com/codalotl/inlinesnap/internal/literal"
	"github.com/codalotl/inlinesnap/internal/locate"
	"github.com/codalotl/inlinesnap/internal/snaperr"
)

// SnapshotImportPath is the import path whose Labeled function marks labeled closures.
const SnapshotImportPath = "github.com/codalotl/inlinesnap/snapshot"

// Options configures Rewrite. The zero value is usable.
type Options struct {
	IndentUnit string       // used when the file has no indented line; defaults to four spaces
	Context    int          // context lines for diffs in reports; defaults to 4 when zero
	Logger     *slog.Logger // optional
}

// Result is the outcome of Rewrite.
type Result struct {
	Contents []byte  // the rewritten contents; equal to the input contents if nothing was applied
	Applied  int     // number of records that changed the source
	Reports  []Report
	Skipped  []error // one entry per record whose edit could not be located or applied
}

// Changed reports whether any record was applied.
func (r *Result) Changed() bool {
	return r.Applied > 0
}

type pending struct {
	record Record
	loc    *locate.Location
	err    error
	line   int
}

// Rewrite applies records to f, which must be parsed. f is not modified. Records for other files are ignored.
//
// Records whose Reference equals their Diffable are no-ops. If no record changes the source and none failed, a single MessageNotRecorded report is returned at
// the first record's line. Otherwise each applied record gets a recorded report at its line in the new contents, and each record that could not be located or
// applied gets a report with its error at its best-known line.
func Rewrite(f *gocode.File, records []Record, opts Options) *Result {
	if opts.Context == 0 {
		opts.Context = 4
	}
	result := &Result{Contents: f.Contents}

	var items []pending
	for _, r := range records {
		if r.File != "" && r.File != f.AbsolutePath {
			continue
		}
		p := pending{record: r, line: toInt(r.Line)}
		p.loc, p.err = locate.Locate(f, p.line, toInt(r.Column), r.Function, r.Descriptor)
		items = append(items, p)
	}
	if len(items) == 0 {
		return result
	}
	slices.SortStableFunc(items, func(a, b pending) int {
		if c := cmp.Compare(a.record.Line, b.record.Line); c != 0 {
			return c
		}
		if c := cmp.Compare(a.record.Column, b.record.Column); c != 0 {
			return c
		}
		return cmp.Compare(trailingOffset(a), trailingOffset(b))
	})

	ed := &editor{
		f:         f,
		unit:      indentUnit(f, opts.IndentUnit),
		qualifier: qualifier(f),
	}

	var applied []int
	skipped := map[int]error{}
	for i, p := range items {
		if p.err != nil {
			skipped[i] = snaperr.Log(opts.Logger, p.err)
			result.Skipped = append(result.Skipped, skipped[i])
			continue
		}
		if p.record.IsNoop() {
			continue
		}
		changed, err := ed.apply(i, p.record, p.loc)
		if err != nil {
			skipped[i] = snaperr.Log(opts.Logger, err)
			result.Skipped = append(result.Skipped, skipped[i])
			continue
		}
		if changed {
			applied = append(applied, i)
		}
	}

	if len(applied) == 0 && len(skipped) == 0 {
		first := items[0]
		result.Reports = append(result.Reports, Report{File: f.AbsolutePath, Line: first.line, Message: MessageNotRecorded})
		return result
	}

	if len(applied) > 0 {
		result.Contents = applyPatches(f.Contents, ed.patches)
		result.Applied = len(applied)
	}
	for i, p := range items {
		if err, ok := skipped[i]; ok {
			result.Reports = append(result.Reports, Report{
				File:    f.AbsolutePath,
				Line:    ed.reportLine(p, i),
				Message: skippedMessage(err),
			})
			continue
		}
		if !slices.Contains(applied, i) {
			continue
		}
		line := ed.reportLine(p, i)
		result.Reports = append(result.Reports, Report{
			File:     f.AbsolutePath,
			Line:     line,
			Message:  recordedMessage(p.record, opts.Context),
			Recorded: true,
		})
		if opts.Logger != nil {
			opts.Logger.Debug("rewrote inline snapshot", "file", f.AbsolutePath, "line", line, "regime", p.loc.Regime.String())
		}
	}
	return result
}

// reportLine is the line of item i's call in the rewritten contents. Records that could not be located keep their recorded line.
func (e *editor) reportLine(p pending, i int) int {
	if p.loc == nil {
		return p.line
	}
	return e.f.Position(p.loc.Call.Lparen).Line + e.deltaBefore(e.f.Offset(p.loc.Call.Lparen), i)
}

func trailingOffset(p pending) int {
	if p.loc == nil {
		return 0
	}
	return p.loc.TrailingClosureOffset
}

// toInt converts a record position to int; values that do not fit become 0, which matches nothing.
func toInt(v uint) int {
	n, err := safecast.Conv[int](v)
	if err != nil {
		return 0
	}
	return n
}

// indentUnit returns the file's indent unit, falling back to fallback and then four spaces.
func indentUnit(f *gocode.File, fallback string) string {
	if unit, ok := literal.DetectIndentUnit(f.Contents); ok {
		return unit
	}
	if fallback != "" {
		return fallback
	}
	return "    "
}

// qualifier returns the prefix used to call Labeled from f (ex: "snapshot.").
func qualifier(f *gocode.File) string {
	if name, ok := f.ImportName(SnapshotImportPath); ok {
		if name == "." {
			return ""
		}
		return name + "."
	}
	if f.PackageName == "snapshot" {
		return ""
	}
	return "snapshot."
}

// editor accumulates patches for one file.
type editor struct {
	f         *gocode.File
	unit      string
	qualifier string
	patches   []patch
}

// apply queues the patches for r. changed is false when there is nothing to edit (ex: removing a closure that is already gone).
func (e *editor) apply(idx int, r Record, loc *locate.Location) (changed bool, err error) {
	var ps []patch
	switch {
	case r.Diffable == nil:
		ps = e.removal(loc)
	case loc.Exists:
		ps = []patch{e.replacement(loc.Slot(), *r.Diffable, loc)}
	default:
		ps = []patch{e.insertion(loc, *r.Diffable, r.Descriptor.Label)}
	}
	if len(ps) == 0 {
		return false, nil
	}

	for _, p := range ps {
		for _, q := range e.patches {
			if p.overlaps(q) {
				return false, &EditError{File: e.f.AbsolutePath, Line: loc.Line, Reason: "edit overlaps an earlier edit"}
			}
		}
	}
	for _, p := range ps {
		p.record = idx
		e.patches = append(e.patches, p)
	}
	return true, nil
}

// deltaBefore is the net number of lines added by patches of other records that start before offset.
func (e *editor) deltaBefore(offset int, record int) int {
	delta := 0
	for _, p := range e.patches {
		if p.record != record && p.start < offset {
			delta += p.lineDelta(e.f.Contents)
		}
	}
	return delta
}

// replacement replaces the value of slot with value. A function literal that only returns a value keeps everything but the returned expression.
func (e *editor) replacement(slot ast.Expr, value string, loc *locate.Location) patch {
	if ret := locate.ReturnExpr(slot); ret != nil {
		ind := e.returnIndent(ret, loc)
		return e.span(ret.Pos(), ret.End(), literal.Encode(value, ind))
	}
	return e.span(slot.Pos(), slot.End(), e.closure(value, loc))
}

// returnIndent is the indentation of the line holding a return statement's value when the statement begins that line, and the call's indentation plus one unit
// otherwise.
func (e *editor) returnIndent(ret ast.Expr, loc *locate.Location) string {
	line := e.f.Position(ret.Pos()).Line
	text := e.f.LineText(line)
	if strings.HasPrefix(strings.TrimLeft(text, " \t"), "return ") {
		return e.f.LineIndentation(line)
	}
	return e.callIndent(loc) + e.unit
}

func (e *editor) callIndent(loc *locate.Location) string {
	return e.f.LineIndentation(e.f.Position(loc.Call.Pos()).Line)
}

// closure renders a new expectation closure for loc's call.
func (e *editor) closure(value string, loc *locate.Location) string {
	ind := e.callIndent(loc)
	body := ind + e.unit
	return "func() string {\n" + body + "return " + literal.Encode(value, body) + "\n" + ind + "}"
}

func (e *editor) insertion(loc *locate.Location, value, label string) patch {
	call := loc.Call
	closure := e.closure(value, loc)

	if loc.Regime == locate.RegimeAdditional {
		labeled := e.qualifier + locate.LabeledFunc + "(" + strconv.Quote(label) + ", " + closure + ")"
		if loc.Index < len(loc.Labeled) {
			return e.insert(loc.Labeled[loc.Index].Call.Pos(), labeled+", ")
		}
		if len(call.Args) == 0 {
			return e.insert(call.Lparen+1, labeled)
		}
		return e.insert(call.Args[len(call.Args)-1].End(), ", "+labeled)
	}

	// Primary closure: after the positional arguments, before labeled closures.
	if n := len(loc.Positional); n > 0 {
		return e.insert(loc.Positional[n-1].End(), ", "+closure)
	}
	if len(loc.Labeled) > 0 {
		return e.insert(call.Lparen+1, closure+", ")
	}
	return e.insert(call.Lparen+1, closure)
}

// removal removes the slot's argument. Removing the primary closure promotes the first labeled closure by unwrapping it.
func (e *editor) removal(loc *locate.Location) []patch {
	if !loc.Exists {
		return nil
	}
	call := loc.Call
	switch loc.Regime {
	case locate.RegimePrimary:
		if len(loc.Labeled) > 0 {
			first := loc.Labeled[0]
			return []patch{
				e.span(loc.Primary.Pos(), first.Body.Pos(), ""),
				e.span(first.Body.End(), first.Call.End(), ""),
			}
		}
		return []patch{e.removeArg(call, argIndex(call, loc.Primary))}
	case locate.RegimeAdditional:
		return []patch{e.removeArg(call, argIndex(call, loc.Labeled[loc.Index].Call))}
	default:
		return []patch{e.removeArg(call, loc.Index)}
	}
}

// removeArg removes call.Args[i] with its separating comma.
func (e *editor) removeArg(call *ast.CallExpr, i int) patch {
	args := call.Args
	switch {
	case len(args) == 1:
		return e.span(call.Lparen+1, call.Rparen, "")
	case i > 0:
		return e.span(args[i-1].End(), args[i].End(), "")
	default:
		return e.span(args[0].Pos(), args[1].Pos(), "")
	}
}

func argIndex(call *ast.CallExpr, arg ast.Expr) int {
	return slices.Index(call.Args, arg)
}

