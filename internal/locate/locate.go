// Package locate finds the call expression that made an inline snapshot assertion and the argument slot that holds (or should hold) its expectation closure.
//
// A call's arguments are split into three groups, read from the end:
//   - labeled closures: the longest suffix of `Labeled("label", func() string {...})` calls (any package qualifier).
//   - the primary closure: the last remaining argument, when it is a function literal.
//   - positional arguments: everything before that.
//
// A Descriptor's Offset counts slots from the first closure among the positional arguments' trailing run of function literals. Offset 0 with no closures among
// the positional arguments is the primary closure; offsets past it address labeled closures.
package locate

import (
	"go/ast"
	"go/token"
	"slices"
	"strconv"

	"github.com/codalotl/inlinesnap/internal/gocode"
	"github.com/codalotl/inlinesnap/internal/literal"
	"github.com/codalotl/inlinesnap/internal/snaperr"
	"golang.org/x/tools/go/ast/astutil"
)

// LabeledFunc is the callee name that marks an additional labeled closure.
const LabeledFunc = "Labeled"

// Descriptor says which closure of a call holds the snapshot.
type Descriptor struct {
	DeprecatedLabels []string `msgpack:"deprecated_labels"` // older labels that still identify the slot
	Label            string   `msgpack:"label"`             // label for a labeled slot; written when a labeled closure is inserted
	Offset           int      `msgpack:"offset"`            // slot offset relative to the first trailing closure
}

// Matches reports whether label names d's slot.
func (d Descriptor) Matches(label string) bool {
	return label == d.Label || slices.Contains(d.DeprecatedLabels, label)
}

// Regime is the kind of slot a Descriptor resolved to.
type Regime int

const (
	RegimePositional Regime = iota // an argument among the positional arguments
	RegimePrimary                  // the primary closure
	RegimeAdditional               // a labeled closure
)

func (r Regime) String() string {
	switch r {
	case RegimePositional:
		return "positional"
	case RegimePrimary:
		return "primary"
	case RegimeAdditional:
		return "additional"
	}
	return "Regime(" + strconv.Itoa(int(r)) + ")"
}

// LabeledClosure is one `Labeled("label", body)` argument.
type LabeledClosure struct {
	Call  *ast.CallExpr
	Label string
	Body  ast.Expr // second argument, normally a *ast.FuncLit
}

// Location is a resolved snapshot slot.
type Location struct {
	Call       *ast.CallExpr
	Positional []ast.Expr
	Primary    *ast.FuncLit // nil if the call has no primary closure
	Labeled    []LabeledClosure

	FirstTrailingClosureOffset int
	TrailingClosureOffset      int

	Regime Regime
	Index  int  // index into Positional for RegimePositional, into Labeled for RegimeAdditional (the insertion index when !Exists)
	Exists bool // whether the slot already holds an argument

	Line int // line of the existing slot, or of the call's '(' when the slot is empty
}

// ArgumentCount is the number of positional arguments.
func (l *Location) ArgumentCount() int {
	return len(l.Positional)
}

// Slot returns the expression at the slot: the positional argument, the primary closure, or the labeled closure's body. It returns nil if !l.Exists.
func (l *Location) Slot() ast.Expr {
	if !l.Exists {
		return nil
	}
	switch l.Regime {
	case RegimePositional:
		return l.Positional[l.Index]
	case RegimePrimary:
		return l.Primary
	default:
		return l.Labeled[l.Index].Body
	}
}

// Value returns the decoded string held by the slot. The slot must be a string literal expression or a function literal whose body is `return <string literal expression>`.
func (l *Location) Value() (string, bool) {
	expr := l.Slot()
	if expr == nil {
		return "", false
	}
	if ret := ReturnExpr(expr); ret != nil {
		return literal.Value(ret)
	}
	return literal.Value(expr)
}

// ReturnExpr returns X when expr is `func() ... { return X }` with a single statement and result, and nil otherwise.
func ReturnExpr(expr ast.Expr) ast.Expr {
	fn, ok := expr.(*ast.FuncLit)
	if !ok || fn.Body == nil || len(fn.Body.List) != 1 {
		return nil
	}
	ret, ok := fn.Body.List[0].(*ast.ReturnStmt)
	if !ok || len(ret.Results) != 1 {
		return nil
	}
	return ret.Results[0]
}

// Locate finds the call at line and column in f and resolves d against it.
//
// A non-zero column must be the column of the call's '(' (equivalently, the position right after its callee). A zero column matches any call whose '(' is on
// line and whose callee name is function. When several calls match, the innermost wins. If no call matches, the error matches snaperr.ErrLocatorMiss.
func Locate(f *gocode.File, line, column int, function string, d Descriptor) (*Location, error) {
	call := findCall(f, line, column, function)
	if call == nil {
		return nil, snaperr.New(snaperr.KindLocatorMiss, "no call expression at position", "file", f.AbsolutePath, "line", line, "column", column, "function", function)
	}
	return resolve(f, call, d)
}

// CalleeName returns the final identifier of a call's function expression (ex: "AssertInline" for `r.AssertInline`, "check" for `check[int]`), or "".
func CalleeName(fun ast.Expr) string {
	switch e := fun.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.SelectorExpr:
		return e.Sel.Name
	case *ast.IndexExpr:
		return CalleeName(e.X)
	case *ast.IndexListExpr:
		return CalleeName(e.X)
	case *ast.ParenExpr:
		return CalleeName(e.X)
	}
	return ""
}

func findCall(f *gocode.File, line, column int, function string) *ast.CallExpr {
	if column > 0 {
		return findCallAtColumn(f, line, column)
	}

	var best *ast.CallExpr
	bestDepth := -1
	var stack []ast.Node
	ast.Inspect(f.AST, func(n ast.Node) bool {
		if n == nil {
			stack = stack[:len(stack)-1]
			return false
		}
		stack = append(stack, n)
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		if f.Position(call.Lparen).Line == line && CalleeName(call.Fun) == function && len(stack) > bestDepth {
			best = call
			bestDepth = len(stack)
		}
		return true
	})
	return best
}

func findCallAtColumn(f *gocode.File, line, column int) *ast.CallExpr {
	start := f.LineStart(line)
	if start < 0 || start+column-1 > len(f.Contents) {
		return nil
	}
	pos := f.TokenFile().Pos(start + column - 1)

	path, _ := astutil.PathEnclosingInterval(f.AST, pos, pos)
	for _, n := range path {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			continue
		}
		if call.Lparen == pos || call.Fun.End() == pos {
			return call
		}
	}
	return nil
}

func resolve(f *gocode.File, call *ast.CallExpr, d Descriptor) (*Location, error) {
	loc := &Location{Call: call}

	args := call.Args
	for len(args) > 0 {
		lc, ok := asLabeled(args[len(args)-1])
		if !ok {
			break
		}
		loc.Labeled = append([]LabeledClosure{lc}, loc.Labeled...)
		args = args[:len(args)-1]
	}
	if n := len(args); n > 0 {
		if fn, ok := args[n-1].(*ast.FuncLit); ok {
			loc.Primary = fn
			args = args[:n-1]
		}
	}
	loc.Positional = args

	closures := 0
	for i := len(args) - 1; i >= 0; i-- {
		if _, ok := args[i].(*ast.FuncLit); !ok {
			break
		}
		closures++
	}
	loc.FirstTrailingClosureOffset = len(args) - closures
	loc.TrailingClosureOffset = loc.FirstTrailingClosureOffset + d.Offset

	centered := loc.TrailingClosureOffset - len(args)
	switch {
	case centered < 0:
		if loc.TrailingClosureOffset < 0 {
			return nil, snaperr.New(snaperr.KindLocatorMiss, "closure offset before first argument", "file", f.AbsolutePath, "offset", d.Offset)
		}
		loc.Regime = RegimePositional
		loc.Index = loc.TrailingClosureOffset
		loc.Exists = true
	case centered == 0:
		loc.Regime = RegimePrimary
		loc.Exists = loc.Primary != nil
	default:
		loc.Regime = RegimeAdditional
		loc.Index = min(centered-1, len(loc.Labeled))
		loc.Exists = loc.Index < len(loc.Labeled) && d.Matches(loc.Labeled[loc.Index].Label)
	}

	loc.Line = f.Position(call.Lparen).Line
	if slot := loc.Slot(); slot != nil {
		loc.Line = f.Position(slot.Pos()).Line
	}
	return loc, nil
}

// asLabeled reports whether expr is `Labeled("label", body)` or `pkg.Labeled("label", body)` with a constant label.
func asLabeled(expr ast.Expr) (LabeledClosure, bool) {
	call, ok := expr.(*ast.CallExpr)
	if !ok || len(call.Args) != 2 || call.Ellipsis != token.NoPos {
		return LabeledClosure{}, false
	}
	switch fun := call.Fun.(type) {
	case *ast.Ident:
		if fun.Name != LabeledFunc {
			return LabeledClosure{}, false
		}
	case *ast.SelectorExpr:
		if _, ok := fun.X.(*ast.Ident); !ok || fun.Sel.Name != LabeledFunc {
			return LabeledClosure{}, false
		}
	default:
		return LabeledClosure{}, false
	}
	label, ok := literal.Concat(call.Args[0])
	if !ok {
		return LabeledClosure{}, false
	}
	return LabeledClosure{Call: call, Label: label, Body: call.Args[1]}, true
}
