package diff

import (
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Render returns the patch text for hunks: each hunk's header followed by its lines, all joined by "\n". It returns "" when hunks is empty.
func Render(hunks []Hunk) string {
	var out []string
	for _, h := range hunks {
		out = append(out, h.Header())
		out = append(out, h.Lines...)
	}
	return strings.Join(out, eol)
}

// Patch diffs a and b line by line and renders the result with the given context. ok is false when a == b, in which case the patch is "".
func Patch(a, b string, context int) (patch string, ok bool) {
	if a == b {
		return "", false
	}
	return Render(Group(Lines(a, b), context)), true
}

// RenderColor is Render with ANSI colors: headers in cyan, deletions in red, insertions in green. When a block of deleted lines is directly followed by a block of
// inserted lines, lines are paired in order and the changed segments within each pair are emphasized. Colors are always emitted; callers decide whether the
// destination supports them.
func RenderColor(hunks []Hunk) string {
	var (
		header     = forced(color.FgCyan)
		deleted    = forced(color.FgRed)
		inserted   = forced(color.FgGreen)
		deletedHi  = forced(color.FgBlack, color.BgRed)
		insertedHi = forced(color.FgBlack, color.BgGreen)
	)

	var out []string
	for _, h := range hunks {
		out = append(out, header.Sprint(h.Header()))

		for i := 0; i < len(h.Lines); {
			if !strings.HasPrefix(h.Lines[i], DeletePrefix) && !strings.HasPrefix(h.Lines[i], InsertPrefix) {
				out = append(out, h.Lines[i])
				i++
				continue
			}

			// Collect a block of deletions followed by a block of insertions.
			j := i
			for j < len(h.Lines) && strings.HasPrefix(h.Lines[j], DeletePrefix) {
				j++
			}
			k := j
			for k < len(h.Lines) && strings.HasPrefix(h.Lines[k], InsertPrefix) {
				k++
			}
			dels := h.Lines[i:j]
			ins := h.Lines[j:k]

			pairs := min(len(dels), len(ins))
			for n, l := range dels {
				if n < pairs {
					out = append(out, deleted.Sprint(DeletePrefix)+highlight(body(l, DeletePrefix), body(ins[n], InsertPrefix), true, deleted, deletedHi))
					continue
				}
				out = append(out, deleted.Sprint(l))
			}
			for n, l := range ins {
				if n < pairs {
					out = append(out, inserted.Sprint(InsertPrefix)+highlight(body(dels[n], DeletePrefix), body(l, InsertPrefix), false, inserted, insertedHi))
					continue
				}
				out = append(out, inserted.Sprint(l))
			}
			i = k
		}
	}
	return strings.Join(out, eol)
}

// highlight renders one side of a changed line pair. When oldSide, it renders oldText with deleted segments emphasized; otherwise newText with inserted segments
// emphasized.
func highlight(oldText, newText string, oldSide bool, base, emphasis *color.Color) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(oldText, newText, false))

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			b.WriteString(base.Sprint(d.Text))
		case diffmatchpatch.DiffDelete:
			if oldSide {
				b.WriteString(emphasis.Sprint(d.Text))
			}
		case diffmatchpatch.DiffInsert:
			if !oldSide {
				b.WriteString(emphasis.Sprint(d.Text))
			}
		}
	}
	return b.String()
}

func body(line, prefix string) string {
	return strings.TrimPrefix(line, prefix)
}

func forced(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	c.EnableColor()
	return c
}
