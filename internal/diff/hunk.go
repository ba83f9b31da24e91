package diff

import (
	"fmt"
	"strings"
)

// Line prefixes and markers used in rendered hunks.
const (
	DeletePrefix  = "−" // minus sign, not ASCII '-'
	InsertPrefix  = "+"
	ContextPrefix = " " // figure space
	TrailingSpace = "¬" // appended to lines whose content ends with ' '
)

// Hunk is a contiguous block of a patch. Starts are zero-based indexes into the original sequences. Context lines count toward both lengths, so len(Lines) is not
// FirstLength+SecondLength in general, but it is always at least max(FirstLength, SecondLength).
type Hunk struct {
	FirstStart   int
	FirstLength  int
	SecondStart  int
	SecondLength int
	Lines        []string // formatted lines: a prefix, the content, and possibly TrailingSpace
}

// Add combines h and o: starts and lengths are summed and lines are concatenated. Add is associative and the zero Hunk is its identity.
func (h Hunk) Add(o Hunk) Hunk {
	lines := make([]string, 0, len(h.Lines)+len(o.Lines))
	lines = append(lines, h.Lines...)
	lines = append(lines, o.Lines...)
	return Hunk{
		FirstStart:   h.FirstStart + o.FirstStart,
		FirstLength:  h.FirstLength + o.FirstLength,
		SecondStart:  h.SecondStart + o.SecondStart,
		SecondLength: h.SecondLength + o.SecondLength,
		Lines:        lines,
	}
}

// Header returns the hunk's "@@ −a,b +c,d @@" marker with 1-based starts.
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ %s%d,%d +%d,%d @@", DeletePrefix, h.FirstStart+1, h.FirstLength, h.SecondStart+1, h.SecondLength)
}

// HasChanges reports whether h contains a deleted or inserted line.
func (h Hunk) HasChanges() bool {
	for _, l := range h.Lines {
		if strings.HasPrefix(l, DeletePrefix) || strings.HasPrefix(l, InsertPrefix) {
			return true
		}
	}
	return false
}

// commonHunk is a hunk of n unchanged lines starting at idx on both sides.
func commonHunk(idx, n int, lines []string) Hunk {
	return Hunk{FirstStart: idx, FirstLength: n, SecondStart: idx, SecondLength: n, Lines: lines}
}

// Group folds diffs into hunks that keep at most context unchanged lines around changes. Runs of unchanged lines longer than 2*context split hunks; shorter ones
// are kept whole as context. Hunks made only of context are dropped. A negative context is treated as 0.
func Group(diffs []Difference[string], context int) []Hunk {
	if context < 0 {
		context = 0
	}

	var hunks []Hunk
	var current Hunk

	for _, d := range diffs {
		n := len(d.Elements)
		switch {
		case d.Origin == OriginCommon && n > 2*context:
			closed := current.Add(commonHunk(0, context, formatLines(ContextPrefix, d.Elements[:context])))
			if closed.HasChanges() {
				hunks = append(hunks, closed)
			}
			current = Hunk{
				FirstStart:   current.FirstStart + current.FirstLength + n - context,
				FirstLength:  context,
				SecondStart:  current.SecondStart + current.SecondLength + n - context,
				SecondLength: context,
				Lines:        formatLines(ContextPrefix, d.Elements[n-context:]),
			}

		case d.Origin == OriginCommon && len(current.Lines) == 0:
			k := min(context, n)
			current = current.Add(commonHunk(n-k, k, formatLines(ContextPrefix, d.Elements[n-k:])))

		case d.Origin == OriginCommon:
			current = current.Add(commonHunk(0, n, formatLines(ContextPrefix, d.Elements)))

		case d.Origin == OriginFirst:
			current = current.Add(Hunk{FirstLength: n, Lines: formatLines(DeletePrefix, d.Elements)})

		case d.Origin == OriginSecond:
			current = current.Add(Hunk{SecondLength: n, Lines: formatLines(InsertPrefix, d.Elements)})
		}
	}

	if len(current.Lines) > 0 && current.HasChanges() {
		hunks = append(hunks, current)
	}
	return hunks
}

func formatLines(prefix string, elements []string) []string {
	out := make([]string, len(elements))
	for i, e := range elements {
		out[i] = formatLine(prefix, e)
	}
	return out
}

func formatLine(prefix, content string) string {
	if strings.HasSuffix(content, " ") {
		return prefix + content + TrailingSpace
	}
	return prefix + content
}
