package rewrite

import (
	"bytes"
	"go/token"
	"slices"
	"strings"
)

// patch replaces contents[start:end] with text. An insertion has start == end.
type patch struct {
	start, end int
	text       string
	record     int // index of the record that produced the patch
}

func (e *editor) span(from, to token.Pos, text string) patch {
	return patch{start: e.f.Offset(from), end: e.f.Offset(to), text: text}
}

func (e *editor) insert(at token.Pos, text string) patch {
	off := e.f.Offset(at)
	return patch{start: off, end: off, text: text}
}

// overlaps reports whether p and q touch the same bytes, or are insertions at the same offset, or one inserts strictly inside the other's range.
func (p patch) overlaps(q patch) bool {
	if p.start == p.end && q.start == q.end {
		return p.start == q.start
	}
	if p.start == p.end {
		return q.start < p.start && p.start < q.end
	}
	if q.start == q.end {
		return p.start < q.start && q.start < p.end
	}
	return p.start < q.end && q.start < p.end
}

// lineDelta is the net number of lines p adds to contents.
func (p patch) lineDelta(contents []byte) int {
	return strings.Count(p.text, "\n") - bytes.Count(contents[p.start:p.end], []byte("\n"))
}

// applyPatches applies non-overlapping patches to contents in one pass.
func applyPatches(contents []byte, patches []patch) []byte {
	sorted := slices.Clone(patches)
	slices.SortStableFunc(sorted, func(a, b patch) int {
		if a.start != b.start {
			return a.start - b.start
		}
		return a.end - b.end
	})

	var out bytes.Buffer
	out.Grow(len(contents))
	last := 0
	for _, p := range sorted {
		out.Write(contents[last:p.start])
		out.WriteString(p.text)
		last = p.end
	}
	out.Write(contents[last:])
	return out.Bytes()
}
