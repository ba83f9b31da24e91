package locate

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/graphemes"
	"github.com/mattn/go-runewidth"
)

var caretWidth = func() *runewidth.Condition {
	cond := runewidth.NewCondition()
	cond.EastAsianWidth = false
	cond.StrictEmojiNeutral = true
	return cond
}()

// Caret returns a line that places '^' under the 1-based byte column of line when both are printed in a terminal. Tabs before the column are kept so the caret
// lines up regardless of tab width. Widths are measured per grapheme cluster.
func Caret(line string, column int) string {
	if column < 1 {
		column = 1
	}
	prefix := line
	if column-1 < len(line) {
		prefix = line[:column-1]
	}

	var b strings.Builder
	iter := graphemes.FromString(prefix)
	for iter.Next() {
		cluster := iter.Value()
		if cluster == "\t" {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", caretWidth.StringWidth(cluster)))
	}
	b.WriteByte('^')
	return b.String()
}
