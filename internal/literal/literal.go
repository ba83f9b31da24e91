// Package literal builds and reads the Go string literals that hold inline snapshots.
//
// A snapshot is stored framed: the value starts with a newline, every non-empty content line is indented, and the value ends with a newline followed by the indentation.
// In source this reads as a raw string whose opening backtick follows `return ` and whose closing backtick sits on its own line:
//
//	return `
//		first line
//		second line
//		`
//
// Raw strings cannot carry backticks, carriage returns, NUL, or a byte-order mark, so runs of those characters are split out into interpreted literals joined with
// `+`. Content that is not valid UTF-8 is emitted as a single interpreted literal.
package literal

import (
	"go/ast"
	"go/token"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Encode returns the Go expression source for content framed at indent.
func Encode(content, indent string) string {
	return Quote(Frame(content, indent))
}

// Frame returns the framed value of content: a leading newline, content with every non-empty line prefixed by indent, then a newline and indent.
func Frame(content, indent string) string {
	var b strings.Builder
	b.WriteString("\n")
	for i, line := range strings.Split(content, "\n") {
		if i > 0 {
			b.WriteString("\n")
		}
		if line != "" {
			b.WriteString(indent)
			b.WriteString(line)
		}
	}
	b.WriteString("\n")
	b.WriteString(indent)
	return b.String()
}

// Quote returns Go expression source that evaluates to s, preferring raw string segments. Runs of characters a raw string cannot hold become strconv.Quote segments.
// The input is scanned once.
func Quote(s string) string {
	if !utf8.ValidString(s) {
		return strconv.Quote(s)
	}
	if s == "" {
		return "``"
	}

	var segments []string
	start := 0
	inRaw := !rawUnsafe(firstRune(s))
	for i, r := range s {
		raw := !rawUnsafe(r)
		if raw == inRaw {
			continue
		}
		segments = append(segments, segment(s[start:i], inRaw))
		start = i
		inRaw = raw
	}
	segments = append(segments, segment(s[start:], inRaw))
	return strings.Join(segments, " + ")
}

// NeedsSplit reports whether s cannot be written as a single raw string literal.
func NeedsSplit(s string) bool {
	if !utf8.ValidString(s) {
		return true
	}
	for _, r := range s {
		if rawUnsafe(r) {
			return true
		}
	}
	return false
}

// Value returns the string value of expr and true, if expr is a string literal or a `+` chain of them (optionally parenthesized). The framing written by Frame
// is removed.
func Value(expr ast.Expr) (string, bool) {
	s, ok := Concat(expr)
	if !ok {
		return "", false
	}
	return Unframe(s), true
}

// Concat evaluates a string literal or a `+` chain of string literals.
func Concat(expr ast.Expr) (string, bool) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		if e.Kind != token.STRING {
			return "", false
		}
		s, err := strconv.Unquote(e.Value)
		if err != nil {
			return "", false
		}
		return s, true
	case *ast.BinaryExpr:
		if e.Op != token.ADD {
			return "", false
		}
		x, ok := Concat(e.X)
		if !ok {
			return "", false
		}
		y, ok := Concat(e.Y)
		if !ok {
			return "", false
		}
		return x + y, true
	case *ast.ParenExpr:
		return Concat(e.X)
	}
	return "", false
}

// Unframe reverses Frame. If s does not start with a newline or its last line is not whitespace only, s is returned unchanged.
func Unframe(s string) string {
	body, ok := strings.CutPrefix(s, "\n")
	if !ok {
		return s
	}
	lastNL := strings.LastIndexByte(body, '\n')
	if lastNL < 0 {
		return s
	}
	indent := body[lastNL+1:]
	if strings.Trim(indent, " \t") != "" {
		return s
	}

	lines := strings.Split(body[:lastNL], "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, indent)
	}
	return strings.Join(lines, "\n")
}

// DetectIndentUnit returns the leading whitespace of the first line of src that starts with a space or tab and is not all whitespace. ok is false if there is
// no such line.
func DetectIndentUnit(src []byte) (unit string, ok bool) {
	for _, line := range strings.Split(string(src), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || (line[0] != ' ' && line[0] != '\t') {
			continue
		}
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		return line[:len(line)-len(trimmed)], true
	}
	return "", false
}

func rawUnsafe(r rune) bool {
	return r == '`' || r == '\r' || r == '\uFEFF' || r == 0
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

func segment(s string, raw bool) string {
	if raw {
		return "`" + s + "`"
	}
	return strconv.Quote(s)
}
