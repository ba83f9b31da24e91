package diff

import "strings"

// Origin identifies which side of a comparison a run of elements belongs to.
type Origin int

// Origins of a Difference.
const (
	OriginFirst  Origin = iota // present only in the first sequence (deleted)
	OriginSecond               // present only in the second sequence (inserted)
	OriginCommon               // present in both sequences
)

func (o Origin) String() string {
	switch o {
	case OriginFirst:
		return "first"
	case OriginSecond:
		return "second"
	case OriginCommon:
		return "common"
	default:
		return "unknown"
	}
}

// Difference is a run of consecutive elements that share an Origin. Elements may alias the slices passed to Sequences; callers must treat them as read-only.
type Difference[T comparable] struct {
	Elements []T
	Origin   Origin
}

// Sequences returns the edit script that turns a into b as an ordered list of runs.
//
// The search finds the longest run common to both sequences, then recurses on the parts before and after it. When several runs share the maximal length, the
// first one found while scanning b left to right wins (and, for the same position in b, the one earliest in a). If a and b share no element, the result is all
// of a as OriginFirst followed by all of b as OriginSecond, omitting whichever is empty.
//
// Complexity is O(len(a)*len(b)) in the worst case, which is fine for line counts of text.
func Sequences[T comparable](a, b []T) []Difference[T] {
	positions := make(map[T][]int, len(a))
	for i, e := range a {
		positions[e] = append(positions[e], i)
	}

	var bestA, bestB, bestLen int

	// overlap[i] is the length of the common run ending at a[i] and the previous element of b.
	overlap := map[int]int{}
	for ib, e := range b {
		next := make(map[int]int, len(positions[e]))
		for _, ia := range positions[e] {
			n := overlap[ia-1] + 1
			next[ia] = n
			if n > bestLen {
				bestLen = n
				bestA = ia - n + 1
				bestB = ib - n + 1
			}
		}
		overlap = next
	}

	if bestLen == 0 {
		var out []Difference[T]
		if len(a) > 0 {
			out = append(out, Difference[T]{Elements: a, Origin: OriginFirst})
		}
		if len(b) > 0 {
			out = append(out, Difference[T]{Elements: b, Origin: OriginSecond})
		}
		return out
	}

	out := Sequences(a[:bestA], b[:bestB])
	out = append(out, Difference[T]{Elements: b[bestB : bestB+bestLen], Origin: OriginCommon})
	return append(out, Sequences(a[bestA+bestLen:], b[bestB+bestLen:])...)
}

// Lines diffs two texts line by line. Lines are separated by "\n"; empty lines (including a trailing empty line after a final "\n") are significant.
func Lines(a, b string) []Difference[string] {
	return Sequences(strings.Split(a, eol), strings.Split(b, eol))
}

// eol is the line separator used by Lines and the renderers.
const eol = "\n"
