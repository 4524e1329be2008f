package analysis

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldCache memoizes the folded form of non-ASCII runes.
var foldCache sync.Map // rune -> string

// Fold returns the comparison form of s: lower-cased, with combining marks
// removed from non-CJK characters so "Café" and "cafe" compare equal.
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteString(foldRune(r))
	}
	return b.String()
}

func foldRune(r rune) string {
	if r < utf8.RuneSelf {
		if 'A' <= r && r <= 'Z' {
			r += 'a' - 'A'
		}
		return string(r)
	}
	if IsCJK(r) {
		return string(r)
	}
	if v, ok := foldCache.Load(r); ok {
		return v.(string)
	}
	folded := stripMarks(strings.ToLower(string(r)))
	foldCache.Store(r, folded)
	return folded
}

// stripMarks decomposes s and drops nonspacing marks.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Folded is a folded copy of a source text that remembers, for every byte of
// the folded text, which source bytes produced it. Whitespace runs collapse to
// a single space.
type Folded struct {
	Text  string
	start []int
	end   []int
}

// FoldText folds s and records offsets back into s.
func FoldText(s string) Folded {
	var b strings.Builder
	b.Grow(len(s))
	f := Folded{
		start: make([]int, 0, len(s)),
		end:   make([]int, 0, len(s)),
	}
	lastSpace := false
	for i := 0; i < len(s); {
		r, width := utf8.DecodeRuneInString(s[i:])
		next := i + width
		if unicode.IsSpace(r) {
			if lastSpace {
				f.end[len(f.end)-1] = next
				i = next
				continue
			}
			lastSpace = true
			b.WriteByte(' ')
			f.start = append(f.start, i)
			f.end = append(f.end, next)
			i = next
			continue
		}
		lastSpace = false
		folded := foldRune(r)
		for j := 0; j < len(folded); j++ {
			f.start = append(f.start, i)
			f.end = append(f.end, next)
		}
		b.WriteString(folded)
		i = next
	}
	f.Text = b.String()
	return f
}

// Source maps the folded byte range [i, j) back to a source byte range.
func (f Folded) Source(i, j int) (int, int) {
	if i >= j || i < 0 || j > len(f.start) {
		return 0, 0
	}
	return f.start[i], f.end[j-1]
}

// CollapseSpace folds s for phrase comparison: folded, trimmed, with inner
// whitespace runs collapsed to one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(Fold(s)), " ")
}
