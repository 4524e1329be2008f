// Package highlight builds bounded, marked snippets of matched text.
package highlight

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Aman-CERP/mdsearch/internal/analysis"
)

// Defaults for a Highlighter.
const (
	DefaultMarkOpen  = "<mark>"
	DefaultMarkClose = "</mark>"
	DefaultWindow    = 10
	Ellipsis         = "..."
)

// Snippet is a marked excerpt.
type Snippet struct {
	Text string
	Tier Tier
}

// Matched reports whether the snippet carries marks.
func (s Snippet) Matched() bool {
	return s.Tier != TierNone
}

// Highlighter renders snippets. It is safe for concurrent use.
type Highlighter struct {
	markOpen  string
	markClose string
	window    int
}

// Option configures a Highlighter.
type Option func(*Highlighter)

// WithMarkers sets the strings placed around matches.
func WithMarkers(open, closing string) Option {
	return func(h *Highlighter) {
		h.markOpen, h.markClose = open, closing
	}
}

// WithWindow sets how many units are kept on each side of the first match.
func WithWindow(units int) Option {
	return func(h *Highlighter) {
		if units > 0 {
			h.window = units
		}
	}
}

// New creates a Highlighter.
func New(opts ...Option) *Highlighter {
	h := &Highlighter{
		markOpen:  DefaultMarkOpen,
		markClose: DefaultMarkClose,
		window:    DefaultWindow,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Highlight marks q in text and cuts a window around the first match. With
// no match the leading units are returned unmarked.
func (h *Highlighter) Highlight(q, text string) Snippet {
	tokens := analysis.Tokenize(text)
	spans, tier := match(prepare(q), text, tokens)
	return Snippet{Text: h.render(text, tokens, spans), Tier: tier}
}

// Document highlights the field whose match has the highest tier. The body
// wins ties, and is shown unmarked when neither field matches.
func (h *Highlighter) Document(q, title, body string) Snippet {
	p := prepare(q)

	bodyTokens := analysis.Tokenize(body)
	bodySpans, bodyTier := match(p, body, bodyTokens)
	if bodyTier == TierExactPhrase {
		return Snippet{Text: h.render(body, bodyTokens, bodySpans), Tier: bodyTier}
	}

	titleTokens := analysis.Tokenize(title)
	if spans, tier := match(p, title, titleTokens); tier.outranks(bodyTier) {
		return Snippet{Text: h.render(title, titleTokens, spans), Tier: tier}
	}
	return Snippet{Text: h.render(body, bodyTokens, bodySpans), Tier: bodyTier}
}

func (h *Highlighter) render(text string, tokens []analysis.Token, spans []Span) string {
	var units []analysis.Token
	for _, tok := range tokens {
		if tok.IsUnit() {
			units = append(units, tok)
		}
	}
	if len(units) == 0 {
		return squash(text)
	}

	lo, hi := 0, min(len(units)-1, 2*h.window)
	if len(spans) > 0 {
		first := spans[0]
		a := unitAt(units, first.Start)
		b := a
		for b+1 < len(units) && units[b+1].Start < first.End {
			b++
		}
		lo = max(0, a-h.window)
		hi = min(len(units)-1, b+h.window)
	}

	start, end := units[lo].Start, units[hi].End
	if lo == 0 {
		start = 0
	}
	if hi == len(units)-1 {
		end = len(text)
	}

	var b strings.Builder
	if lo > 0 {
		b.WriteString(Ellipsis)
	}
	var body strings.Builder
	pos := start
	for _, s := range spans {
		s.Start = max(s.Start, start)
		s.End = min(s.End, end)
		if s.Start >= s.End || s.Start < pos {
			continue
		}
		body.WriteString(squash(text[pos:s.Start]))
		body.WriteString(h.markOpen)
		body.WriteString(squash(text[s.Start:s.End]))
		body.WriteString(h.markClose)
		pos = s.End
	}
	body.WriteString(squash(text[pos:end]))
	b.WriteString(strings.TrimSpace(body.String()))
	if hi < len(units)-1 {
		b.WriteString(Ellipsis)
	}
	return b.String()
}

// unitAt returns the index of the first unit ending after offset.
func unitAt(units []analysis.Token, offset int) int {
	for i, u := range units {
		if u.End > offset {
			return i
		}
	}
	return len(units) - 1
}

// squash replaces every whitespace run with a single space.
func squash(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for i := 0; i < len(s); {
		r, w := utf8.DecodeRuneInString(s[i:])
		i += w
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
