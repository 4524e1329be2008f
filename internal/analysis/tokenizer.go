package analysis

import (
	"bytes"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/segment"
)

// Kind classifies a token by how it was segmented.
type Kind uint8

const (
	// KindWord is a run of letters or digits delimited by word boundaries.
	KindWord Kind = iota
	// KindRun is a contiguous run of two or more CJK characters.
	KindRun
	// KindChar is a single CJK character.
	KindChar
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindWord:
		return "word"
	case KindRun:
		return "run"
	case KindChar:
		return "char"
	default:
		return "unknown"
	}
}

// Token is one indexable term with its location in the source text.
//
// Start and End are byte offsets into the tokenized text. Pos is the unit
// position: words and CJK characters take consecutive positions, a run shares
// the position of its first character.
type Token struct {
	Term  string
	Kind  Kind
	Start int
	End   int
	Pos   int
	// Whole is set for tokens that stand on their own in the text: words,
	// runs, and CJK characters that are not part of a longer run.
	Whole bool
}

// IsUnit reports whether the token occupies its own position.
func (t Token) IsUnit() bool {
	return t.Kind != KindRun
}

// IsCJK reports whether r belongs to a script written without spaces
// between words.
func IsCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r)
}

// Tokenize segments text into words, CJK runs and CJK characters.
func Tokenize(text string) []Token {
	if text == "" {
		return nil
	}
	buf := []byte(text)
	seg := segment.NewWordSegmenterDirect(buf)

	tk := tokenizer{text: text}
	offset := 0
	for seg.Segment() {
		piece := seg.Bytes()
		start := offset
		if !bytes.HasPrefix(buf[offset:], piece) {
			idx := bytes.Index(buf[offset:], piece)
			if idx < 0 {
				break
			}
			start = offset + idx
		}
		end := start + len(piece)
		offset = end

		switch seg.Type() {
		case segment.Letter, segment.Number:
			tk.word(start, end)
		case segment.Ideo, segment.Kana:
			tk.cjk(start, end)
		default:
			tk.flush()
		}
	}
	tk.flush()
	return tk.tokens
}

// Units returns the number of positions toks occupy. CJK runs overlap the
// characters they span and are not counted.
func Units(toks []Token) int {
	n := 0
	for _, tok := range toks {
		if tok.IsUnit() {
			n++
		}
	}
	return n
}

// TokenizeFields tokenizes several fields as one stream. Positions continue
// across fields; offsets stay relative to each field.
func TokenizeFields(fields ...string) []Token {
	var out []Token
	shift := 0
	for _, f := range fields {
		toks := Tokenize(f)
		for i := range toks {
			toks[i].Pos += shift
		}
		shift += Units(toks)
		out = append(out, toks...)
	}
	return out
}

// Terms returns the distinct terms of text in first-occurrence order.
func Terms(text string) []string {
	toks := Tokenize(text)
	seen := make(map[string]struct{}, len(toks))
	terms := make([]string, 0, len(toks))
	for _, t := range toks {
		if _, ok := seen[t.Term]; ok {
			continue
		}
		seen[t.Term] = struct{}{}
		terms = append(terms, t.Term)
	}
	return terms
}

type cjkChar struct {
	start, end int
}

type tokenizer struct {
	text   string
	tokens []Token
	pos    int
	group  []cjkChar
}

func (t *tokenizer) word(start, end int) {
	t.flush()
	term := Fold(t.text[start:end])
	if term == "" {
		return
	}
	t.tokens = append(t.tokens, Token{
		Term:  term,
		Kind:  KindWord,
		Start: start,
		End:   end,
		Pos:   t.pos,
		Whole: true,
	})
	t.pos++
}

func (t *tokenizer) cjk(start, end int) {
	for i := start; i < end; {
		_, width := utf8.DecodeRuneInString(t.text[i:])
		t.group = append(t.group, cjkChar{start: i, end: i + width})
		i += width
	}
}

func (t *tokenizer) flush() {
	if len(t.group) == 0 {
		return
	}
	first := t.pos
	if len(t.group) > 1 {
		start, end := t.group[0].start, t.group[len(t.group)-1].end
		t.tokens = append(t.tokens, Token{
			Term:  Fold(t.text[start:end]),
			Kind:  KindRun,
			Start: start,
			End:   end,
			Pos:   first,
			Whole: true,
		})
	}
	for _, c := range t.group {
		t.tokens = append(t.tokens, Token{
			Term:  Fold(t.text[c.start:c.end]),
			Kind:  KindChar,
			Start: c.start,
			End:   c.end,
			Pos:   t.pos,
			Whole: len(t.group) == 1,
		})
		t.pos++
	}
	t.group = t.group[:0]
}
