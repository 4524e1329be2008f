package highlight

import (
	"slices"
	"strings"

	"github.com/Aman-CERP/mdsearch/internal/analysis"
)

// Tier identifies the matcher that produced a snippet's marks.
type Tier int

const (
	// TierNone means nothing in the text matched the query.
	TierNone Tier = iota
	// TierExactPhrase marks occurrences of the whole query.
	TierExactPhrase
	// TierTokenFragment marks whole tokens equal to a query token.
	TierTokenFragment
	// TierCharacterLevel marks single CJK characters found in the query.
	TierCharacterLevel
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierExactPhrase:
		return "exact_phrase"
	case TierTokenFragment:
		return "token_fragment"
	case TierCharacterLevel:
		return "character_level"
	default:
		return "none"
	}
}

// outranks reports whether t is a match of a higher tier than o.
func (t Tier) outranks(o Tier) bool {
	return t != TierNone && (o == TierNone || t < o)
}

// Span is a byte range [Start, End) of the highlighted text.
type Span struct {
	Start int
	End   int
}

// query is the pre-processed form of a search query.
type query struct {
	phrase string
	whole  map[string]struct{}
	chars  map[string]struct{}
}

func prepare(q string) query {
	p := query{
		phrase: analysis.CollapseSpace(q),
		whole:  make(map[string]struct{}),
		chars:  make(map[string]struct{}),
	}
	for _, tok := range analysis.Tokenize(q) {
		if tok.Whole {
			p.whole[tok.Term] = struct{}{}
		}
	}
	for _, r := range analysis.Fold(q) {
		if analysis.IsCJK(r) {
			p.chars[string(r)] = struct{}{}
		}
	}
	return p
}

// strategy finds the spans of one tier.
type strategy struct {
	tier  Tier
	match func(q query, text string, tokens []analysis.Token) []Span
}

// strategies are tried in order; the first with a match wins.
var strategies = []strategy{
	{tier: TierExactPhrase, match: matchPhrase},
	{tier: TierTokenFragment, match: matchTokens},
	{tier: TierCharacterLevel, match: matchChars},
}

// Match returns the merged spans of the highest tier that matches q in text.
func Match(q, text string) ([]Span, Tier) {
	return match(prepare(q), text, analysis.Tokenize(text))
}

func match(q query, text string, tokens []analysis.Token) ([]Span, Tier) {
	for _, s := range strategies {
		if spans := s.match(q, text, tokens); len(spans) > 0 {
			return merge(spans), s.tier
		}
	}
	return nil, TierNone
}

// matchPhrase finds every occurrence of the collapsed query that starts and
// ends on token boundaries.
func matchPhrase(q query, text string, tokens []analysis.Token) []Span {
	if q.phrase == "" {
		return nil
	}

	starts := make(map[int]struct{}, len(tokens))
	ends := make(map[int]struct{}, len(tokens))
	for _, tok := range tokens {
		if tok.Whole {
			starts[tok.Start] = struct{}{}
			ends[tok.End] = struct{}{}
		}
	}

	f := analysis.FoldText(text)
	var spans []Span
	for from := 0; from < len(f.Text); {
		i := strings.Index(f.Text[from:], q.phrase)
		if i < 0 {
			break
		}
		i += from
		start, end := f.Source(i, i+len(q.phrase))
		_, okStart := starts[start]
		_, okEnd := ends[end]
		if okStart && okEnd {
			spans = append(spans, Span{Start: start, End: end})
			from = i + len(q.phrase)
			continue
		}
		from = i + 1
	}
	return spans
}

// matchTokens marks whole text tokens whose term is a whole query token.
func matchTokens(q query, _ string, tokens []analysis.Token) []Span {
	var spans []Span
	for _, tok := range tokens {
		if !tok.Whole {
			continue
		}
		if _, ok := q.whole[tok.Term]; ok {
			spans = append(spans, Span{Start: tok.Start, End: tok.End})
		}
	}
	return spans
}

// matchChars marks CJK characters of the text that occur in the query.
func matchChars(q query, _ string, tokens []analysis.Token) []Span {
	if len(q.chars) == 0 {
		return nil
	}
	var spans []Span
	for _, tok := range tokens {
		if tok.Kind != analysis.KindChar {
			continue
		}
		if _, ok := q.chars[tok.Term]; ok {
			spans = append(spans, Span{Start: tok.Start, End: tok.End})
		}
	}
	return spans
}

// merge sorts spans and joins those that overlap or touch.
func merge(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	slices.SortFunc(spans, func(a, b Span) int {
		if a.Start != b.Start {
			return a.Start - b.Start
		}
		return a.End - b.End
	})

	out := []Span{spans[0]}
	for _, s := range spans[1:] {
		last := &out[len(out)-1]
		if s.Start <= last.End {
			last.End = max(last.End, s.End)
			continue
		}
		out = append(out, s)
	}
	return out
}
