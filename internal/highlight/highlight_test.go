package highlight

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_Tiers(t *testing.T) {
	tests := []struct {
		name  string
		query string
		text  string
		tier  Tier
		marks []string
	}{
		{
			name:  "exact phrase",
			query: "brown fox",
			text:  "The quick brown fox jumps",
			tier:  TierExactPhrase,
			marks: []string{"brown fox"},
		},
		{
			name:  "phrase across line break and case",
			query: "Brown   FOX",
			text:  "quick brown\nfox",
			tier:  TierExactPhrase,
			marks: []string{"brown\nfox"},
		},
		{
			name:  "phrase with accents",
			query: "cafe",
			text:  "Le Café est ouvert",
			tier:  TierExactPhrase,
			marks: []string{"Café"},
		},
		{
			name:  "phrase must align to tokens",
			query: "fox",
			text:  "foxes and a fox",
			tier:  TierExactPhrase,
			marks: []string{"fox"},
		},
		{
			name:  "token fragment when phrase is absent",
			query: "fox brown",
			text:  "brown dogs chase a fox",
			tier:  TierTokenFragment,
			marks: []string{"brown", "fox"},
		},
		{
			name:  "character level inside a cjk run",
			query: "智能",
			text:  "人工智能",
			tier:  TierCharacterLevel,
			marks: []string{"智能"},
		},
		{
			name:  "no match",
			query: "zebra",
			text:  "quick brown fox",
			tier:  TierNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans, tier := Match(tt.query, tt.text)
			assert.Equal(t, tt.tier, tier)

			var got []string
			for _, s := range spans {
				got = append(got, tt.text[s.Start:s.End])
			}
			assert.Equal(t, tt.marks, got)
		})
	}
}

func TestMerge(t *testing.T) {
	spans := merge([]Span{{Start: 10, End: 12}, {Start: 0, End: 3}, {Start: 3, End: 5}, {Start: 11, End: 15}, {Start: 20, End: 21}})
	assert.Equal(t, []Span{{Start: 0, End: 5}, {Start: 10, End: 15}, {Start: 20, End: 21}}, spans)
	assert.Nil(t, merge(nil))
}

func TestHighlight_GuideScenario(t *testing.T) {
	h := New()

	s := h.Document("fox", "Guide", "quick brown fox")

	assert.Equal(t, "quick brown <mark>fox</mark>", s.Text)
	assert.Equal(t, TierExactPhrase, s.Tier)
	assert.True(t, s.Matched())
}

func TestHighlight_CJKMarksMerge(t *testing.T) {
	h := New()

	s := h.Highlight("智能", "人工智能")

	assert.Equal(t, "人工<mark>智能</mark>", s.Text)
	assert.Equal(t, TierCharacterLevel, s.Tier)
}

func TestHighlight_Window(t *testing.T) {
	// Given: a long text with one match in the middle
	words := make([]string, 50)
	for i := range words {
		words[i] = "filler"
	}
	words[25] = "needle"
	text := strings.Join(words, " ")

	// When: highlighting with a two-unit window
	h := New(WithWindow(2))
	s := h.Highlight("needle", text)

	// Then: the window is cut on both sides
	assert.Equal(t, "...filler filler <mark>needle</mark> filler filler...", s.Text)
}

func TestHighlight_WindowAtEdges(t *testing.T) {
	h := New(WithWindow(2))

	s := h.Highlight("alpha", "alpha beta gamma delta epsilon.")
	assert.Equal(t, "<mark>alpha</mark> beta gamma...", s.Text)

	s = h.Highlight("epsilon", "alpha beta gamma delta epsilon.")
	assert.Equal(t, "...gamma delta <mark>epsilon</mark>.", s.Text)
}

func TestHighlight_CustomMarkers(t *testing.T) {
	h := New(WithMarkers("[", "]"))

	s := h.Highlight("fox", "the fox")

	assert.Equal(t, "the [fox]", s.Text)
}

func TestHighlight_MarksNeverNest(t *testing.T) {
	h := New()

	s := h.Highlight("fox fox", "fox fox fox")

	assert.Equal(t, 1, strings.Count(s.Text, "<mark>"))
	assert.NotContains(t, s.Text, "<mark><mark>")
	assert.Equal(t, strings.Count(s.Text, "<mark>"), strings.Count(s.Text, "</mark>"))
}

func TestDocument_TitleFallback(t *testing.T) {
	h := New()

	s := h.Document("guide", "User Guide", "nothing relevant here")

	assert.Equal(t, "User <mark>Guide</mark>", s.Text)
	assert.True(t, s.Matched())
}

func TestDocument_HighestTierFieldWins(t *testing.T) {
	tests := []struct {
		name     string
		q        string
		title    string
		body     string
		wantTier Tier
		want     string
	}{
		{
			name:     "title token beats body characters",
			q:        "ai智",
			title:    "AI notes",
			body:     "人工智能",
			wantTier: TierTokenFragment,
			want:     "<mark>AI</mark> notes",
		},
		{
			name:     "body wins a tie",
			q:        "fox",
			title:    "Fox facts",
			body:     "quick brown fox",
			wantTier: TierExactPhrase,
			want:     "quick brown <mark>fox</mark>",
		},
		{
			name:     "body exact beats title",
			q:        "brown fox",
			title:    "Brown fox",
			body:     "the quick brown fox",
			wantTier: TierExactPhrase,
			want:     "the quick <mark>brown fox</mark>",
		},
	}

	h := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := h.Document(tt.q, tt.title, tt.body)
			assert.Equal(t, tt.wantTier, s.Tier)
			assert.Equal(t, tt.want, s.Text)
		})
	}
}

func TestTier_Outranks(t *testing.T) {
	assert.True(t, TierExactPhrase.outranks(TierTokenFragment))
	assert.True(t, TierCharacterLevel.outranks(TierNone))
	assert.False(t, TierTokenFragment.outranks(TierTokenFragment))
	assert.False(t, TierNone.outranks(TierNone))
	assert.False(t, TierCharacterLevel.outranks(TierExactPhrase))
}

func TestDocument_NoMatchReturnsLeadingUnits(t *testing.T) {
	h := New(WithWindow(1))

	s := h.Document("zebra", "Title", "one two three four five")

	assert.Equal(t, TierNone, s.Tier)
	assert.Equal(t, "one two three...", s.Text)
	assert.NotContains(t, s.Text, "<mark>")
}

func TestHighlight_EveryMatchedSnippetHasMark(t *testing.T) {
	h := New()
	inputs := []struct{ q, text string }{
		{"brown", "The quick\n\nbrown fox"},
		{"über", "Ueber alles, über alles"},
		{"语言", "Go 语言 rocks"},
		{"言", "Go 语言 rocks"},
	}
	for _, in := range inputs {
		s := h.Highlight(in.q, in.text)
		require.True(t, s.Matched(), in.q)
		assert.Contains(t, s.Text, "<mark>", in.q)
	}
}
