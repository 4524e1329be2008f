package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFold(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "ascii upper", input: "Hello World", want: "hello world"},
		{name: "accents", input: "Crème Brûlée", want: "creme brulee"},
		{name: "cjk unchanged", input: "人工智能", want: "人工智能"},
		{name: "kana keeps voicing", input: "ガ", want: "ガ"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.input))
		})
	}
}

func TestFoldText_MapsOffsetsBack(t *testing.T) {
	// Given: text with an accented word
	src := "Le Café est ouvert"

	// When: folding with offsets
	f := FoldText(src)

	// Then: a match in the folded text maps back to the original bytes
	i := strings.Index(f.Text, "cafe")
	require.GreaterOrEqual(t, i, 0)
	start, end := f.Source(i, i+len("cafe"))
	assert.Equal(t, "Café", src[start:end])
}

func TestFoldText_CollapsesWhitespace(t *testing.T) {
	// Given: words separated by mixed whitespace
	src := "quick \n\t brown"

	// When: folding
	f := FoldText(src)

	// Then: the whitespace run is a single space that maps to the whole run
	assert.Equal(t, "quick brown", f.Text)
	start, end := f.Source(0, len(f.Text))
	assert.Equal(t, src, src[start:end])
}

func TestFoldText_CJK(t *testing.T) {
	src := "关于人工智能"
	f := FoldText(src)

	i := strings.Index(f.Text, "智能")
	require.GreaterOrEqual(t, i, 0)
	start, end := f.Source(i, i+len("智能"))
	assert.Equal(t, "智能", src[start:end])
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, "brown fox", CollapseSpace("  Brown \t FOX  "))
	assert.Equal(t, "", CollapseSpace("   "))
}
