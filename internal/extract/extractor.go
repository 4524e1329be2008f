// Package extract turns raw document bytes into the fields the index stores:
// title, summary, normalized body and the token stream.
package extract

import (
	"log/slog"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/mdsearch/internal/analysis"
)

// DefaultSummaryChars is the summary length used when none is configured.
const DefaultSummaryChars = 200

// Result is the extracted form of one document.
type Result struct {
	Title   string
	Summary string
	// Body is the text after the metadata block, trimmed.
	Body     string
	Encoding string
	// MetadataIgnored is set when a metadata block was present but malformed.
	MetadataIgnored bool
	// Tokens covers the title followed by the body.
	Tokens []analysis.Token
}

// Extractor extracts documents. It is safe for concurrent use.
type Extractor struct {
	summaryChars int
	logger       *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSummaryChars sets the summary length in characters.
func WithSummaryChars(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.summaryChars = n
		}
	}
}

// WithLogger sets the logger used for metadata warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		summaryChars: DefaultSummaryChars,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract decodes data and derives the document fields. name is the
// slash-separated path of the document; its base name without extension is
// the fallback title.
func (e *Extractor) Extract(name string, data []byte) (*Result, error) {
	text, enc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	text = normalizeNewlines(text)

	meta, body, present, ok := splitFrontmatter(text)
	if present && !ok {
		e.logger.Warn("metadata_ignored",
			slog.String("path", name),
			slog.String("reason", "malformed metadata block"))
	}

	body = strings.TrimSpace(body)

	title := strings.TrimSpace(meta.title)
	if !meta.hasTitle || title == "" {
		title = Stem(name)
	}

	return &Result{
		Title:           title,
		Summary:         Summarize(body, e.summaryChars),
		Body:            body,
		Encoding:        enc,
		MetadataIgnored: present && !ok,
		Tokens:          analysis.TokenizeFields(title, body),
	}, nil
}

// Stem returns the base name of p without its extension.
func Stem(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// Summarize returns the first n runes of s.
func Summarize(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
