// Package search ranks stored documents against a query with BM25 and
// renders highlighted snippets for the requested page.
package search

import (
	"time"

	"github.com/Aman-CERP/mdsearch/internal/highlight"
	"github.com/Aman-CERP/mdsearch/internal/store"
)

// Query is one search request. Validation and defaults are applied by the
// caller; a Limit of zero or less returns every result from Offset.
type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Hit is one ranked, highlighted result.
type Hit struct {
	ID      store.DocID    `json:"id"`
	Title   string         `json:"title"`
	Path    string         `json:"path"`
	Snippet string         `json:"snippet"`
	Score   float64        `json:"score"`
	Tier    highlight.Tier `json:"-"`
}

// Page is a window of the ranked result list. Pages may be shared through
// the cache and must not be modified.
type Page struct {
	// Total is the length of the full ranked list.
	Total      int    `json:"total"`
	Hits       []Hit  `json:"results"`
	Generation uint64 `json:"generation"`
}

// Observer receives query measurements.
type Observer interface {
	QueryServed(result string, d time.Duration, results int)
	CacheHit()
	CacheMiss()
}

// Result labels reported to Observer.QueryServed.
const (
	ResultOK        = "ok"
	ResultZero      = "zero_result"
	ResultError     = "error"
	ResultCancelled = "cancelled"
)

type nopObserver struct{}

func (nopObserver) QueryServed(string, time.Duration, int) {}
func (nopObserver) CacheHit()                              {}
func (nopObserver) CacheMiss()                             {}
