package search

import (
	"cmp"
	"maps"
	"math"
	"slices"

	"github.com/Aman-CERP/mdsearch/internal/store"
)

// BM25 defaults.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// Scored is a candidate with its BM25 score.
type Scored struct {
	Doc   store.Document
	Score float64
}

// Ranker scores candidates with Okapi BM25.
type Ranker struct {
	k1 float64
	b  float64
}

// NewRanker creates a Ranker. Negative k1 and b outside [0, 1] fall back to
// the defaults.
func NewRanker(k1, b float64) *Ranker {
	if k1 < 0 {
		k1 = DefaultK1
	}
	if b < 0 || b > 1 {
		b = DefaultB
	}
	return &Ranker{k1: k1, b: b}
}

// Rank scores every candidate of res. Results are ordered by descending
// score, ties by ascending document id.
func (r *Ranker) Rank(res *store.QueryResult) []Scored {
	// Summing in a fixed term order keeps equal documents at equal scores.
	terms := slices.Sorted(maps.Keys(res.DocFreq))

	out := make([]Scored, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		var score float64
		for _, term := range terms {
			st, ok := c.Terms[term]
			if !ok {
				continue
			}
			idf := r.idf(res.DocCount, res.DocFreq[term])
			score += idf * r.tfNorm(float64(st.Freq), float64(c.Doc.Length), res.AvgLength)
		}
		out = append(out, Scored{Doc: c.Doc, Score: score})
	}

	slices.SortStableFunc(out, func(a, b Scored) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return cmp.Compare(a.Doc.ID, b.Doc.ID)
	})
	return out
}

func (r *Ranker) idf(docCount, docFreq int) float64 {
	n, df := float64(docCount), float64(docFreq)
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

func (r *Ranker) tfNorm(tf, docLen, avgLen float64) float64 {
	lengthRatio := 1.0
	if avgLen > 0 {
		lengthRatio = docLen / avgLen
	}
	return tf * (r.k1 + 1) / (tf + r.k1*(1-r.b+r.b*lengthRatio))
}
