package store

import (
	"slices"
	"sync"

	"github.com/Aman-CERP/mdsearch/internal/analysis"
)

type entry struct {
	doc   Document
	terms []string
}

// table is one generation of the index. A published table is mutated only
// under mu by the single writer. A staged table is private to its rebuild.
type table struct {
	mu          sync.RWMutex
	gen         uint64
	docs        map[DocID]*entry
	paths       map[string]DocID
	postings    map[string][]Posting
	totalTokens int64
}

func newTable() *table {
	return &table{
		docs:     make(map[DocID]*entry),
		paths:    make(map[string]DocID),
		postings: make(map[string][]Posting),
	}
}

// put replaces the record and postings of doc.ID.
func (t *table) put(doc Document, tokens []analysis.Token) {
	t.del(doc.ID)

	positions := make(map[string][]int)
	terms := make([]string, 0)
	for _, tok := range tokens {
		if _, ok := positions[tok.Term]; !ok {
			terms = append(terms, tok.Term)
		}
		positions[tok.Term] = append(positions[tok.Term], tok.Pos)
	}
	for _, term := range terms {
		list := t.postings[term]
		i, _ := slices.BinarySearchFunc(list, doc.ID, comparePosting)
		t.postings[term] = slices.Insert(list, i, Posting{Doc: doc.ID, Positions: positions[term]})
	}

	doc.Length = analysis.Units(tokens)
	t.docs[doc.ID] = &entry{doc: doc, terms: terms}
	t.paths[doc.Path] = doc.ID
	t.totalTokens += int64(doc.Length)
}

// del removes a document and all its postings.
func (t *table) del(id DocID) {
	e, ok := t.docs[id]
	if !ok {
		return
	}
	for _, term := range e.terms {
		list := t.postings[term]
		i, found := slices.BinarySearchFunc(list, id, comparePosting)
		if !found {
			continue
		}
		if len(list) == 1 {
			delete(t.postings, term)
			continue
		}
		t.postings[term] = slices.Delete(list, i, i+1)
	}
	delete(t.paths, e.doc.Path)
	delete(t.docs, id)
	t.totalTokens -= int64(e.doc.Length)
}

func (t *table) query(terms []string) *QueryResult {
	res := &QueryResult{
		Generation: t.gen,
		DocCount:   len(t.docs),
		DocFreq:    make(map[string]int, len(terms)),
	}
	if len(t.docs) > 0 {
		res.AvgLength = float64(t.totalTokens) / float64(len(t.docs))
	}

	byDoc := make(map[DocID]map[string]TermStat)
	for _, term := range terms {
		list := t.postings[term]
		res.DocFreq[term] = len(list)
		for _, p := range list {
			stats, ok := byDoc[p.Doc]
			if !ok {
				stats = make(map[string]TermStat)
				byDoc[p.Doc] = stats
			}
			stats[term] = TermStat{Freq: len(p.Positions), Positions: p.Positions}
		}
	}

	res.Candidates = make([]Candidate, 0, len(byDoc))
	for id, stats := range byDoc {
		res.Candidates = append(res.Candidates, Candidate{Doc: t.docs[id].doc, Terms: stats})
	}
	slices.SortFunc(res.Candidates, func(a, b Candidate) int {
		return compareID(a.Doc.ID, b.Doc.ID)
	})
	return res
}

func comparePosting(p Posting, id DocID) int {
	return compareID(p.Doc, id)
}

func compareID(a, b DocID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
