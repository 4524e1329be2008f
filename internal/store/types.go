// Package store holds the document index: records, positional postings and
// the generation-stamped snapshots that queries read from.
//
// A Store has a single writer at a time. Readers never block on a rebuild:
// they keep reading the table they loaded while a replacement is staged.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Aman-CERP/mdsearch/internal/analysis"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a document id is unknown.
	ErrNotFound = errors.New("document not found")
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")
	// ErrRebuildInProgress is returned when a rebuild is already staged.
	ErrRebuildInProgress = errors.New("rebuild already in progress")
	// ErrRebuildDone is returned when a finished rebuild is used again.
	ErrRebuildDone = errors.New("rebuild already committed or aborted")
)

// DocID identifies a document. IDs are positive and never reassigned to a
// different path.
type DocID int64

// Document is a stored record.
type Document struct {
	ID      DocID     `json:"id"`
	Path    string    `json:"path"`
	Title   string    `json:"title"`
	Summary string    `json:"summary"`
	Content string    `json:"content"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
	// Length is the number of indexed tokens.
	Length int `json:"length"`
}

// Input is the extracted form of a document handed to Upsert.
type Input struct {
	Path    string
	Title   string
	Summary string
	Content string
	Tokens  []analysis.Token
	ModTime time.Time
	Size    int64
}

// Posting records the occurrences of one term in one document.
type Posting struct {
	Doc       DocID
	Positions []int
}

// TermStat is the per-document statistic of one query term.
type TermStat struct {
	Freq      int
	Positions []int
}

// Candidate is a document matching at least one query term.
type Candidate struct {
	Doc   Document
	Terms map[string]TermStat
}

// QueryResult is a point-in-time view of the documents matching a set of
// terms.
type QueryResult struct {
	Generation uint64
	DocCount   int
	AvgLength  float64
	// DocFreq is the number of documents containing each query term.
	DocFreq map[string]int
	// Candidates are ordered by ascending document id.
	Candidates []Candidate
}

// Stats summarizes the published table.
type Stats struct {
	Documents   int    `json:"documents"`
	Terms       int    `json:"terms"`
	TotalTokens int64  `json:"total_tokens"`
	Generation  uint64 `json:"generation"`
}

// Catalog persists documents and the id arena.
type Catalog interface {
	// Load returns all stored documents and the arena.
	Load(ctx context.Context) (*Snapshot, error)
	// Put stores doc, replacing any row for the same path, and records its
	// arena entry.
	Put(ctx context.Context, doc Document) error
	// Delete removes the document stored under path. The arena entry is kept.
	Delete(ctx context.Context, path string) error
	// DeleteAll removes every document. The arena is kept.
	DeleteAll(ctx context.Context) error
	// ReplaceAll atomically replaces all documents and merges the arena.
	ReplaceAll(ctx context.Context, docs []Document, arena map[string]DocID) error
	Close() error
}

// Snapshot is the persisted state returned by Catalog.Load.
type Snapshot struct {
	Documents []Document
	Arena     map[string]DocID
}
