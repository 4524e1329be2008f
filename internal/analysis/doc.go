// Package analysis turns text into comparable terms.
//
// Tokenization follows Unicode word boundaries (UAX #29). Latin and other
// space-delimited scripts produce one token per word. Han, Hiragana and
// Katakana text produces a token for each contiguous run plus one token per
// character, so a query for part of a run still finds the document.
//
// All terms are folded: lower-cased and stripped of combining marks, except
// for CJK characters which are kept as written.
package analysis
