// Package textindex is the plain-keyword side of a query, kept deliberately
// opaque to the math core (spec.md sec 6: "<idx>/term/... # text index
// (opaque to this spec)"). Adapted from the teacher's in-memory metadata
// store (internal/storage/memory.Store): a map guarded by sync.RWMutex,
// generalized here from "metric name -> metadata" to "term -> posting
// list".
package textindex

import (
	"math"
	"sort"
	"sync"
)

// Posting is one term occurrence: the document and term frequency within
// it, the minimal data textindex contributes to query-time scoring.
type Posting struct {
	DocID uint32
	Freq  uint32
}

// Index is an in-memory inverted index over plain keywords.
type Index struct {
	mu    sync.RWMutex
	terms map[string][]Posting
	nDocs uint64
}

// New returns an empty text index.
func New() *Index {
	return &Index{terms: make(map[string][]Posting)}
}

// AddDocument records one document's term frequencies. Callers pass
// already-tokenized, already-lowercased terms; tokenization policy lives
// in internal/ingest, not here.
func (ix *Index) AddDocument(docID uint32, termFreq map[string]uint32) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.nDocs++
	for term, freq := range termFreq {
		ix.terms[term] = append(ix.terms[term], Posting{DocID: docID, Freq: freq})
	}
}

// Lookup returns term's posting list (sorted by docID, the order its
// iterator needs) and its inverse document frequency (spec.md sec 6:
// "TextIndexLookup(term) -> (PostingIterator, idf)").
func (ix *Index) Lookup(term string) ([]Posting, float32) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	postings := ix.terms[term]
	if len(postings) == 0 || ix.nDocs == 0 {
		return nil, 0
	}
	out := make([]Posting, len(postings))
	copy(out, postings)
	sort.Slice(out, func(i, j int) bool { return out[i].DocID < out[j].DocID })

	idf := idfOf(ix.nDocs, uint64(len(postings)))
	return out, idf
}

func idfOf(nDocs, df uint64) float32 {
	if df == 0 {
		return 0
	}
	// log((N - df + 0.5) / (df + 0.5) + 1), the standard BM25-style idf,
	// floored at a small positive value so a term present in nearly every
	// document still contributes rather than going negative.
	ratio := (float64(nDocs) - float64(df) + 0.5) / (float64(df) + 0.5)
	v := math.Log(ratio + 1)
	if v < 0.01 {
		v = 0.01
	}
	return float32(v)
}
