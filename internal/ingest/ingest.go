// Package ingest is the document ingestion orchestrator: it runs the TeX
// parser and C1+C2 over each document's embedded math, appends the
// resulting elements to the math index, tokenizes the surrounding text
// into the text index, and stores the document's blob. It implements the
// indexer's Parse-error tolerance policy (spec.md sec 7).
package ingest

import (
	"github.com/texmath/mathsearch/internal/blobstore"
	"github.com/texmath/mathsearch/internal/errkind"
	"github.com/texmath/mathsearch/internal/texparse"
	"github.com/texmath/mathsearch/internal/textindex"
	"github.com/texmath/mathsearch/pkg/mathindex"
	"github.com/texmath/mathsearch/pkg/scorer"
	"github.com/texmath/mathsearch/pkg/subpath"
)

// Config controls tolerance policy and limits.
type Config struct {
	// TolerateParse, when true, skips an expression that fails to parse,
	// counts it, and continues with the rest of the document (spec.md
	// sec 7). When false, the first parse failure aborts the document.
	// An expression that overflows MaxLeaves is always skipped and
	// counted in OverflowErrors, whatever this flag says.
	TolerateParse bool
	// OnSkippedExpr, if set, is invoked for every skipped expression
	// (spec.md sec 7: "invokes an optional exception callback").
	OnSkippedExpr func(docID uint32, err error)
}

// Ingester wires the math index, text index, and blob store together for
// one indexing run.
type Ingester struct {
	idx    *mathindex.Index
	text   *textindex.Index
	blobs  *blobstore.Store
	cfg    Config
	nextID uint32

	ParseErrors    uint64
	OverflowErrors uint64
}

// New returns an Ingester. blobs may be nil when the run doesn't persist
// document bodies (e.g. a test harness indexing in-memory fixtures).
func New(idx *mathindex.Index, text *textindex.Index, blobs *blobstore.Store, cfg Config) *Ingester {
	return &Ingester{idx: idx, text: text, blobs: blobs, cfg: cfg, nextID: 1}
}

// IngestDocument parses body's [imath]...[/imath] segments, indexes each
// expression's elements under a freshly assigned docID, tokenizes the
// surrounding text, and stores the blob. It returns the assigned docID.
func (ing *Ingester) IngestDocument(url, body string) (uint32, error) {
	const op = "ingest.IngestDocument"
	docID := ing.nextID
	ing.nextID++

	var cursor Cursor
	termFreq := make(map[string]uint32)
	var expID uint32

	for _, seg := range splitSegments(body) {
		if !seg.isMath {
			for _, tok := range tokenize(seg.text) {
				termFreq[tok]++
				cursor.Next()
			}
			continue
		}

		tree, perr := texparse.Parse(seg.text)
		if perr != nil {
			ing.ParseErrors++
			if ing.cfg.OnSkippedExpr != nil {
				ing.cfg.OnSkippedExpr(docID, perr)
			}
			if !ing.cfg.TolerateParse {
				return docID, perr
			}
			cursor.Next()
			continue
		}

		subpaths, serr := subpath.ExtractPaths(tree)
		if serr != nil {
			ing.OverflowErrors++
			if ing.cfg.OnSkippedExpr != nil {
				ing.cfg.OnSkippedExpr(docID, serr)
			}
			if !ing.cfg.TolerateParse && errkind.Of(serr) != errkind.Overflow {
				return docID, serr
			}
			cursor.Next()
			continue
		}

		for _, el := range subpath.BuildElements(subpaths) {
			weight := scorer.ElementWeight(el)
			ing.idx.AppendElement(docID, expID, el, weight)
		}
		ing.idx.Stats.NTex++
		cursor.Next()
		expID++
	}

	if ing.text != nil {
		ing.text.AddDocument(docID, termFreq)
	}
	if ing.blobs != nil {
		if err := <-ing.blobs.Put(docID, url, []byte(body)); err != nil {
			return docID, errkind.New(errkind.Io, op, err)
		}
	}
	return docID, nil
}
