package mathindex

import (
	"github.com/texmath/mathsearch/pkg/postingcodec"
	"github.com/texmath/mathsearch/pkg/postingstore"
)

// MaxPostingsPerElement bounds how many postings a single query element's
// iterator may contribute to one merge before it reports itself exhausted,
// the Go-side analogue of the original's MAX_POSTINGS_PER_MATH (spec.md
// SUPPLEMENTED FEATURES item 1): it stops one pathologically common
// expression from dominating a merge's work, independent of
// pkg/queryprep.MaxMergePostings, which only bounds the total element
// count.
const MaxPostingsPerElement = 4096

// Iterator adapts one element's posting-list Reader to the merger's
// generic Iterator contract (pkg/merger), carrying the element's
// precomputed upper bound and the last record read so the scorer can
// inspect its sector trees once the merger positions it at a candidate.
type Iterator struct {
	reader *postingstore.Reader
	upper  float32

	cur      postingcodec.Record
	curKey   uint64
	hasCur   bool
	started  bool
	consumed int
}

// NewIterator wraps reader, or returns an already-exhausted Iterator if
// reader is nil (the element's fingerprint had no postings).
func NewIterator(reader *postingstore.Reader, upper float32) *Iterator {
	return &Iterator{reader: reader, upper: upper}
}

func (it *Iterator) ensureStarted() {
	if it.started {
		return
	}
	it.started = true
	it.advance(0)
}

func (it *Iterator) advance(target uint64) {
	if it.reader == nil || it.consumed >= MaxPostingsPerElement {
		it.hasCur = false
		return
	}
	rec, ok, err := it.reader.AdvanceTo(target)
	if err != nil || !ok {
		it.hasCur = false
		return
	}
	it.cur = rec
	it.curKey = rec.Key()
	it.hasCur = true
	it.consumed++
}

// Cur implements merger.Iterator.
func (it *Iterator) Cur() uint64 {
	it.ensureStarted()
	if !it.hasCur {
		return exhaustedKey
	}
	return it.curKey
}

// AdvanceTo implements merger.Iterator.
func (it *Iterator) AdvanceTo(target uint64) error {
	it.ensureStarted()
	it.advance(target)
	return nil
}

// UpperBound implements merger.Iterator.
func (it *Iterator) UpperBound() float32 { return it.upper }

// Record returns the record at the iterator's current position, valid
// only immediately after Cur()/AdvanceTo report a non-exhausted position.
func (it *Iterator) Record() (postingcodec.Record, bool) {
	it.ensureStarted()
	return it.cur, it.hasCur
}

const exhaustedKey = ^uint64(0)
