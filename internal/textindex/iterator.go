package textindex

import "github.com/texmath/mathsearch/pkg/postingcodec"

// Iterator adapts a term's posting list to the merger's generic Iterator
// contract, keyed the same (docID, exp_id) way math postings are so both
// can be merged together for mixed queries (exp_id is always 0 for text
// postings, which have no sub-document expression granularity).
type Iterator struct {
	postings []Posting
	idf      float32
	pos      int
}

// NewIterator wraps a term's posting list and its idf weight.
func NewIterator(postings []Posting, idf float32) *Iterator {
	return &Iterator{postings: postings, idf: idf}
}

func (it *Iterator) Cur() uint64 {
	if it.pos >= len(it.postings) {
		return exhausted
	}
	return postingcodec.PackKey(it.postings[it.pos].DocID, 0)
}

func (it *Iterator) AdvanceTo(target uint64) error {
	for it.pos < len(it.postings) {
		key := postingcodec.PackKey(it.postings[it.pos].DocID, 0)
		if key >= target {
			return nil
		}
		it.pos++
	}
	return nil
}

// UpperBound is this term's static contribution bound: idf times the
// highest term frequency it posts, the BM25-style ceiling on tf-idf score.
func (it *Iterator) UpperBound() float32 {
	var maxFreq uint32
	for _, p := range it.postings {
		if p.Freq > maxFreq {
			maxFreq = p.Freq
		}
	}
	return it.idf * float32(maxFreq)
}

// Freq returns the term frequency at the iterator's current position, or 0
// once exhausted.
func (it *Iterator) Freq() uint32 {
	if it.pos >= len(it.postings) {
		return 0
	}
	return it.postings[it.pos].Freq
}

// IDF returns this iterator's static idf weight.
func (it *Iterator) IDF() float32 { return it.idf }

const exhausted = ^uint64(0)
