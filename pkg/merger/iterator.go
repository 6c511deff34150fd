// Package merger implements the MaxScore top-k merger (spec.md sec 4.6):
// K posting-list iterators, each carrying an upper bound on its score
// contribution, driven through a suffix-sum pivot that partitions them
// into essential and non-essential sets.
package merger

// Exhausted is the sentinel Cur() returns once an iterator has no more
// records (spec.md sec 4.6: "UINT64_MAX if exhausted").
const Exhausted = ^uint64(0)

// Iterator is the minimal contract the merger drives: a cursor over a
// strictly increasing key sequence, plus a static upper bound on how much
// this iterator can contribute to any single candidate's score. Both
// mathindex postings and a text-index posting adapter satisfy it, letting
// C6 merge math and text iterators side by side for mixed queries.
type Iterator interface {
	// Cur returns the key at the iterator's current position, or
	// Exhausted.
	Cur() uint64
	// AdvanceTo moves the iterator to the first key >= target.
	AdvanceTo(target uint64) error
	// UpperBound is this iterator's static u_i.
	UpperBound() float32
}
