package merger

import (
	"container/heap"
	"sort"
	"time"
)

// ScoreFunc scores the candidate at key, given the indices (into the
// Merger's original iterator slice) of every iterator currently positioned
// exactly at key -- both essential iterators (always included when
// positioned there) and non-essential ones that happened to already sit at
// key (spec.md sec 4.6 step 3: "their positions are allowed to lag").
type ScoreFunc func(key uint64, positioned []int) float32

// RelaxFunc adjusts a raw suffix-sum upper bound before comparing it
// against the current threshold, e.g. to fold in a multiplicative idf
// factor for mixed math/text queries (spec.md sec 4.6 step 6). The zero
// value behaves as the identity function.
type RelaxFunc func(accUpp float32) float32

// Hit is one ranked result.
type Hit struct {
	Key   uint64
	Score float32
}

// Stats reports merge-time counters for the daemon's response (spec.md
// sec 6: "{n_candidates, n_pruned}").
type Stats struct {
	NCandidates int
	NPruned     int
	TimedOut    bool
}

// Merger drives K iterators under MaxScore pruning (spec.md sec 4.6).
type Merger struct {
	its   []Iterator
	order []int // map[]: permutation of iterator indices, descending by UpperBound
	accUp []float32
	pivot int
	relax RelaxFunc
}

// New builds a Merger over its, sorting them descending by upper bound
// (spec.md sec 4.6: "resort is performed only at initialization"; the
// source's bubble sort is replaced here with sort.Slice, an O(n log n)
// sort, with identical resulting behavior per spec.md sec 9).
func New(its []Iterator, relax RelaxFunc) *Merger {
	if relax == nil {
		relax = func(u float32) float32 { return u }
	}
	order := make([]int, len(its))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return its[order[i]].UpperBound() > its[order[j]].UpperBound() })

	m := &Merger{its: its, order: order, relax: relax}
	m.recomputeAccUp()
	m.pivot = len(m.order) - 1
	return m
}

func (m *Merger) recomputeAccUp() {
	m.accUp = make([]float32, len(m.order))
	var sum float32
	for i := len(m.order) - 1; i >= 0; i-- {
		sum += m.its[m.order[i]].UpperBound()
		m.accUp[i] = sum
	}
}

// liftUpPivot scans from the current pivot downward to 0 for the largest
// index whose relaxed suffix-sum upper bound still exceeds theta, per
// spec.md sec 4.6 step 6. pivot becomes -1 (terminal) if even the full sum
// cannot beat theta.
func (m *Merger) liftUpPivot(theta float32) {
	for i := m.pivot; i >= 0; i-- {
		if m.relax(m.accUp[i]) > theta {
			m.pivot = i
			return
		}
	}
	m.pivot = -1
}

// Run drives the merge to completion (or deadline), returning the top-k
// hits in descending score order and the merge stats.
func (m *Merger) Run(topK int, score ScoreFunc, deadline time.Time) ([]Hit, Stats) {
	var stats Stats
	h := &hitHeap{}
	heap.Init(h)
	var theta float32

	hasDeadline := !deadline.IsZero()
	checkEvery := 256
	steps := 0

	for m.pivot >= 0 {
		steps++
		if hasDeadline && steps%checkEvery == 0 && time.Now().After(deadline) {
			stats.TimedOut = true
			break
		}

		min := Exhausted
		for i := 0; i <= m.pivot; i++ {
			k := m.its[m.order[i]].Cur()
			if k < min {
				min = k
			}
		}
		if min == Exhausted {
			break
		}

		var positioned []int
		for _, idx := range m.order {
			if m.its[idx].Cur() == min {
				positioned = append(positioned, idx)
			}
		}

		stats.NCandidates++
		s := score(min, positioned)
		if len(*h) < topK {
			heap.Push(h, Hit{Key: min, Score: s})
			if len(*h) == topK {
				theta = (*h)[0].Score
			}
		} else if s > theta {
			heap.Pop(h)
			heap.Push(h, Hit{Key: min, Score: s})
			theta = (*h)[0].Score
		}

		for i := 0; i <= m.pivot; i++ {
			idx := m.order[i]
			if m.its[idx].Cur() == min {
				if err := m.its[idx].AdvanceTo(min + 1); err != nil {
					// treat a failing iterator as exhausted (spec.md sec 7:
					// "any failure in one iterator causes that iterator to
					// be treated as exhausted").
					_ = err
				}
			}
		}

		kept := m.order[:0]
		newPivot := m.pivot
		for i, idx := range m.order {
			if m.its[idx].Cur() == Exhausted {
				if i <= m.pivot {
					newPivot--
				}
				stats.NPruned++
				continue
			}
			kept = append(kept, idx)
		}
		m.order = kept
		m.pivot = newPivot
		m.recomputeAccUp()
		m.liftUpPivot(theta)
	}

	out := make([]Hit, len(*h))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Hit)
	}
	return out, stats
}

type hitHeap []Hit

func (h hitHeap) Len() int            { return len(h) }
func (h hitHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score } // min-heap
func (h hitHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x interface{}) { *h = append(*h, x.(Hit)) }
func (h *hitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
