// Package queryprep implements the math-query preparer (C7, spec.md sec
// 4.7): parse query TeX, extract and group its subpaths, look up each
// resulting element's fingerprint in the math index, and hand the merger
// a ready-to-run bundle of iterators.
package queryprep

import (
	"github.com/texmath/mathsearch/internal/errkind"
	"github.com/texmath/mathsearch/internal/exprtree"
	"github.com/texmath/mathsearch/pkg/mathindex"
	"github.com/texmath/mathsearch/pkg/merger"
	"github.com/texmath/mathsearch/pkg/scorer"
	"github.com/texmath/mathsearch/pkg/subpath"
)

// MaxMergePostings bounds how many query elements may be turned into
// posting-list iterators in a single merge (spec.md sec 4.7:
// "TooManyElements (exceeds MAX_MERGE_POSTINGS)"; original_source/
// supplemented feature 1).
const MaxMergePostings = 256

// Prepared is everything the merger needs to run one math query.
type Prepared struct {
	Elements []scorer.QueryElement
	Iters    []*mathindex.Iterator
	// UpperBound is the sum of the query elements' weights, the largest
	// score any one candidate can reach.
	UpperBound float32
}

// Prepare runs C1+C2 over a parsed query tree, looks up each surviving
// element's fingerprint in idx, and returns the bundle the merger and
// scorer need. Returns EmptyQuery if no elements remain after rank-token
// filtering, TooManyElements if the element count exceeds
// MaxMergePostings.
func Prepare(tree *exprtree.Tree, idx *mathindex.Index) (*Prepared, error) {
	const op = "queryprep.Prepare"

	subpaths, err := subpath.ExtractPaths(tree)
	if err != nil {
		return nil, err
	}
	elements := subpath.BuildElements(subpaths)
	if len(elements) == 0 {
		return nil, errkind.New(errkind.Arg, op, errEmptyQuery)
	}
	if len(elements) > MaxMergePostings {
		return nil, errkind.New(errkind.Overflow, op, errTooManyElements)
	}

	qelems := make([]scorer.QueryElement, len(elements))
	iters := make([]*mathindex.Iterator, len(elements))
	for i, el := range elements {
		w := scorer.ElementWeight(el)
		qelems[i] = scorer.QueryElement{Element: el, Weight: w}

		fp := el.Fingerprint()
		reader, found := idx.Lookup(fp)
		if !found {
			iters[i] = mathindex.NewIterator(nil, w)
			continue
		}
		iters[i] = mathindex.NewIterator(reader, w)
	}

	return &Prepared{
		Elements:   qelems,
		Iters:      iters,
		UpperBound: scorer.UpperBound(qelems),
	}, nil
}

// Iterators returns p's iterators widened to merger.Iterator, the form
// pkg/merger.New expects.
func (p *Prepared) Iterators() []merger.Iterator {
	out := make([]merger.Iterator, len(p.Iters))
	for i, it := range p.Iters {
		out[i] = it
	}
	return out
}
