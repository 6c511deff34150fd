// Package scorer implements the expression similarity scorer (spec.md sec
// 4.5): element_weight, best_alignment's split assignment, and the
// similarity accumulation the merger's MaxScore pruning relies on being
// bounded above by the sum of element weights.
package scorer

import (
	"sort"

	"github.com/texmath/mathsearch/pkg/postingcodec"
	"github.com/texmath/mathsearch/pkg/subpath"
)

// MaxHighlightOccurs caps how many matching exp_ids a single query element
// keeps for downstream snippet rendering (spec.md sec 9, supplemented
// feature: highlight occurrences).
const MaxHighlightOccurs = 8

// ElementWeight is a pure function of a query element, favoring longer
// prefix_len and wider sector trees (spec.md sec 4.5). It is precomputed
// once per query and reused as that element's posting-list upper bound.
func ElementWeight(el *subpath.Element) float32 {
	width := 0
	for _, st := range el.SectorTrees {
		width += int(st.Width)
	}
	return float32(el.PrefixLen) * (1 + float32(width))
}

// QueryElement bundles a query-side element with its precomputed weight,
// the unit the merger drives one iterator per.
type QueryElement struct {
	Element *subpath.Element
	Weight  float32
}

// UpperBound returns upper_bound(q_expr) = sum element_weight(q-elem),
// the bound the merger's MaxScore pivot compares against (spec.md sec
// 4.5-4.6).
func UpperBound(elems []QueryElement) float32 {
	var sum float32
	for _, e := range elems {
		sum += e.Weight
	}
	return sum
}

// MatchExpression scores one candidate expression (one exp_id's full set of
// posting records across the query's elements) against the query. It
// returns similarity(q, e) from spec.md sec 4.5. hl, if non-nil, records
// per-element highlight occurrences for expID.
func MatchExpression(query []QueryElement, docSectors [][]postingcodec.Sector, expID uint32, hl *Highlighter) float32 {
	var total float32
	for i, qe := range query {
		if i >= len(docSectors) || docSectors[i] == nil {
			continue
		}
		best := bestSectorAlignment(qe.Element.SectorTrees, docSectors[i])
		contribution := qe.Weight * best
		total += contribution
		if hl != nil {
			hl.Record(i, expID, contribution)
		}
	}
	return total
}

// bestSectorAlignment picks, for each query sector tree, the best-matching
// doc sector tree and sums best_alignment contributions, normalized to stay
// within [0,1] per query sector tree so that the caller's element_weight
// factor remains the only place magnitude grows from (spec.md sec 4.5:
// "divide by the larger of the two total split-weights"). Candidates are
// compared by splitAlignment score alone; ties are broken by sector-tree
// operator-hash equality, then by ascending root_id (sorted's order).
func bestSectorAlignment(qSectors []subpath.SectorTree, dSectors []postingcodec.Sector) float32 {
	if len(qSectors) == 0 {
		return 0
	}
	sorted := make([]postingcodec.Sector, len(dSectors))
	copy(sorted, dSectors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RootID < sorted[j].RootID })

	var sum float32
	for _, qs := range qSectors {
		var bestScore float32
		var bestOpMatch bool
		for _, ds := range sorted {
			score := splitAlignment(qs, ds)
			opMatch := ds.OpHash == uint16(qs.OpHash)
			switch {
			case score > bestScore:
				bestScore, bestOpMatch = score, opMatch
			case score == bestScore && opMatch && !bestOpMatch:
				bestOpMatch = true
			}
		}
		sum += bestScore
	}
	return sum / float32(len(qSectors))
}

// splitAlignment solves best_alignment's small assignment problem: for each
// query split, pick at most one doc split with the same symbol, gain =
// min(weights), accumulated and normalized by the larger total weight
// (spec.md sec 4.5).
func splitAlignment(q subpath.SectorTree, d postingcodec.Sector) float32 {
	dBySymbol := map[uint16][]postingcodec.Split{}
	for _, sp := range d.Splits {
		dBySymbol[sp.SymbolID] = append(dBySymbol[sp.SymbolID], sp)
	}

	var qTotal, dTotal, gain float32
	used := map[int]bool{}
	for _, qs := range q.Splits {
		qTotal += float32(qs.SplitWeight)
		candidates := dBySymbol[uint16(qs.LeafSymbol)]
		bestIdx := -1
		var bestWeight uint16
		for idx, ds := range candidates {
			if used[symbolSlot(uint16(qs.LeafSymbol), idx)] {
				continue
			}
			if ds.SplitWeight > bestWeight {
				bestWeight = ds.SplitWeight
				bestIdx = idx
			}
		}
		if bestIdx >= 0 {
			used[symbolSlot(uint16(qs.LeafSymbol), bestIdx)] = true
			g := qs.SplitWeight
			if bestWeight < g {
				g = bestWeight
			}
			gain += float32(g)
		}
	}
	for _, ds := range d.Splits {
		dTotal += float32(ds.SplitWeight)
	}

	denom := qTotal
	if dTotal > denom {
		denom = dTotal
	}
	if denom == 0 {
		return 0
	}
	return gain / denom
}

// symbolSlot packs a symbol id and a within-symbol candidate index into a
// single key for the used-candidate set.
func symbolSlot(symbol uint16, idx int) int { return int(symbol)<<16 | idx }
