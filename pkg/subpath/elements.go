package subpath

import (
	"github.com/texmath/mathsearch/internal/exprtree"
	"github.com/texmath/mathsearch/pkg/fingerprint"
)

// MaxElementDuplicates caps the number of duplicates retained per element.
// Wildcard-typed subpaths can create combinatorial blowups in pathological
// expressions; beyond the cap additional duplicates are still counted
// (Element.DuplicateCount) but no longer retained, which keeps indexing
// memory bounded without losing the frequency signal entirely (spec.md sec
// 4.2 edge-case policy, sec 9 "Duplicate-cap behavior").
const MaxElementDuplicates = 4096

// SymbolSplit partitions one sector tree's duplicates by leaf symbol.
type SymbolSplit struct {
	LeafSymbol    exprtree.SymbolID
	SplitWeight   uint16
	LeavesBitmask uint64
}

// SectorTree is the subtree rooted at one common ancestor of an element's
// duplicates, characterized by (RootID, Width, OpHash).
type SectorTree struct {
	RootID exprtree.NodeID
	Width  uint16
	OpHash fingerprint.OperatorHash
	Splits []SymbolSplit
}

// Element is a subpath-set element (spec.md sec 3): the unit of indexing.
type Element struct {
	PrefixLen int
	// Duplicates holds this element's members, canonical representative
	// first, capped at MaxElementDuplicates.
	Duplicates []*Subpath
	// TotalCount is the true member count, which may exceed
	// len(Duplicates) once the cap is hit.
	TotalCount  int
	SectorTrees []SectorTree
}

// DuplicateCount mirrors the source's dup_cnt: the count of members beyond
// the canonical representative.
func (e *Element) DuplicateCount() int { return e.TotalCount - 1 }

// Fingerprint is this element's inverted-index key, derived from its
// canonical duplicate's prefix token sequence.
func (e *Element) Fingerprint() fingerprint.Fingerprint {
	canon := e.Duplicates[0]
	return fingerprint.Path(prefixTokens(canon, e.PrefixLen), canon.Type.SkipsLeaf())
}

func prefixTokens(sp *Subpath, prefixLen int) []exprtree.Token {
	toks := make([]exprtree.Token, prefixLen)
	for i := 0; i < prefixLen; i++ {
		toks[i] = sp.Nodes[i].Token
	}
	return toks
}

// BuildElements groups subpaths sharing a prefix of length >= 2 into
// elements (spec.md sec 4.2). The grouping pass repeats for L = 2, 3, 4, ...
// until a full pass adds no new duplicate and creates no new element.
func BuildElements(subpaths []Subpath) []*Element {
	sps := make([]*Subpath, len(subpaths))
	for i := range subpaths {
		sps[i] = &subpaths[i]
	}

	var elements []*Element
	for prefixLen := 2; ; prefixLen++ {
		added := 0
		for _, sp := range sps {
			if len(sp.Nodes) < prefixLen {
				continue
			}

			var target *Element
			for _, el := range elements {
				if el.PrefixLen != prefixLen {
					continue
				}
				if compareSubpaths(sp, el.Duplicates[0], prefixLen) == ResultEqual {
					target = el
					break
				}
			}

			if target == nil {
				target = &Element{
					PrefixLen:  prefixLen,
					Duplicates: []*Subpath{sp},
					TotalCount: 1,
				}
				elements = append(elements, target)
			} else {
				target.TotalCount++
				if len(target.Duplicates) < MaxElementDuplicates {
					target.Duplicates = append(target.Duplicates, sp)
				}
			}
			added++
		}
		if added == 0 {
			break
		}
	}

	elements = dropRankTokenRoots(elements)
	for _, el := range elements {
		deriveSectorTrees(el)
	}
	return elements
}

// dropRankTokenRoots removes elements whose root node token is a reserved
// rank token: structural sentinels that carry no retrieval value (spec.md
// sec 4.2 step 3).
func dropRankTokenRoots(elements []*Element) []*Element {
	out := elements[:0]
	for _, el := range elements {
		root := el.Duplicates[0].Nodes[el.PrefixLen-1]
		if exprtree.IsRankToken(root.Token) {
			continue
		}
		out = append(out, el)
	}
	return out
}

// deriveSectorTrees populates el.SectorTrees from el.Duplicates: group by
// root_id, compute width and operator-hash, then bucket each sector tree's
// duplicates into symbol splits (spec.md sec 4.2 steps 4-5).
func deriveSectorTrees(el *Element) {
	canon := el.Duplicates[0]
	opHash := fingerprint.Operator(prefixTokens(canon, el.PrefixLen), canon.Type.SkipsLeaf())

	order := []exprtree.NodeID{}
	byRoot := map[exprtree.NodeID][]*Subpath{}
	for _, dup := range el.Duplicates {
		root := dup.Nodes[el.PrefixLen-1].NodeID
		if _, ok := byRoot[root]; !ok {
			order = append(order, root)
		}
		byRoot[root] = append(byRoot[root], dup)
	}

	el.SectorTrees = make([]SectorTree, 0, len(order))
	for _, root := range order {
		members := byRoot[root]
		st := SectorTree{
			RootID: root,
			Width:  uint16(len(members)),
			OpHash: opHash,
			Splits: symbolSplits(members),
		}
		el.SectorTrees = append(el.SectorTrees, st)
	}
}

func symbolSplits(members []*Subpath) []SymbolSplit {
	order := []exprtree.SymbolID{}
	bySymbol := map[exprtree.SymbolID]*SymbolSplit{}
	for _, m := range members {
		split, ok := bySymbol[m.LeafSymbol]
		if !ok {
			split = &SymbolSplit{LeafSymbol: m.LeafSymbol}
			bySymbol[m.LeafSymbol] = split
			order = append(order, m.LeafSymbol)
		}
		split.SplitWeight++
		split.LeavesBitmask |= 1 << uint(m.PathID-1)
	}

	out := make([]SymbolSplit, len(order))
	for i, sym := range order {
		out[i] = *bySymbol[sym]
	}
	return out
}
