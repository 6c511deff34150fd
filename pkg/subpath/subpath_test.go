package subpath

import (
	"testing"

	"github.com/texmath/mathsearch/internal/exprtree"
)

// buildPlus builds a+b: TokenPlus(TokenVar "a", TokenVar "b").
func buildPlus(t *testing.T) *exprtree.Tree {
	t.Helper()
	tree := exprtree.NewTree()
	root := tree.NewNode(exprtree.TokenPlus, nil)
	a := tree.NewNode(exprtree.TokenVar, root)
	a.Symbol = 1
	b := tree.NewNode(exprtree.TokenVar, root)
	b.Symbol = 2
	return tree
}

func TestExtractPathsOneSubpathPerLeaf(t *testing.T) {
	tree := buildPlus(t)
	subpaths, err := ExtractPaths(tree)
	if err != nil {
		t.Fatalf("ExtractPaths: %v", err)
	}
	if len(subpaths) != 2 {
		t.Fatalf("expected 2 subpaths (one per leaf), got %d", len(subpaths))
	}
	for i, sp := range subpaths {
		if sp.PathID != i+1 {
			t.Fatalf("expected dense PathID starting at 1, got %d at index %d", sp.PathID, i)
		}
		if len(sp.Nodes) != 2 {
			t.Fatalf("expected leaf-to-root chain of length 2, got %d", len(sp.Nodes))
		}
		if sp.Nodes[len(sp.Nodes)-1].Token != exprtree.TokenPlus {
			t.Fatalf("expected root node token TokenPlus, got %v", sp.Nodes[len(sp.Nodes)-1].Token)
		}
	}
}

func TestExtractPathsOverflow(t *testing.T) {
	tree := exprtree.NewTree()
	root := tree.NewNode(exprtree.TokenSum, nil)
	for i := 0; i < MaxLeaves+1; i++ {
		leaf := tree.NewNode(exprtree.TokenVar, root)
		leaf.Symbol = exprtree.SymbolID(i + 1)
	}
	_, err := ExtractPaths(tree)
	if err == nil {
		t.Fatalf("expected Overflow error for %d leaves", MaxLeaves+1)
	}
}

func TestRoundTripSubpathGrouping(t *testing.T) {
	// spec.md sec 8 invariant 1: every (path_id, leaf_symbol_id, root_id)
	// triple the raw path extractor produced must be reconstructed from the
	// elements' sector trees.
	tree := buildPlus(t)
	subpaths, err := ExtractPaths(tree)
	if err != nil {
		t.Fatalf("ExtractPaths: %v", err)
	}

	type triple struct {
		pathID int
		symbol exprtree.SymbolID
		root   exprtree.NodeID
	}
	want := make(map[triple]bool)
	for _, sp := range subpaths {
		want[triple{sp.PathID, sp.LeafSymbol, sp.Nodes[len(sp.Nodes)-1].NodeID}] = true
	}

	got := make(map[triple]bool)
	for _, el := range BuildElements(subpaths) {
		for _, st := range el.SectorTrees {
			for _, split := range st.Splits {
				for pid := 1; pid <= MaxLeaves; pid++ {
					if split.LeavesBitmask&(1<<uint(pid-1)) != 0 {
						got[triple{pid, split.LeafSymbol, st.RootID}] = true
					}
				}
			}
		}
	}

	for tr := range want {
		if !got[tr] {
			t.Fatalf("triple %+v present in raw extraction but missing from reconstructed elements", tr)
		}
	}
}

func TestBuildElementsDropsRankTokenRoots(t *testing.T) {
	tree := exprtree.NewTree()
	argList := tree.NewNode(exprtree.TokenRankArgList, nil)
	a := tree.NewNode(exprtree.TokenVar, argList)
	a.Symbol = 1
	b := tree.NewNode(exprtree.TokenVar, argList)
	b.Symbol = 2

	subpaths, err := ExtractPaths(tree)
	if err != nil {
		t.Fatalf("ExtractPaths: %v", err)
	}
	for _, el := range BuildElements(subpaths) {
		root := el.Duplicates[0].Nodes[el.PrefixLen-1]
		if exprtree.IsRankToken(root.Token) {
			t.Fatalf("expected rank-token-rooted elements to be dropped, found root token %v", root.Token)
		}
	}
}

func TestElementFingerprintStableAcrossWildcardLeaves(t *testing.T) {
	// Two GENERIC-NODE subpaths with differing numeral leaves must produce
	// the same element fingerprint, per spec.md sec 8 invariant 2.
	mk := func(leafToken exprtree.Token) Subpath {
		return Subpath{
			Type:   TypeGenericNode,
			PathID: 1,
			Nodes: []PathNode{
				{Token: leafToken, NodeID: 1},
				{Token: exprtree.TokenPlus, NodeID: 2},
			},
		}
	}
	e1 := &Element{PrefixLen: 2, Duplicates: []*Subpath{ptr(mk(exprtree.TokenNum))}, TotalCount: 1}
	e2 := &Element{PrefixLen: 2, Duplicates: []*Subpath{ptr(mk(exprtree.TokenNum))}, TotalCount: 1}
	if e1.Fingerprint() != e2.Fingerprint() {
		t.Fatalf("expected identical fingerprints for structurally equal GENERIC-NODE elements")
	}
}

func ptr(s Subpath) *Subpath { return &s }

func TestDuplicateCapKeepsCounting(t *testing.T) {
	// spec.md sec 9: "count continues past the cap."
	var subpaths []Subpath
	for i := 0; i < MaxElementDuplicates+10; i++ {
		subpaths = append(subpaths, Subpath{
			Type:   TypeNormal,
			PathID: (i % MaxLeaves) + 1,
			Nodes: []PathNode{
				{Token: exprtree.TokenVar, NodeID: exprtree.NodeID(i)},
				{Token: exprtree.TokenPlus, NodeID: 99999},
			},
			LeafSymbol: exprtree.SymbolID(i),
		})
	}
	elements := BuildElements(subpaths)
	if len(elements) != 1 {
		t.Fatalf("expected all subpaths to group into one element, got %d", len(elements))
	}
	el := elements[0]
	if len(el.Duplicates) != MaxElementDuplicates {
		t.Fatalf("expected Duplicates capped at %d, got %d", MaxElementDuplicates, len(el.Duplicates))
	}
	if el.TotalCount != MaxElementDuplicates+10 {
		t.Fatalf("expected TotalCount to keep counting past the cap: got %d", el.TotalCount)
	}
}
