// Package subpath implements the path extractor (C1) and subpath-set
// builder (C2): it walks a parsed expression into leaf-to-root subpaths,
// then groups those subpaths by shared prefix into the elements that are
// the unit of indexing (spec.md sec 3, sec 4.1, sec 4.2).
package subpath

import (
	"fmt"

	"github.com/texmath/mathsearch/internal/errkind"
	"github.com/texmath/mathsearch/internal/exprtree"
)

// Type classifies how a subpath's leaf slot participates in prefix
// comparisons (spec.md sec 3).
type Type uint8

const (
	// TypeNormal compares every node, including the leaf, literally.
	TypeNormal Type = iota
	// TypeGenericNode treats the leaf as a wildcard slot that matches any
	// leaf token of the same structural class (used for numeral leaves:
	// one number matches any other number).
	TypeGenericNode
	// TypeWildcard treats the leaf as a wildcard slot standing for "any
	// symbol" (used for query-side placeholder variables).
	TypeWildcard
)

func (t Type) String() string {
	switch t {
	case TypeNormal:
		return "NORMAL"
	case TypeGenericNode:
		return "GENERIC-NODE"
	case TypeWildcard:
		return "WILDCARD"
	default:
		return "UNKNOWN"
	}
}

// SkipsLeaf reports whether this subpath type ignores its first (leaf) node
// when comparing prefixes (spec.md sec 3: "the first node is ignored").
func (t Type) SkipsLeaf() bool { return t == TypeGenericNode || t == TypeWildcard }

// PathNode is one (token, node) pair along a subpath, leaf to root.
type PathNode struct {
	Token  exprtree.Token
	NodeID exprtree.NodeID
}

// MaxLeaves bounds the number of leaves per expression: path ids must fit a
// 64-bit bitmask (spec.md sec 3).
const MaxLeaves = 64

// Subpath is one leaf-to-root token sequence of a parsed expression.
type Subpath struct {
	Type       Type
	Nodes      []PathNode // Nodes[0] is the leaf, Nodes[len-1] is the root.
	PathID     int        // 1..MaxLeaves, dense within one expression.
	LeafSymbol exprtree.SymbolID
}

// WildcardSymbol marks a query leaf that should match any document symbol.
// Reserved symbol id 0 is never assigned to a real parsed variable.
const WildcardSymbol exprtree.SymbolID = 0

// leafType classifies a leaf node into a Subpath Type. Numerals are treated
// as a generic class (any numeral matches any other structurally); the
// reserved wildcard symbol marks an explicit "any symbol" query slot;
// everything else compares literally.
func leafType(n *exprtree.Node) Type {
	switch {
	case n.Token == exprtree.TokenNum:
		return TypeGenericNode
	case n.Symbol == WildcardSymbol:
		return TypeWildcard
	default:
		return TypeNormal
	}
}

// ExtractPaths walks tree in left-to-right preorder over its leaves and
// returns one subpath per leaf, from that leaf up through the root
// (inclusive). Enumeration order makes PathID reproducible for a given
// tree. Returns an *errkind.Error of kind Overflow if tree has more than
// MaxLeaves leaves.
func ExtractPaths(tree *exprtree.Tree) ([]Subpath, error) {
	leaves := tree.Leaves()
	if len(leaves) > MaxLeaves {
		return nil, errkind.New(errkind.Overflow, "subpath.ExtractPaths",
			fmt.Errorf("expression has %d leaves, limit is %d", len(leaves), MaxLeaves))
	}

	out := make([]Subpath, 0, len(leaves))
	for i, leaf := range leaves {
		sp := Subpath{
			Type:       leafType(leaf),
			PathID:     i + 1,
			LeafSymbol: leaf.Symbol,
		}
		for n := leaf; n != nil; n = n.Parent {
			sp.Nodes = append(sp.Nodes, PathNode{Token: n.Token, NodeID: n.ID})
		}
		out = append(out, sp)
	}
	return out, nil
}
