package fingerprint

import (
	"testing"

	"github.com/texmath/mathsearch/internal/exprtree"
)

func TestPathStableAcrossEqualPrefixes(t *testing.T) {
	toks := []exprtree.Token{exprtree.TokenPlus, exprtree.TokenVar}
	a := Path(toks, false)
	b := Path(toks, false)
	if a != b {
		t.Fatalf("Path is not deterministic: %d != %d", a, b)
	}
}

func TestPathSkipFirstIgnoresLeaf(t *testing.T) {
	withLeafA := []exprtree.Token{exprtree.TokenVar, exprtree.TokenPlus}
	withLeafB := []exprtree.Token{exprtree.TokenNum, exprtree.TokenPlus}

	a := Path(withLeafA, true)
	b := Path(withLeafB, true)
	if a != b {
		t.Fatalf("expected skipFirst to collide on differing leaves: %d != %d", a, b)
	}

	a2 := Path(withLeafA, false)
	b2 := Path(withLeafB, false)
	if a2 == b2 {
		t.Fatalf("expected leaf-inclusive fingerprints to differ: %d == %d", a2, b2)
	}
}

func TestPathDiffersOnDifferentTokens(t *testing.T) {
	a := Path([]exprtree.Token{exprtree.TokenPlus, exprtree.TokenVar}, false)
	b := Path([]exprtree.Token{exprtree.TokenMinus, exprtree.TokenVar}, false)
	if a == b {
		t.Fatalf("expected different token sequences to produce different fingerprints")
	}
}

func TestOperatorIs16Bit(t *testing.T) {
	h := Operator([]exprtree.Token{exprtree.TokenFrac, exprtree.TokenVar, exprtree.TokenNum}, false)
	if uint32(h) > 0xFFFF {
		t.Fatalf("operator hash exceeds 16 bits: %d", h)
	}
}

func TestSymbolStableForSameName(t *testing.T) {
	a := Symbol("x")
	b := Symbol("x")
	if a != b {
		t.Fatalf("Symbol not stable for repeated input: %d != %d", a, b)
	}
	if a == Symbol("y") {
		t.Fatalf("expected distinct symbol names to hash differently")
	}
}

func TestSymbolMatchesAcrossIndependentTrees(t *testing.T) {
	// The scorer's symbol-split matching depends on a query's "x" and a
	// document's "x" hashing identically despite coming from unrelated
	// parses -- Symbol must not depend on any shared parser state.
	docSym := Symbol("x")
	queSym := Symbol("x")
	if docSym != queSym {
		t.Fatalf("symbol hash diverged across independent calls: %d != %d", docSym, queSym)
	}
}
