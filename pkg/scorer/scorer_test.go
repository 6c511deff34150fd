package scorer

import (
	"testing"

	"github.com/texmath/mathsearch/internal/exprtree"
	"github.com/texmath/mathsearch/pkg/fingerprint"
	"github.com/texmath/mathsearch/pkg/postingcodec"
	"github.com/texmath/mathsearch/pkg/subpath"
)

func mkElement(prefixLen int, width uint16, opHash uint16, symbol uint32, splitWeight uint16) *subpath.Element {
	return &subpath.Element{
		PrefixLen: prefixLen,
		SectorTrees: []subpath.SectorTree{
			{
				RootID: 1,
				Width:  width,
				OpHash: fingerprint.OperatorHash(opHash),
				Splits: []subpath.SymbolSplit{
					{LeafSymbol: exprtree.SymbolID(symbol), SplitWeight: splitWeight, LeavesBitmask: 1},
				},
			},
		},
	}
}

func TestElementWeightFavorsLongerPrefixAndWiderSectors(t *testing.T) {
	short := mkElement(2, 1, 1, 1, 1)
	long := mkElement(4, 1, 1, 1, 1)
	if ElementWeight(long) <= ElementWeight(short) {
		t.Fatalf("expected a longer prefix to weigh more: long=%f short=%f", ElementWeight(long), ElementWeight(short))
	}

	narrow := mkElement(2, 1, 1, 1, 1)
	wide := mkElement(2, 5, 1, 1, 1)
	if ElementWeight(wide) <= ElementWeight(narrow) {
		t.Fatalf("expected a wider sector tree to weigh more: wide=%f narrow=%f", ElementWeight(wide), ElementWeight(narrow))
	}
}

func TestMatchExpressionExactMatchIsPositive(t *testing.T) {
	el := mkElement(2, 1, 42, 7, 3)
	qe := []QueryElement{{Element: el, Weight: ElementWeight(el)}}
	docSectors := [][]postingcodec.Sector{{
		{RootID: 1, Width: 1, OpHash: 42, Splits: []postingcodec.Split{{SymbolID: 7, SplitWeight: 3, LeavesBitmask: 1}}},
	}}
	score := MatchExpression(qe, docSectors, 0, nil)
	if score <= 0 {
		t.Fatalf("expected a positive score for an exact sector/symbol match, got %f", score)
	}
}

func TestMatchExpressionNoOverlapIsZero(t *testing.T) {
	el := mkElement(2, 1, 42, 7, 3)
	qe := []QueryElement{{Element: el, Weight: ElementWeight(el)}}
	docSectors := [][]postingcodec.Sector{{
		{RootID: 1, Width: 1, OpHash: 99, Splits: []postingcodec.Split{{SymbolID: 999, SplitWeight: 3, LeavesBitmask: 1}}},
	}}
	score := MatchExpression(qe, docSectors, 0, nil)
	if score != 0 {
		t.Fatalf("expected zero score when no symbol overlaps, got %f", score)
	}
}

func TestMatchExpressionMissingElementSkipped(t *testing.T) {
	el := mkElement(2, 1, 1, 1, 1)
	qe := []QueryElement{{Element: el, Weight: ElementWeight(el)}}
	score := MatchExpression(qe, [][]postingcodec.Sector{nil}, 0, nil)
	if score != 0 {
		t.Fatalf("expected zero score when the document has no matching sector, got %f", score)
	}
}

func TestMatchExpressionMonotoneInMatchedSplits(t *testing.T) {
	// spec.md sec 4.5: "adding a matched split never decreases the score."
	el := &subpath.Element{
		PrefixLen: 2,
		SectorTrees: []subpath.SectorTree{{
			RootID: 1, Width: 2, OpHash: 1,
			Splits: []subpath.SymbolSplit{
				{LeafSymbol: 1, SplitWeight: 1, LeavesBitmask: 1},
				{LeafSymbol: 2, SplitWeight: 1, LeavesBitmask: 2},
			},
		}},
	}
	qe := []QueryElement{{Element: el, Weight: ElementWeight(el)}}

	oneMatch := [][]postingcodec.Sector{{
		{RootID: 1, Width: 1, OpHash: 1, Splits: []postingcodec.Split{{SymbolID: 1, SplitWeight: 1, LeavesBitmask: 1}}},
	}}
	twoMatches := [][]postingcodec.Sector{{
		{RootID: 1, Width: 2, OpHash: 1, Splits: []postingcodec.Split{
			{SymbolID: 1, SplitWeight: 1, LeavesBitmask: 1},
			{SymbolID: 2, SplitWeight: 1, LeavesBitmask: 2},
		}},
	}}

	s1 := MatchExpression(qe, oneMatch, 0, nil)
	s2 := MatchExpression(qe, twoMatches, 0, nil)
	if s2 < s1 {
		t.Fatalf("expected score to be monotone in matched splits: one=%f two=%f", s1, s2)
	}
}

func TestMatchExpressionBoundedByUpperBound(t *testing.T) {
	el := mkElement(3, 4, 1, 1, 10)
	qe := []QueryElement{{Element: el, Weight: ElementWeight(el)}}
	docSectors := [][]postingcodec.Sector{{
		{RootID: 1, Width: 4, OpHash: 1, Splits: []postingcodec.Split{{SymbolID: 1, SplitWeight: 10, LeavesBitmask: 1}}},
	}}
	score := MatchExpression(qe, docSectors, 0, nil)
	if score > UpperBound(qe)+1e-3 {
		t.Fatalf("score %f exceeds upper bound %f", score, UpperBound(qe))
	}
}

func TestHighlighterCapsOccurrences(t *testing.T) {
	h := NewHighlighter(1)
	for i := 0; i < MaxHighlightOccurs+5; i++ {
		h.Record(0, uint32(i), 1.0)
	}
	if len(h.ExpIDs(0)) != MaxHighlightOccurs {
		t.Fatalf("expected highlight occurrences capped at %d, got %d", MaxHighlightOccurs, len(h.ExpIDs(0)))
	}
}

func TestHighlighterIgnoresZeroContribution(t *testing.T) {
	h := NewHighlighter(1)
	h.Record(0, 1, 0)
	h.Record(0, 2, -1)
	if len(h.ExpIDs(0)) != 0 {
		t.Fatalf("expected non-positive contributions to be ignored, got %v", h.ExpIDs(0))
	}
}
