package texparse

import (
	"testing"

	"github.com/texmath/mathsearch/internal/errkind"
	"github.com/texmath/mathsearch/internal/exprtree"
)

func TestParseSimpleSum(t *testing.T) {
	tree, err := Parse("a+b")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root := tree.Root
	if root.Token != exprtree.TokenPlus {
		t.Fatalf("expected root token TokenPlus, got %v", root.Token)
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(root.Children))
	}
	for _, c := range root.Children {
		if c.Token != exprtree.TokenVar {
			t.Fatalf("expected leaf children to be TokenVar, got %v", c.Token)
		}
	}
}

func TestParseOperatorPrecedence(t *testing.T) {
	// "a+b*c" must parse as a+(b*c), not (a+b)*c.
	tree, err := Parse("a+b*c")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root := tree.Root
	if root.Token != exprtree.TokenPlus {
		t.Fatalf("expected top-level TokenPlus, got %v", root.Token)
	}
	right := root.Children[1]
	if right.Token != exprtree.TokenTimes {
		t.Fatalf("expected right child to be TokenTimes, got %v", right.Token)
	}
}

func TestParseImplicitMultiplication(t *testing.T) {
	// "2x" means 2*x.
	tree, err := Parse("2x")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tree.Root.Token != exprtree.TokenTimes {
		t.Fatalf("expected implicit multiplication to produce TokenTimes, got %v", tree.Root.Token)
	}
}

func TestParseFrac(t *testing.T) {
	tree, err := Parse(`\frac{x}{y}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root := tree.Root
	if root.Token != exprtree.TokenFrac {
		t.Fatalf("expected TokenFrac, got %v", root.Token)
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected numerator and denominator children, got %d", len(root.Children))
	}
}

func TestParseSqrtWithOptionalIndex(t *testing.T) {
	tree, err := Parse(`\sqrt[3]{x}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root := tree.Root
	if root.Token != exprtree.TokenSqrt {
		t.Fatalf("expected TokenSqrt, got %v", root.Token)
	}
	if len(root.Children) != 1 {
		t.Fatalf("expected the index to be discarded, leaving only the radicand, got %d children", len(root.Children))
	}
}

func TestParseSumWithBounds(t *testing.T) {
	tree, err := Parse(`\sum_{i=0}^{n} i`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root := tree.Root
	if root.Token != exprtree.TokenSum {
		t.Fatalf("expected TokenSum, got %v", root.Token)
	}
	if len(root.Children) != 3 {
		t.Fatalf("expected lower bound, upper bound, and operand children, got %d", len(root.Children))
	}
}

func TestParseProdIntLim(t *testing.T) {
	for _, src := range []string{`\prod_{i=1}^{n} i`, `\int_{0}^{1} x`, `\lim_{x} x`} {
		if _, err := Parse(src); err != nil {
			t.Fatalf("Parse(%q): %v", src, err)
		}
	}
}

func TestParseFuncApplication(t *testing.T) {
	tree, err := Parse(`\sin{x}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root := tree.Root
	if root.Token != exprtree.TokenFunc {
		t.Fatalf("expected TokenFunc, got %v", root.Token)
	}
	if len(root.Children) != 1 || root.Children[0].Token != exprtree.TokenRankArgList {
		t.Fatalf("expected a single TokenRankArgList child, got %+v", root.Children)
	}
}

func TestParseFuncApplicationMultipleArgs(t *testing.T) {
	tree, err := Parse(`\gcd{a,b}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	args := tree.Root.Children[0]
	if len(args.Children) != 2 {
		t.Fatalf("expected 2 arguments, got %d", len(args.Children))
	}
}

func TestParseMatrix(t *testing.T) {
	tree, err := Parse(`\begin{matrix}a,b\\c,d\end{matrix}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root := tree.Root
	if root.Token != exprtree.TokenMatrix {
		t.Fatalf("expected TokenMatrix, got %v", root.Token)
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(root.Children))
	}
	for _, row := range root.Children {
		if row.Token != exprtree.TokenRow || len(row.Children) != 2 {
			t.Fatalf("expected each row to have 2 cells, got %+v", row)
		}
	}
}

func TestParseUnaryMinus(t *testing.T) {
	tree, err := Parse("-x")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root := tree.Root
	if root.Token != exprtree.TokenMinus {
		t.Fatalf("expected unary minus to fold into TokenMinus, got %v", root.Token)
	}
	if root.Children[0].Token != exprtree.TokenNum {
		t.Fatalf("expected a synthetic zero as the left operand")
	}
}

func TestParseSuperscriptSubscript(t *testing.T) {
	tree, err := Parse("x^2_i")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root := tree.Root
	if root.Token != exprtree.TokenSub {
		t.Fatalf("expected the outermost factor op to be the last-applied TokenSub, got %v", root.Token)
	}
}

func TestParseUnexpectedTokenIsParseError(t *testing.T) {
	_, err := Parse("+")
	if err == nil {
		t.Fatalf("expected an error for a leading operator with no left operand")
	}
	if errkind.Of(err) != errkind.Parse {
		t.Fatalf("expected errkind.Parse, got %q", errkind.Of(err))
	}
}

func TestParseUnbalancedBraceIsParseError(t *testing.T) {
	_, err := Parse(`\frac{x}{y`)
	if err == nil {
		t.Fatalf("expected an error for an unterminated group")
	}
	if errkind.Of(err) != errkind.Parse {
		t.Fatalf("expected errkind.Parse, got %q", errkind.Of(err))
	}
}

func TestParseTrailingInputIsParseError(t *testing.T) {
	_, err := Parse("a+b}")
	if err == nil {
		t.Fatalf("expected trailing unmatched '}' to error")
	}
	if errkind.Of(err) != errkind.Parse {
		t.Fatalf("expected errkind.Parse, got %q", errkind.Of(err))
	}
}

func TestParseMismatchedEnvironmentStillParses(t *testing.T) {
	// expectEnd deliberately does not check the environment name.
	if _, err := Parse(`\begin{matrix}a\end{pmatrix}`); err != nil {
		t.Fatalf("Parse: %v", err)
	}
}
