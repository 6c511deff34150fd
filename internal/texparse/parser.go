package texparse

import (
	"fmt"

	"github.com/texmath/mathsearch/internal/errkind"
	"github.com/texmath/mathsearch/internal/exprtree"
	"github.com/texmath/mathsearch/pkg/fingerprint"
)

type parser struct {
	lex  *lexer
	tok  lexToken
	tree *exprtree.Tree
}

// Parse parses one TeX-like math expression into an exprtree.Tree, or
// returns an errkind.Parse error (spec.md sec 6: "TexParser(source) ->
// Tree | ParseError").
func Parse(source string) (*exprtree.Tree, error) {
	p := &parser{lex: newLexer(source), tree: exprtree.NewTree()}
	p.advance()

	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errf("unexpected trailing input %q", p.tok.text)
	}
	p.tree.Root = root
	return p.tree, nil
}

func (p *parser) advance() { p.tok = p.lex.next() }

func (p *parser) errf(format string, args ...interface{}) error {
	return errkind.New(errkind.Parse, "texparse.Parse", fmt.Errorf(format, args...))
}

func (p *parser) expect(k tokenKind, what string) error {
	if p.tok.kind != k {
		return p.errf("expected %s, got %q", what, p.tok.text)
	}
	p.advance()
	return nil
}

// parseExpr := term (('+'|'-'|'='|'<'|'>') term)*
func (p *parser) parseExpr() (*exprtree.Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokPlus || p.tok.kind == tokMinus || p.tok.kind == tokEquals ||
		p.tok.kind == tokLess || p.tok.kind == tokGreater {
		tok := p.tok.kind
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = p.binaryNode(tokenFor(tok), left, right)
	}
	return left, nil
}

func tokenFor(k tokenKind) exprtree.Token {
	switch k {
	case tokPlus:
		return exprtree.TokenPlus
	case tokMinus:
		return exprtree.TokenMinus
	case tokTimes:
		return exprtree.TokenTimes
	case tokDivide:
		return exprtree.TokenDivide
	case tokEquals:
		return exprtree.TokenEquals
	case tokLess:
		return exprtree.TokenLess
	case tokGreater:
		return exprtree.TokenGreater
	}
	return exprtree.TokenInvalid
}

// binaryNode creates a node of token t with left and right as children,
// reparenting the already-built subtrees.
func (p *parser) binaryNode(t exprtree.Token, left, right *exprtree.Node) *exprtree.Node {
	n := p.tree.NewNode(t, nil)
	p.adopt(n, left)
	p.adopt(n, right)
	return n
}

// adopt reparents an already-constructed subtree under parent, since
// exprtree.NewNode only links children at creation time.
func (p *parser) adopt(parent, child *exprtree.Node) {
	child.Parent = parent
	parent.Children = append(parent.Children, child)
}

// parseTerm := factor (factor | ('*'|'/') factor)*  -- adjacency is
// implicit multiplication, matching common TeX usage ("2x" means 2*x).
func (p *parser) parseTerm() (*exprtree.Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.kind {
		case tokTimes, tokDivide:
			tok := p.tok.kind
			p.advance()
			right, err := p.parseFactor()
			if err != nil {
				return nil, err
			}
			left = p.binaryNode(tokenFor(tok), left, right)
		case tokNumber, tokIdent, tokCommand, tokLParen, tokLBrace:
			right, err := p.parseFactor()
			if err != nil {
				return nil, err
			}
			left = p.binaryNode(exprtree.TokenTimes, left, right)
		default:
			return left, nil
		}
	}
}

// parseFactor := atom (('^'|'_') atom)*
func (p *parser) parseFactor() (*exprtree.Node, error) {
	base, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokCaret || p.tok.kind == tokUnder {
		tok := exprtree.TokenSup
		if p.tok.kind == tokUnder {
			tok = exprtree.TokenSub
		}
		p.advance()
		exp, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		base = p.binaryNode(tok, base, exp)
	}
	return base, nil
}

// parseGroup parses a required {...} group and returns its contents.
func (p *parser) parseGroup() (*exprtree.Node, error) {
	if err := p.expect(tokLBrace, "'{'"); err != nil {
		return nil, err
	}
	inner, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return inner, nil
}

func (p *parser) parseAtom() (*exprtree.Node, error) {
	switch p.tok.kind {
	case tokNumber:
		n := p.tree.NewNode(exprtree.TokenNum, nil)
		n.Symbol = fingerprint.Symbol(p.tok.text)
		p.advance()
		return n, nil

	case tokIdent:
		n := p.tree.NewNode(exprtree.TokenVar, nil)
		n.Symbol = fingerprint.Symbol(p.tok.text)
		p.advance()
		return n, nil

	case tokLParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil

	case tokLBrace:
		return p.parseGroup()

	case tokMinus:
		// unary minus: built as a binary TokenMinus node whose left
		// operand is a synthetic 0 leaf, matching the common "0 - x"
		// structural shape.
		p.advance()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		zero := p.tree.NewNode(exprtree.TokenNum, nil)
		zero.Symbol = fingerprint.Symbol("0")
		return p.binaryNode(exprtree.TokenMinus, zero, operand), nil

	case tokCommand:
		return p.parseCommand()
	}

	return nil, p.errf("unexpected token %q", p.tok.text)
}

func (p *parser) parseCommand() (*exprtree.Node, error) {
	name := commandName(p.tok)
	p.advance()

	switch name {
	case "frac":
		numer, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		denom, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		return p.binaryNode(exprtree.TokenFrac, numer, denom), nil

	case "sqrt":
		if p.tok.kind == tokLBracket {
			// Optional index root: \sqrt[n]{x}. The index is consumed
			// and discarded -- structurally a sqrt with an index still
			// matches plain \sqrt{x} queries, which is the common case.
			p.advance()
			if _, err := p.parseExpr(); err != nil {
				return nil, err
			}
			if err := p.expect(tokRBracket, "']'"); err != nil {
				return nil, err
			}
		}
		radicand, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		n := p.tree.NewNode(exprtree.TokenSqrt, nil)
		p.adopt(n, radicand)
		return n, nil

	case "sum", "prod", "int", "lim":
		return p.parseBigOperator(name)

	case "begin":
		return p.parseMatrix()

	default:
		return p.parseFuncApplication(name)
	}
}

func bigOpToken(name string) exprtree.Token {
	switch name {
	case "sum":
		return exprtree.TokenSum
	case "prod":
		return exprtree.TokenProd
	case "int":
		return exprtree.TokenInt
	default:
		return exprtree.TokenLim
	}
}

// parseBigOperator handles \sum_{i=0}^{n}, \prod_{...}, \int_{...}^{...},
// \lim_{...}, each optionally followed by its operand expression.
func (p *parser) parseBigOperator(name string) (*exprtree.Node, error) {
	n := p.tree.NewNode(bigOpToken(name), nil)
	for p.tok.kind == tokUnder || p.tok.kind == tokCaret {
		p.advance()
		bound, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		p.adopt(n, bound)
	}
	if isAtomStart(p.tok.kind) {
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		p.adopt(n, operand)
	}
	return n, nil
}

func isAtomStart(k tokenKind) bool {
	switch k {
	case tokNumber, tokIdent, tokCommand, tokLParen, tokLBrace:
		return true
	}
	return false
}

// parseFuncApplication handles an unrecognized command name applied to its
// arguments, e.g. \sin{x}, \sin(x), \sin x, or a braced comma-separated
// list such as \gcd{a,b} -- built as TokenFunc wrapping a
// TokenRankArgList node (a structural sentinel excluded from indexing,
// spec.md sec 4.2 step 3) over the argument list.
func (p *parser) parseFuncApplication(name string) (*exprtree.Node, error) {
	fn := p.tree.NewNode(exprtree.TokenFunc, nil)
	fn.Symbol = fingerprint.Symbol(name)

	if !isAtomStart(p.tok.kind) {
		return fn, nil
	}

	args := p.tree.NewNode(exprtree.TokenRankArgList, fn)
	braced := p.tok.kind == tokLBrace
	if braced {
		p.advance()
	}
	for {
		parse := p.parseFactor
		if braced {
			parse = p.parseExpr
		}
		arg, err := parse()
		if err != nil {
			return nil, err
		}
		p.adopt(args, arg)
		if p.tok.kind != tokComma {
			break
		}
		p.advance()
	}
	if braced {
		if err := p.expect(tokRBrace, "'}'"); err != nil {
			return nil, err
		}
	}
	return fn, nil
}

// parseMatrix handles \begin{matrix} row \\ row \end{matrix}, rows
// separated by "\\" (lexed as two consecutive backslash commands with
// empty names) and cells by ",".
func (p *parser) parseMatrix() (*exprtree.Node, error) {
	if err := p.expect(tokLBrace, "'{'"); err != nil {
		return nil, err
	}
	if p.tok.kind != tokIdent && p.tok.kind != tokCommand {
		return nil, p.errf("expected environment name, got %q", p.tok.text)
	}
	envName := p.tok.text
	p.advance()
	if err := p.expect(tokRBrace, "'}'"); err != nil {
		return nil, err
	}

	mat := p.tree.NewNode(exprtree.TokenMatrix, nil)
	for {
		row := p.tree.NewNode(exprtree.TokenRow, mat)
		for {
			cell, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			p.adopt(row, cell)
			if p.tok.kind != tokComma {
				break
			}
			p.advance()
		}
		if p.tok.kind == tokCommand && p.tok.text == "" {
			p.advance()
			if p.tok.kind == tokCommand && p.tok.text == "" {
				p.advance() // "\\\\" lexes as two empty commands
			}
			continue
		}
		break
	}

	if err := expectEnd(p, envName); err != nil {
		return nil, err
	}
	return mat, nil
}

func expectEnd(p *parser, envName string) error {
	if p.tok.kind != tokCommand || commandName(p.tok) != "end" {
		return p.errf("expected \\end{%s}, got %q", envName, p.tok.text)
	}
	p.advance()
	if err := p.expect(tokLBrace, "'{'"); err != nil {
		return err
	}
	p.advance() // environment name, unchecked against envName deliberately lax
	return p.expect(tokRBrace, "'}'")
}
