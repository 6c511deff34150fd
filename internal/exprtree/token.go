// Package exprtree defines the parsed-expression tree that pkg/subpath walks:
// nodes carry a token id, a node id unique within the expression, and an
// optional leaf symbol id.
package exprtree

// Token identifies a node's grammatical role in a parsed math expression
// (operator, relation, grouping construct, or leaf).
type Token uint16

// Core token vocabulary. The exact set is not prescribed by the indexed
// paths themselves -- any stable assignment works, because path fingerprints
// are computed over token ids, not over names -- but it must be large enough
// to keep the reserved rank-token range (see RankTokenMin) free of anything
// a query or document ever uses structurally.
const (
	TokenInvalid Token = iota
	TokenNum
	TokenVar
	TokenPlus
	TokenMinus
	TokenTimes
	TokenDivide
	TokenEquals
	TokenLess
	TokenGreater
	TokenFrac
	TokenSqrt
	TokenSup
	TokenSub
	TokenFunc
	TokenParen
	TokenMatrix
	TokenRow
	TokenComma
	TokenSum
	TokenProd
	TokenInt
	TokenLim
)

// RankTokenMin begins the reserved high range of token ids excluded from
// indexing by policy (spec.md sec 3, sec 4.2 step 3). Rank tokens are
// structural sentinels -- e.g. a synthetic "row separator" or "argument
// list" wrapper introduced purely to keep the tree well-formed -- that carry
// no retrieval value on their own.
const RankTokenMin Token = 0xF000

const (
	TokenRankArgList Token = RankTokenMin + iota
	TokenRankRowSep
	TokenRankPlaceholder
)

// IsRankToken reports whether t falls in the reserved rank-token range.
func IsRankToken(t Token) bool { return t >= RankTokenMin }
