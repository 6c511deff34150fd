// Package fingerprint computes the stable hashes used as index keys: the
// path fingerprint (spec.md sec 3) that keys the inverted index, and the
// coarser 16-bit operator-hash (spec.md sec 3, sec 4.2 step 4) used as a
// structural-type filter at query time.
//
// Both use FNV-1a. The corpus this module was built from reaches for a
// third-party hash (go-faster/city, pulled in transitively by the
// ClickHouse driver) only as an internal implementation detail of that
// driver, not as an importable public API -- there is no standalone hashing
// library in the retrieval pack that fits a "hash a short token sequence"
// job better than the standard library's hash/fnv, which is itself the
// idiomatic Go choice for this kind of fingerprinting.
package fingerprint

import (
	"hash/fnv"

	"github.com/texmath/mathsearch/internal/exprtree"
)

// Fingerprint is the inverted-index key for one prefix path.
type Fingerprint uint64

// OperatorHash is the coarse structural-type filter stored per sector tree.
type OperatorHash uint16

func writeTokens(h interface{ Write([]byte) (int, error) }, tokens []exprtree.Token, skipFirst bool) {
	start := 0
	if skipFirst {
		start = 1
	}
	buf := make([]byte, 2)
	for _, t := range tokens[start:] {
		buf[0] = byte(t)
		buf[1] = byte(t >> 8)
		h.Write(buf)
	}
}

// Path computes the path fingerprint of a prefix's token sequence. When
// skipFirst is set (GENERIC-NODE/WILDCARD subpaths), the leaf token is
// excluded so prefix-equal paths with different wildcard leaves collide
// deliberately -- that's the point: they are meant to be the same index key.
func Path(tokens []exprtree.Token, skipFirst bool) Fingerprint {
	h := fnv.New64a()
	writeTokens(h, tokens, skipFirst)
	return Fingerprint(h.Sum64())
}

// Operator computes the 16-bit operator-hash of a shared prefix's internal
// structure.
func Operator(tokens []exprtree.Token, skipFirst bool) OperatorHash {
	h := fnv.New32a()
	writeTokens(h, tokens, skipFirst)
	return OperatorHash(h.Sum32() & 0xFFFF)
}

// Symbol derives a leaf's SymbolID from its source name (e.g. "x", "sin").
// Parsers call this instead of handing out sequential ids so that the same
// variable name hashes to the same SymbolID in every tree it appears in --
// required for the scorer's symbol-split matching (spec.md sec 4.5) to
// compare splits across documents and queries at all.
func Symbol(name string) exprtree.SymbolID {
	h := fnv.New32a()
	h.Write([]byte(name))
	return exprtree.SymbolID(h.Sum32())
}
