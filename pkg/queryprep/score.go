package queryprep

import (
	"github.com/texmath/mathsearch/pkg/merger"
	"github.com/texmath/mathsearch/pkg/postingcodec"
	"github.com/texmath/mathsearch/pkg/scorer"
)

// NewScoreFunc builds the merger.ScoreFunc that closes over p's iterators:
// for the candidate (docID, exp_id) key, gather every positioned
// iterator's current record's sector trees and hand them to the scorer.
func (p *Prepared) NewScoreFunc(hl *scorer.Highlighter) merger.ScoreFunc {
	return func(key uint64, positioned []int) float32 {
		_, expID := postingcodec.UnpackKey(key)
		docSectors := make([][]postingcodec.Sector, len(p.Iters))
		for _, idx := range positioned {
			rec, ok := p.Iters[idx].Record()
			if ok && rec.Key() == key {
				docSectors[idx] = rec.Sectors
			}
		}
		return scorer.MatchExpression(p.Elements, docSectors, expID, hl)
	}
}

// DocHit is one document-level result: the best-scoring expression within
// that document (spec.md sec 4.5: "score(d, q_expr) = max over doc
// expressions e at docID d").
type DocHit struct {
	DocID   uint32
	ExpID   uint32
	Score   float32
}

// CollapseToDocs reduces (docID, exp_id)-keyed merge hits to one best hit
// per docID, preserving descending score order.
func CollapseToDocs(hits []merger.Hit) []DocHit {
	best := make(map[uint32]DocHit)
	order := make([]uint32, 0, len(hits))
	for _, h := range hits {
		docID, expID := postingcodec.UnpackKey(h.Key)
		cur, ok := best[docID]
		if !ok {
			order = append(order, docID)
			best[docID] = DocHit{DocID: docID, ExpID: expID, Score: h.Score}
			continue
		}
		if h.Score > cur.Score {
			best[docID] = DocHit{DocID: docID, ExpID: expID, Score: h.Score}
		}
	}

	out := make([]DocHit, len(order))
	for i, d := range order {
		out[i] = best[d]
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Score > out[j-1].Score; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
