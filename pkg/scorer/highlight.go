package scorer

// Highlighter records, per query element, up to MaxHighlightOccurs exp_ids
// that produced a nonzero alignment, for downstream snippet rendering
// (spec.md sec 4.5: "records up to MAX_HIGHLIGHT_OCCURS matching exp_ids").
type Highlighter struct {
	occurs [][]uint32
}

// NewHighlighter allocates a highlighter for a query of n elements.
func NewHighlighter(n int) *Highlighter {
	return &Highlighter{occurs: make([][]uint32, n)}
}

// Record notes that query element i matched expID with a nonzero
// contribution, dropping the occurrence once the per-element cap is
// reached.
func (h *Highlighter) Record(i int, expID uint32, contribution float32) {
	if contribution <= 0 || i >= len(h.occurs) {
		return
	}
	if len(h.occurs[i]) >= MaxHighlightOccurs {
		return
	}
	h.occurs[i] = append(h.occurs[i], expID)
}

// ExpIDs returns the recorded exp_ids for query element i.
func (h *Highlighter) ExpIDs(i int) []uint32 {
	if i >= len(h.occurs) {
		return nil
	}
	return h.occurs[i]
}
