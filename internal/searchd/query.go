package searchd

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/texmath/mathsearch/internal/analytics"
	"github.com/texmath/mathsearch/internal/errkind"
	"github.com/texmath/mathsearch/internal/texparse"
	"github.com/texmath/mathsearch/internal/textindex"
	"github.com/texmath/mathsearch/pkg/merger"
	"github.com/texmath/mathsearch/pkg/postingcodec"
	"github.com/texmath/mathsearch/pkg/queryprep"
	"github.com/texmath/mathsearch/pkg/scorer"
)

// maxTermKeywords bounds how many plain-text keywords one query may carry,
// the text-side analogue of queryprep.MaxMergePostings.
const maxTermKeywords = 32

// QueryRequest is the daemon's query payload (spec.md sec 6's
// language-neutral query struct, extended with pagination and the
// keyword list SPEC_FULL.md's mixed math/text queries need).
type QueryRequest struct {
	TexSource  string   `json:"tex_source"`
	Keywords   []string `json:"keywords,omitempty"`
	TopK       int      `json:"top_k"`
	DeadlineMS int      `json:"deadline_ms"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
}

// Hit is one ranked document in a QueryResponse.
type Hit struct {
	DocID  uint32   `json:"doc_id"`
	Score  float32  `json:"score"`
	ExpIDs []uint32 `json:"exp_ids,omitempty"`
	URL    string   `json:"url,omitempty"`
}

// QueryResponse is the daemon's response envelope. Code is CodeOK on
// success. A rejection carries Code and Message only; CodeNoHitFound
// carries Stats and no Hits.
type QueryResponse struct {
	Code    Code   `json:"code"`
	Message string `json:"message,omitempty"`
	Hits    []Hit  `json:"hits,omitempty"`
	Stats   *Stats `json:"stats,omitempty"`
}

// Stats reports merge-time counters (spec.md sec 6: "{n_candidates,
// n_pruned}").
type Stats struct {
	NCandidates int  `json:"n_candidates"`
	NPruned     int  `json:"n_pruned"`
	TimedOut    bool `json:"timed_out"`
}

func (s *Server) writeCode(w http.ResponseWriter, code Code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code.httpStatus())
	json.NewEncoder(w).Encode(QueryResponse{Code: code, Message: message})
}

// handleQuery runs one search: parses tex_source through C1+C2+C7,
// prepares a plain-keyword merge over Keywords, runs both through the
// MaxScore merger independently, and sums their per-document scores
// before paginating (see DESIGN.md for why math and text are merged as
// two passes rather than one heterogeneous pass).
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeCode(w, CodeBadQryJSON, err.Error())
		return
	}

	tex := strings.TrimSpace(req.TexSource)
	hasMath := tex != ""
	hasText := len(req.Keywords) > 0
	if !hasMath && !hasText {
		s.writeCode(w, CodeEmptyQry, "tex_source and keywords are both empty")
		return
	}
	if len(req.Keywords) > maxTermKeywords {
		s.writeCode(w, CodeTooManyTermKw, "too many keywords")
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}
	if topK > s.cfg.MaxTopK {
		topK = s.cfg.MaxTopK
	}

	page := req.Page
	if page == 0 {
		page = 1
	}
	if page < 1 {
		s.writeCode(w, CodeIllegalPagenum, "page must be >= 1")
		return
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = topK
	}
	offset := (page - 1) * pageSize
	if offset < 0 || offset/pageSize != page-1 {
		s.writeCode(w, CodeWindCalcErr, "page*page_size overflows")
		return
	}
	internalK := offset + pageSize

	deadlineMS := req.DeadlineMS
	if deadlineMS <= 0 {
		deadlineMS = s.cfg.DeadlineMS
	}
	var deadline time.Time
	if deadlineMS > 0 {
		deadline = time.Now().Add(time.Duration(deadlineMS) * time.Millisecond)
	}

	combined := make(map[uint32]float32)
	expOf := make(map[uint32]uint32)
	var mergeStats merger.Stats
	var fingerprints []uint64

	if hasMath {
		tree, err := texparse.Parse(tex)
		if err != nil {
			s.writeCode(w, CodeEmptyQry, "tex_source did not parse: "+err.Error())
			return
		}
		p, err := queryprep.Prepare(tree, s.idx)
		if err != nil {
			switch errkind.Of(err) {
			case errkind.Overflow:
				s.writeCode(w, CodeTooManyMathKw, err.Error())
			default:
				s.writeCode(w, CodeEmptyQry, err.Error())
			}
			return
		}
		for _, qe := range p.Elements {
			fingerprints = append(fingerprints, uint64(qe.Element.Fingerprint()))
		}

		hl := scorer.NewHighlighter(len(p.Elements))
		m := merger.New(p.Iterators(), nil)
		hits, st := m.Run(internalK, p.NewScoreFunc(hl), deadline)
		mergeStats = st

		for _, d := range queryprep.CollapseToDocs(hits) {
			combined[d.DocID] += d.Score
			expOf[d.DocID] = d.ExpID
		}
	}

	if hasText && s.text != nil {
		iters := make([]*textindex.Iterator, len(req.Keywords))
		merged := make([]merger.Iterator, len(req.Keywords))
		for i, kw := range req.Keywords {
			postings, idf := s.text.Lookup(strings.ToLower(kw))
			it := textindex.NewIterator(postings, idf)
			iters[i] = it
			merged[i] = it
		}
		textScore := func(key uint64, positioned []int) float32 {
			var sum float32
			for _, idx := range positioned {
				sum += iters[idx].IDF() * float32(iters[idx].Freq())
			}
			return sum
		}
		m := merger.New(merged, nil)
		hits, st := m.Run(internalK, textScore, deadline)
		mergeStats.NCandidates += st.NCandidates
		mergeStats.NPruned += st.NPruned
		mergeStats.TimedOut = mergeStats.TimedOut || st.TimedOut

		for _, h := range hits {
			docID, _ := postingcodec.UnpackKey(h.Key)
			combined[docID] += h.Score
		}
	}

	if len(combined) == 0 {
		resp := QueryResponse{Code: CodeNoHitFound, Stats: &Stats{
			NCandidates: mergeStats.NCandidates,
			NPruned:     mergeStats.NPruned,
			TimedOut:    mergeStats.TimedOut,
		}}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
		s.recordStats(tex, mergeStats, fingerprints, topK)
		return
	}

	docIDs := make([]uint32, 0, len(combined))
	for d := range combined {
		docIDs = append(docIDs, d)
	}
	sort.Slice(docIDs, func(i, j int) bool {
		if combined[docIDs[i]] != combined[docIDs[j]] {
			return combined[docIDs[i]] > combined[docIDs[j]]
		}
		return docIDs[i] < docIDs[j]
	})

	end := offset + pageSize
	if offset > len(docIDs) {
		offset = len(docIDs)
	}
	if end > len(docIDs) {
		end = len(docIDs)
	}
	pageDocs := docIDs[offset:end]

	hits := make([]Hit, len(pageDocs))
	for i, d := range pageDocs {
		hits[i] = Hit{DocID: d, Score: combined[d]}
		if expID, ok := expOf[d]; ok {
			hits[i].ExpIDs = []uint32{expID}
		}
		if s.blobs != nil {
			if url, err := s.blobs.URL(d); err == nil {
				hits[i].URL = string(url)
			}
		}
	}

	resp := QueryResponse{
		Code: CodeOK,
		Hits: hits,
		Stats: &Stats{
			NCandidates: mergeStats.NCandidates,
			NPruned:     mergeStats.NPruned,
			TimedOut:    mergeStats.TimedOut,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)

	s.recordStats(tex, mergeStats, fingerprints, topK)
}

func (s *Server) recordStats(tex string, st merger.Stats, fingerprints []uint64, topK int) {
	if s.stats == nil {
		return
	}
	var timedOut uint8
	if st.TimedOut {
		timedOut = 1
	}
	s.stats.Record(analytics.QueryStatRow{
		At:           time.Now(),
		TexSource:    tex,
		NCandidates:  uint64(st.NCandidates),
		NPruned:      uint64(st.NPruned),
		TopK:         uint32(topK),
		TimedOut:     timedOut,
		DistinctPath: analytics.DistinctPathEstimate(fingerprints),
	})
}
