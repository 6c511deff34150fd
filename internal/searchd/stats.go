package searchd

import (
	"encoding/json"
	"net/http"
)

// StatsResponse exposes the math index's aggregate stats (spec.md sec 6:
// "stats # n_tex (u64), N (u64), avgDocLen (u32)").
type StatsResponse struct {
	NTex      uint64 `json:"n_tex"`
	N         uint64 `json:"n"`
	AvgDocLen uint32 `json:"avg_doc_len"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		NTex:      s.idx.Stats.NTex,
		N:         s.idx.Stats.N,
		AvgDocLen: s.idx.Stats.AvgDocLen,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
