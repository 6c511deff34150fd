package searchd

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

// HealthResponse reports the daemon's liveness and basic resource use,
// grounded on the teacher's api.HealthResponse.
type HealthResponse struct {
	Status    string       `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Uptime    string       `json:"uptime"`
	Memory    *MemoryStats `json:"memory,omitempty"`
}

// MemoryStats mirrors runtime.MemStats' most relevant fields.
type MemoryStats struct {
	AllocMB uint64 `json:"alloc_mb"`
	SysMB   uint64 `json:"sys_mb"`
	NumGC   uint32 `json:"num_gc"`
}

var startTime = time.Now()

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    time.Since(startTime).String(),
		Memory: &MemoryStats{
			AllocMB: m.Alloc / 1024 / 1024,
			SysMB:   m.Sys / 1024 / 1024,
			NumGC:   m.NumGC,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
