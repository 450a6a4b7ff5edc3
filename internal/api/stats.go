package api

import (
	"net/http"
	"runtime"
	"time"

	"hkexplorer/pkg/tracker"
)

// StatsHandler serves GET /api/stats.
type StatsHandler struct {
	tracker     *tracker.Tracker
	llmFallback []string
	started     time.Time
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(t *tracker.Tracker, fallback []string) *StatsHandler {
	return &StatsHandler{
		tracker:     t,
		llmFallback: fallback,
		started:     time.Now(),
	}
}

// ProviderStatsDTO is the per-provider view of the tracker.
type ProviderStatsDTO struct {
	APISuccess    int64 `json:"api_success"`
	APIZeroResult int64 `json:"api_zero"`
	APIFailures   int64 `json:"api_errors"`
	SuccessRate   int64 `json:"success_rate"`
}

// Diagnostics describes the server process.
type Diagnostics struct {
	UptimeSec  int64  `json:"uptime_sec"`
	Goroutines int    `json:"goroutines"`
	MemoryMB   uint64 `json:"memory_mb"`
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	Diagnostics Diagnostics                 `json:"diagnostics"`
	Providers   map[string]ProviderStatsDTO `json:"providers"`
	Outcomes    map[string]int64            `json:"outcomes"`
	LLMFallback []string                    `json:"llm_fallback"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := StatsResponse{
		Diagnostics: Diagnostics{
			UptimeSec:  int64(time.Since(h.started).Seconds()),
			Goroutines: runtime.NumGoroutine(),
			MemoryMB:   mem.Alloc / 1024 / 1024,
		},
		Providers:   make(map[string]ProviderStatsDTO),
		Outcomes:    h.tracker.Outcomes(),
		LLMFallback: h.llmFallback,
	}

	for provider, stats := range h.tracker.Snapshot() {
		total := stats.APISuccess + stats.APIFailures
		rate := int64(0)
		if total > 0 {
			rate = (stats.APISuccess * 100) / total
		}
		resp.Providers[provider] = ProviderStatsDTO{
			APISuccess:    stats.APISuccess,
			APIZeroResult: stats.APIZeroResult,
			APIFailures:   stats.APIFailures,
			SuccessRate:   rate,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
