package api

import (
	"log/slog"
	"net/http"
	"time"

	"hkexplorer/pkg/version"
)

// NewServer creates and configures the HTTP server. journal and chat may be
// nil, in which case their routes are not registered.
func NewServer(addr string, plan *PlanHandler, journal *JournalHandler, chat *ChatHandler, stats *StatsHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health and metadata
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)
	mux.Handle("GET /api/stats", stats)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.HandleFunc("GET /api/log/recent", handleRecentLog)

	// 2. Planning
	mux.HandleFunc("POST /api/plan", plan.HandlePlan)

	// 3. Journal
	if journal != nil {
		mux.HandleFunc("GET /api/plans", journal.HandleList)
		mux.HandleFunc("GET /api/plans/{id}", journal.HandleGet)
		mux.HandleFunc("GET /api/plans/{id}/geojson", journal.HandleGeoJSON)
	}

	// 4. Chat
	if chat != nil {
		mux.HandleFunc("GET /api/chat/ws", chat.HandleChat)
	}

	// 5. Shutdown
	if shutdown != nil {
		mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
			slog.Info("Graceful shutdown initiated via API")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("Shutting down...")); err != nil {
				slog.Error("Failed to write shutdown response", "error", err)
			}
			// Let the response flush first
			go func() {
				time.Sleep(100 * time.Millisecond)
				shutdown()
			}()
		})
	}

	return &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// A plan makes up to three generator calls, each with retries.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Current())
}
