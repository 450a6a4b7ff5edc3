package api

import (
	"net/http"
	"strconv"

	"hkexplorer/pkg/logging"
)

const maxRecentLines = 50

// LogResponse is the body of GET /api/log/recent.
type LogResponse struct {
	Lines []string `json:"lines"`
}

// handleLatestLog returns the newest captured server log line.
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"log": logging.Recent.Last()})
}

// handleRecentLog returns up to ?n= captured lines, oldest first.
func handleRecentLog(w http.ResponseWriter, r *http.Request) {
	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			http.Error(w, "n must be a positive integer", http.StatusBadRequest)
			return
		}
		n = min(v, maxRecentLines)
	}
	writeJSON(w, http.StatusOK, LogResponse{Lines: logging.Recent.Lines(n)})
}
