package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"hkexplorer/pkg/geo"
	"hkexplorer/pkg/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// JournalHandler serves the plan journal.
type JournalHandler struct {
	store store.PlanStore
}

// NewJournalHandler creates a new JournalHandler. Returns nil if the journal is disabled.
func NewJournalHandler(st store.PlanStore) *JournalHandler {
	if st == nil {
		return nil
	}
	return &JournalHandler{store: st}
}

// HandleList handles GET /api/plans?limit=N
func (h *JournalHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}

	plans, err := h.store.ListRecentPlans(r.Context(), limit)
	if err != nil {
		slog.Error("API: failed to list plans", "error", err)
		http.Error(w, "failed to list plans", http.StatusInternalServerError)
		return
	}
	if plans == nil {
		plans = []*store.Plan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

// HandleGet handles GET /api/plans/{id}
func (h *JournalHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleGeoJSON handles GET /api/plans/{id}/geojson. The stops become points
// and the walking order a line.
func (h *JournalHandler) HandleGeoJSON(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}
	fc := geo.FeatureCollection(p.Route)
	data, err := fc.MarshalJSON()
	if err != nil {
		slog.Error("API: failed to encode geojson", "id", p.ID, "error", err)
		http.Error(w, "failed to encode geojson", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if _, err := w.Write(data); err != nil {
		slog.Error("API: failed to write geojson", "error", err)
	}
}

func (h *JournalHandler) lookup(w http.ResponseWriter, r *http.Request) (*store.Plan, bool) {
	id := r.PathValue("id")
	p, err := h.store.GetPlan(r.Context(), id)
	if errors.Is(err, store.ErrPlanNotFound) {
		http.Error(w, "plan not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		slog.Error("API: failed to load plan", "id", id, "error", err)
		http.Error(w, "failed to load plan", http.StatusInternalServerError)
		return nil, false
	}
	return p, true
}
