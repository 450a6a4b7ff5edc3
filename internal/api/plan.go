package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"hkexplorer/pkg/model"
	"hkexplorer/pkg/planner"
	"hkexplorer/pkg/request"
	"hkexplorer/pkg/store"
)

// maxRequestBytes bounds a plan request body, catalog included.
const maxRequestBytes = 4 << 20

// streamChunkSize is the payload size of one "data: " frame.
const streamChunkSize = 512

// Planner answers planning requests.
type Planner interface {
	Run(ctx context.Context, req model.PlanRequest) planner.Result
}

// PlanHandler serves POST /api/plan.
type PlanHandler struct {
	planner Planner
	journal store.PlanStore
	catalog []model.Challenge
}

// NewPlanHandler creates a PlanHandler. catalog fills requests that carry no
// challenges field at all; journal may be nil.
func NewPlanHandler(p Planner, journal store.PlanStore, catalog []model.Challenge) *PlanHandler {
	return &PlanHandler{planner: p, journal: journal, catalog: catalog}
}

// HandlePlan handles POST /api/plan. The answer is JSON, or a "data: " framed
// event stream when the client accepts text/event-stream.
func (h *PlanHandler) HandlePlan(w http.ResponseWriter, r *http.Request) {
	var req model.PlanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		slog.Warn("API: plan request decode error", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	res := h.plan(r.Context(), req)

	w.Header().Set("X-Plan-ID", res.RequestID)
	if acceptsStream(r) {
		writeStream(w, res.WorkflowResult)
		return
	}
	writeJSON(w, http.StatusOK, res.WorkflowResult)
}

// plan runs one request and journals it. Journal failures are only logged.
func (h *PlanHandler) plan(ctx context.Context, req model.PlanRequest) planner.Result {
	if req.Challenges == nil {
		req.Challenges = h.catalog
	}

	res := h.planner.Run(ctx, req)

	if h.journal != nil {
		entry := &store.Plan{
			ID:        res.RequestID,
			Message:   req.Message,
			Response:  res.Response,
			Route:     res.Route,
			Fallback:  res.Outcome == planner.OutcomeFallback,
			Outcome:   string(res.Outcome),
			CreatedAt: time.Now().UTC(),
		}
		// The request context may already be gone once the client disconnects.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := h.journal.SavePlan(saveCtx, entry); err != nil {
			slog.Error("API: failed to journal plan", "id", res.RequestID, "error", err)
		}
	}
	return res
}

func acceptsStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

func writeStream(w http.ResponseWriter, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("API: failed to encode stream payload", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if err := request.EncodeStream(w, payload, streamChunkSize); err != nil {
		slog.Warn("API: stream write failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("API: failed to write response", "error", err)
	}
}
