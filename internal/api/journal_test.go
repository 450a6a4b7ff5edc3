package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hkexplorer/pkg/model"
	"hkexplorer/pkg/store"
)

func seedJournal(t *testing.T, st store.PlanStore, n int) {
	t.Helper()
	fp := &fakePlanner{}
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		res := fp.Run(context.Background(), model.PlanRequest{Message: "food", Challenges: testCatalog()})
		require.NoError(t, st.SavePlan(context.Background(), &store.Plan{
			ID:        res.RequestID,
			Message:   "food",
			Response:  res.Response,
			Route:     res.Route,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func newJournalMux(h *JournalHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/plans", h.HandleList)
	mux.HandleFunc("GET /api/plans/{id}", h.HandleGet)
	mux.HandleFunc("GET /api/plans/{id}/geojson", h.HandleGeoJSON)
	return mux
}

func TestJournalHandler(t *testing.T) {
	st := newTestJournal(t)
	seedJournal(t, st, 3)
	mux := newJournalMux(NewJournalHandler(st))

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		validate       func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:           "List_Default",
			path:           "/api/plans",
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var plans []store.Plan
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plans))
				require.Len(t, plans, 3)
				assert.Equal(t, "req-3", plans[0].ID, "newest first")
			},
		},
		{
			name:           "List_Limit",
			path:           "/api/plans?limit=1",
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var plans []store.Plan
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plans))
				assert.Len(t, plans, 1)
			},
		},
		{
			name:           "List_BadLimit",
			path:           "/api/plans?limit=zero",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Get",
			path:           "/api/plans/req-2",
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var p store.Plan
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
				assert.Equal(t, "req-2", p.ID)
				require.NotNil(t, p.Route)
				assert.Equal(t, "HK_001", p.Route.Challenges[0].ID)
			},
		},
		{
			name:           "Get_NotFound",
			path:           "/api/plans/nope",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "GeoJSON",
			path:           "/api/plans/req-1/geojson",
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, "application/geo+json", w.Header().Get("Content-Type"))
				fc, err := geojson.UnmarshalFeatureCollection(w.Body.Bytes())
				require.NoError(t, err)
				require.Len(t, fc.Features, 1, "a single stop has no path line")
				assert.Equal(t, "HK_001", fc.Features[0].Properties["id"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.validate != nil {
				tt.validate(t, w)
			}
		})
	}
}

func TestJournalHandler_ListEmpty(t *testing.T) {
	mux := newJournalMux(NewJournalHandler(newTestJournal(t)))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/plans", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestJournalHandler_StoreError(t *testing.T) {
	mux := newJournalMux(NewJournalHandler(failingJournal{}))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/plans", http.NoBody))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestNewJournalHandler_Nil(t *testing.T) {
	assert.Nil(t, NewJournalHandler(nil))
}
