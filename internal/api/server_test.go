package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hkexplorer/pkg/tracker"
	"hkexplorer/pkg/version"
)

func TestNewServer_Routes(t *testing.T) {
	tr := tracker.New()
	tr.TrackAPISuccess("gemini")
	tr.TrackAPISuccess("gemini")
	tr.TrackAPISuccess("gemini")
	tr.TrackAPIFailure("gemini")
	tr.TrackOutcome("assembled")

	plans := NewPlanHandler(&fakePlanner{}, nil, testCatalog())
	srv := NewServer(":0", plans, nil, nil, NewStatsHandler(tr, []string{"gemini", "local"}), nil)
	assert.Equal(t, 5*time.Minute, srv.WriteTimeout)

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
		validate       func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:           "Health",
			method:         http.MethodGet,
			path:           "/health",
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, "OK", w.Body.String())
			},
		},
		{
			name:           "Version",
			method:         http.MethodGet,
			path:           "/api/version",
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var info version.Info
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
				assert.Equal(t, version.Version, info.Version)
			},
		},
		{
			name:           "Stats",
			method:         http.MethodGet,
			path:           "/api/stats",
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp StatsResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, int64(75), resp.Providers["gemini"].SuccessRate)
				assert.Equal(t, int64(1), resp.Outcomes["assembled"])
				assert.Equal(t, []string{"gemini", "local"}, resp.LLMFallback)
				assert.Positive(t, resp.Diagnostics.Goroutines)
			},
		},
		{
			name:           "LatestLog",
			method:         http.MethodGet,
			path:           "/api/log/latest",
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Contains(t, w.Body.String(), `"log"`)
			},
		},
		{
			name:           "Plan",
			method:         http.MethodPost,
			path:           "/api/plan",
			body:           `{"message":"food"}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Plan_WrongMethod",
			method:         http.MethodGet,
			path:           "/api/plan",
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "Journal_Disabled",
			method:         http.MethodGet,
			path:           "/api/plans",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Shutdown_NotRegistered",
			method:         http.MethodPost,
			path:           "/api/shutdown",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.validate != nil {
				tt.validate(t, w)
			}
		})
	}
}

func TestNewServer_Shutdown(t *testing.T) {
	done := make(chan struct{})
	plans := NewPlanHandler(&fakePlanner{}, nil, nil)
	srv := NewServer(":0", plans, nil, nil, NewStatsHandler(tracker.New(), nil), func() { close(done) })

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/shutdown", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown callback was not called")
	}
}
