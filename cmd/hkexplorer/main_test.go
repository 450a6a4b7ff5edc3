package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"hkexplorer/pkg/config"
)

func TestLoggingMiddleware_RecordsStatus(t *testing.T) {
	var seen *statusRecorder
	h := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.(*statusRecorder)
		w.Header().Set("X-Plan-ID", "abc")
		w.WriteHeader(http.StatusTeapot)
		w.(http.Flusher).Flush()
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/plans", http.NoBody))

	if w.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", w.Code)
	}
	if seen == nil || seen.status != http.StatusTeapot {
		t.Error("status recorder did not capture the status")
	}
	if !w.Flushed {
		t.Error("flush should reach the underlying writer")
	}
}

func TestStatusRecorder_HijackUnsupported(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	if _, _, err := rec.Hijack(); err == nil {
		t.Error("expected error when the writer cannot be hijacked")
	}
}

func TestInitDB(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DB.Path = filepath.Join(t.TempDir(), "plans.db")

	conn, st := initDB(t.Context(), cfg)
	if conn == nil || st == nil {
		t.Fatal("expected an open journal")
	}
	conn.Close()

	cfg.DB.Path = ""
	if conn, st := initDB(t.Context(), cfg); conn != nil || st != nil {
		t.Error("empty path should disable the journal")
	}
}
