package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"

	"hkexplorer/pkg/config"
	"hkexplorer/pkg/llm"
	"hkexplorer/pkg/tracker"
)

func newGeminiServer(t *testing.T, status int, reply any, seen *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			body, _ := io.ReadAll(r.Body)
			*seen = r.URL.Path + "\n" + string(body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(reply)
	}))
}

func textReply(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	}
}

func TestGenerateText(t *testing.T) {
	var seen string
	server := newGeminiServer(t, http.StatusOK, textReply(`{"response":"hi"}`), &seen)
	defer server.Close()

	tr := tracker.New()
	c, err := NewClient(config.ProviderConfig{
		Key:         "dummy_key",
		BaseURL:     server.URL,
		Model:       "gemini-test",
		Profiles:    map[string]string{"guide": "gemini-guide"},
		Temperature: 0.5,
	}, nil, tr)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	out, err := c.GenerateText(context.Background(), "guide", "Reply in JSON with a response key.", "hello")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if out != `{"response":"hi"}` {
		t.Errorf("unexpected text %q", out)
	}
	if !strings.Contains(seen, "gemini-guide:generateContent") {
		t.Errorf("profile model not used, request was %q", seen)
	}
	if !strings.Contains(seen, "Reply in JSON with a response key.") {
		t.Error("system instruction missing from request")
	}
	if !strings.Contains(seen, "application/json") {
		t.Error("json response mime type missing from request")
	}
	if got := tr.Snapshot()["gemini"].APISuccess; got != 1 {
		t.Errorf("expected 1 tracked success, got %d", got)
	}
}

func TestGenerateText_APIError(t *testing.T) {
	server := newGeminiServer(t, http.StatusForbidden, map[string]any{
		"error": map[string]any{"code": 403, "message": "API key not valid", "status": "PERMISSION_DENIED"},
	}, nil)
	defer server.Close()

	tr := tracker.New()
	c, _ := NewClient(config.ProviderConfig{Key: "bad", BaseURL: server.URL}, nil, tr)
	c.SetLabel("gemini-backup")

	_, err := c.GenerateText(context.Background(), "planner", "", "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error should carry the status code, got %v", err)
	}
	if got := tr.Snapshot()["gemini-backup"].APIFailures; got != 1 {
		t.Errorf("expected failure tracked under label, got %d", got)
	}
}

func TestNotConfigured(t *testing.T) {
	c, err := NewClient(config.ProviderConfig{Model: "gemini-pro"}, nil, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.GenerateText(context.Background(), "guide", "", "x"); !errors.Is(err, llm.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, llm.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured from HealthCheck, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	server := newGeminiServer(t, http.StatusOK, map[string]any{"name": "models/gemini-test"}, nil)
	defer server.Close()

	c, _ := NewClient(config.ProviderConfig{Key: "dummy_key", BaseURL: server.URL, Model: "gemini-test"}, nil, nil)
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() = %v", err)
	}
}

func TestResolveModel(t *testing.T) {
	c, _ := NewClient(config.ProviderConfig{Profiles: map[string]string{"research": "gemini-2.5-flash"}}, nil, nil)

	model, gc := c.resolveModel("research", "", "plain")
	if model != "gemini-2.5-flash" {
		t.Errorf("expected profile model, got %s", model)
	}
	if gc.SystemInstruction != nil || gc.ResponseMIMEType != "" || gc.Temperature != nil {
		t.Errorf("plain request should carry no extras: %+v", gc)
	}

	model, gc = c.resolveModel("guide", "sys", "return json")
	if model != DefaultModel {
		t.Errorf("expected default model, got %s", model)
	}
	if gc.SystemInstruction == nil || gc.ResponseMIMEType != "application/json" {
		t.Errorf("expected system instruction and json mime type: %+v", gc)
	}
	if !c.HasProfile("anything") {
		t.Error("default model should serve every profile")
	}
}

func TestGetResponseText(t *testing.T) {
	if _, err := getResponseText(&genai.GenerateContentResponse{}); err == nil {
		t.Error("expected error without candidates")
	}
	if _, err := getResponseText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
	}); err == nil {
		t.Error("expected error for candidate without content")
	}

	got, err := getResponseText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "Hello "},
				nil,
				{Text: "Kowloon"},
			}},
		}},
	})
	if err != nil || got != "Hello Kowloon" {
		t.Errorf("getResponseText() = %q, %v", got, err)
	}
}
