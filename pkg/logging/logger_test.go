package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hkexplorer/pkg/config"
)

func TestInit(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tempDir := t.TempDir()
	serverLog := filepath.Join(tempDir, "server.log")
	requestLog := filepath.Join(tempDir, "requests.log")
	llmLog := filepath.Join(tempDir, "llm.log")

	if err := os.WriteFile(llmLog, []byte("previous run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.LogConfig{
		Server:   config.LogSettings{Path: serverLog, Level: "DEBUG"},
		Requests: config.LogSettings{Path: requestLog, Level: "INFO"},
		LLM:      config.LogSettings{Path: llmLog},
	}

	cleanup, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer cleanup()

	if _, err := os.Stat(serverLog); os.IsNotExist(err) {
		t.Error("Server log file not created")
	}
	if _, ok := slog.Default().Handler().(fanout); !ok {
		t.Errorf("default handler should fan out, got %T", slog.Default().Handler())
	}
	if _, err := os.Stat(requestLog); os.IsNotExist(err) {
		t.Error("Request log file not created")
	}
	if _, err := os.Stat(llmLog + ".old"); err != nil {
		t.Error("LLM history should be rotated to .old")
	}

	slog.Info("Planner ready", "stops", 3)
	if got := Recent.Last(); !strings.HasSuffix(got, "Planner ready (stops=3)") {
		t.Errorf("capture handler missed the record, got %q", got)
	}

	RequestLogger.Info("POST /api/plan", "status", 200)
	data, err := os.ReadFile(requestLog)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "status=200") {
		t.Errorf("request log missing entry: %s", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"TRACE": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRotate(t *testing.T) {
	if err := rotate(""); err != nil {
		t.Fatalf("empty path should be ignored, got %v", err)
	}

	dir := t.TempDir()
	p := filepath.Join(dir, "nested", "server.log")
	if err := rotate(p); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Dir(p)); err != nil {
		t.Fatalf("directory should be created: %v", err)
	}

	_ = os.WriteFile(p, []byte("one"), 0o644)
	_ = os.WriteFile(p+".old", []byte("zero"), 0o644)
	if err := rotate(p); err != nil {
		t.Fatal(err)
	}
	old, err := os.ReadFile(p + ".old")
	if err != nil || string(old) != "one" {
		t.Fatalf("expected rotated content 'one', got %q (%v)", old, err)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Error("original should be moved away")
	}
}

func TestTrace(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	prev := EnableTrace
	t.Cleanup(func() { EnableTrace = prev })

	EnableTrace = false
	Trace(logger, "Rendered prompt", "template", "planner/user.tmpl")
	if buf.Len() != 0 {
		t.Errorf("trace should be silent when disabled, got %q", buf.String())
	}

	EnableTrace = true
	Trace(logger, "Rendered prompt", "template", "planner/user.tmpl")
	if !strings.Contains(buf.String(), "template=planner/user.tmpl") {
		t.Errorf("expected trace output, got %q", buf.String())
	}
}
