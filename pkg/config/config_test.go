package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		content   string // empty means no file
		env       map[string]string
		validate  func(*testing.T, *Config)
		checkFile func(*testing.T, string)
		wantErr   bool
	}{
		{
			name: "NewFile_Defaults",
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Planner.HistoryTurns != 6 {
					t.Errorf("expected history_turns 6, got %d", cfg.Planner.HistoryTurns)
				}
				if cfg.Planner.MaxStops != 6 {
					t.Errorf("expected max_stops 6, got %d", cfg.Planner.MaxStops)
				}
				if cfg.Planner.TravelBuffer.Std() != 15*time.Minute {
					t.Errorf("expected travel_buffer 15m, got %v", cfg.Planner.TravelBuffer.Std())
				}
				if got := cfg.LLM.Fallback; len(got) != 1 || got[0] != "gemini" {
					t.Errorf("unexpected fallback chain %v", got)
				}
			},
			checkFile: func(t *testing.T, path string) {
				content, err := os.ReadFile(path)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "history_turns: 6") {
					t.Error("config file missing planner defaults")
				}
				if !strings.Contains(string(content), "# Options: deepseek, gemini, groq, ollama, openai") {
					t.Error("config file missing provider type comment")
				}
			},
		},
		{
			name:    "ExistingFile_Override",
			content: "server:\n  address: \":9000\"\nplanner:\n  default_hours: 2.5\n  travel_buffer: 10m\n",
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Server.Address != ":9000" {
					t.Errorf("expected address :9000, got %s", cfg.Server.Address)
				}
				if cfg.Planner.DefaultHours != 2.5 {
					t.Errorf("expected default_hours 2.5, got %v", cfg.Planner.DefaultHours)
				}
				if cfg.Planner.TravelBuffer.Std() != 10*time.Minute {
					t.Errorf("expected travel_buffer 10m, got %v", cfg.Planner.TravelBuffer.Std())
				}
				if cfg.Planner.MaxStops != 6 {
					t.Errorf("untouched field should keep its default, got %d", cfg.Planner.MaxStops)
				}
			},
			checkFile: func(t *testing.T, path string) {
				content, err := os.ReadFile(path)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if strings.Contains(string(content), "history_turns") {
					t.Error("existing config file should not be rewritten")
				}
			},
		},
		{
			name:    "LLM_Env_Override",
			content: "llm:\n  providers:\n    p1:\n      type: openai\n      key: \"\"\n    local:\n      type: ollama\n  fallback: [p1, local]\n",
			env: map[string]string{
				"OPENAI_API_KEY": "env_secret_key",
				"OLLAMA_HOST":    "http://gpu-box:11434",
			},
			validate: func(t *testing.T, cfg *Config) {
				p1, ok := cfg.LLM.Providers["p1"]
				if !ok {
					t.Fatal("provider p1 missing")
				}
				if p1.Key != "env_secret_key" {
					t.Errorf("expected Key 'env_secret_key', got '%s'", p1.Key)
				}
				if got := cfg.LLM.Providers["local"].BaseURL; got != "http://gpu-box:11434" {
					t.Errorf("expected ollama host from env, got %q", got)
				}
			},
			checkFile: func(t *testing.T, path string) {
				content, err := os.ReadFile(path)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if strings.Contains(string(content), "env_secret_key") {
					t.Error("environment secret should NOT be persisted to config file")
				}
			},
		},
		{
			name:    "Path_Env_Expansion",
			content: "db:\n  path: \"$HK_HOME/plans.db\"\n",
			env:     map[string]string{"HK_HOME": "/srv/hk"},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.DB.Path != "/srv/hk/plans.db" {
					t.Errorf("expected expanded db path, got %s", cfg.DB.Path)
				}
			},
		},
		{
			name:    "Unknown_Fallback",
			content: "llm:\n  fallback: [nope]\n",
			wantErr: true,
		},
		{
			name:    "Unknown_Type",
			content: "llm:\n  providers:\n    odd:\n      type: carrier-pigeon\n",
			wantErr: true,
		},
		{
			name:    "Malformed_YAML",
			content: "planner: [unclosed\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "hkexplorer.yaml")
			if tt.content != "" {
				if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
			if tt.checkFile != nil {
				tt.checkFile(t, path)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	cfg.Planner.MaxStops = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for max_stops 0")
	}

	cfg = DefaultConfig()
	cfg.LLM.Fallback = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty fallback chain")
	}

	cfg = DefaultConfig()
	cfg.Planner.DefaultHours = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero default hours")
	}
}

func TestGenerateDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "hkexplorer.yaml")
	if err := GenerateDefault(path); err != nil {
		t.Fatalf("GenerateDefault failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}

	if err := os.WriteFile(path, []byte("custom: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := GenerateDefault(path); err != nil {
		t.Fatalf("GenerateDefault on existing file failed: %v", err)
	}
	content, _ := os.ReadFile(path)
	if string(content) != "custom: true\n" {
		t.Error("existing file should be left untouched")
	}
}
