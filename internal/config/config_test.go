package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.UI.Height != "100%" {
		t.Errorf("Expected height=100%%, got %s", cfg.UI.Height)
	}
	if cfg.UI.MinHeight != 10 {
		t.Errorf("Expected min_height=10, got %d", cfg.UI.MinHeight)
	}
	if cfg.UI.PreviewWindow != "right:50%" {
		t.Errorf("Expected preview_window=right:50%%, got %s", cfg.UI.PreviewWindow)
	}
	if cfg.UI.Margin != "0,0,0,0" {
		t.Errorf("Expected margin=0,0,0,0, got %s", cfg.UI.Margin)
	}
	if cfg.Requery.DebounceMs != 100 {
		t.Errorf("Expected debounce_ms=100, got %d", cfg.Requery.DebounceMs)
	}
	if !cfg.History.Enabled {
		t.Error("Expected history.enabled=true")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected log.level=info, got %s", cfg.Log.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestConfigGet(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		key      string
		expected string
	}{
		{"ui.height", "100%"},
		{"ui.min_height", "10"},
		{"ui.layout", "default"},
		{"ui.prompt", "> "},
		{"ui.tabstop", "8"},
		{"ui.algo", "skim_v2"},
		{"ui.case", "smart"},
		{"ui.tiebreak", "score,begin,end"},
		{"requery.debounce_ms", "100"},
		{"history.enabled", "true"},
		{"history.path", ""},
		{"history.max_entries", "1000"},
		{"log.level", "info"},
		{"log.file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Fatalf("Get(%q) error: %v", tt.key, err)
			}
			if got != tt.expected {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}

func TestConfigGet_Errors(t *testing.T) {
	cfg := DefaultConfig()

	for _, key := range []string{"ui", "a.b.c", "daemon.socket_path", "ui.nope", "requery.nope", "log.nope"} {
		if _, err := cfg.Get(key); err == nil {
			t.Errorf("Get(%q) expected error", key)
		}
	}
}

func TestConfigSet(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"ui.height", "40%"},
		{"ui.min_height", "5"},
		{"ui.layout", "reverse"},
		{"ui.color", "light"},
		{"ui.algo", "clangd"},
		{"ui.case", "respect"},
		{"requery.debounce_ms", "250"},
		{"history.enabled", "false"},
		{"history.path", "/tmp/h.db"},
		{"history.max_entries", "50"},
		{"log.level", "debug"},
		{"log.file", "/tmp/sk.log"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			cfg := DefaultConfig()
			if err := cfg.Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set(%q, %q) error: %v", tt.key, tt.value, err)
			}
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Fatalf("Get(%q) error: %v", tt.key, err)
			}
			if got != tt.value {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.value)
			}
		})
	}
}

func TestConfigSet_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"ui.min_height", "many"},
		{"ui.layout", "sideways"},
		{"ui.algo", "fzf"},
		{"ui.case", "upper"},
		{"ui.unknown", "x"},
		{"history.enabled", "maybe"},
		{"history.unknown", "x"},
		{"log.level", "verbose"},
		{"requery.debounce_ms", "soon"},
		{"other.key", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			if err := cfg.Set(tt.key, tt.value); err == nil {
				t.Errorf("Set(%q, %q) expected error", tt.key, tt.value)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative min height", func(c *Config) { c.UI.MinHeight = -1 }},
		{"zero tabstop", func(c *Config) { c.UI.Tabstop = 0 }},
		{"bad layout", func(c *Config) { c.UI.Layout = "up" }},
		{"bad algo", func(c *Config) { c.UI.Algo = "v3" }},
		{"bad case", func(c *Config) { c.UI.Case = "lower" }},
		{"negative debounce", func(c *Config) { c.Requery.DebounceMs = -1 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_ClampsHistoryEntries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.History.MaxEntries = 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if cfg.History.MaxEntries != minHistoryEntries {
		t.Errorf("Expected max_entries clamped to %d, got %d", minHistoryEntries, cfg.History.MaxEntries)
	}

	cfg.History.MaxEntries = maxHistoryEntries + 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if cfg.History.MaxEntries != maxHistoryEntries {
		t.Errorf("Expected max_entries clamped to %d, got %d", maxHistoryEntries, cfg.History.MaxEntries)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFromFile error: %v", err)
	}
	if cfg.UI.Layout != "default" {
		t.Errorf("Expected default layout, got %s", cfg.UI.Layout)
	}
}

func TestLoadFromFile_Partial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "ui:\n  layout: reverse\n  prompt: \"sk> \"\nrequery:\n  debounce_ms: 20\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile error: %v", err)
	}
	if cfg.UI.Layout != "reverse" {
		t.Errorf("Expected layout=reverse, got %s", cfg.UI.Layout)
	}
	if cfg.UI.Prompt != "sk> " {
		t.Errorf("Expected prompt=%q, got %q", "sk> ", cfg.UI.Prompt)
	}
	if cfg.Requery.DebounceMs != 20 {
		t.Errorf("Expected debounce_ms=20, got %d", cfg.Requery.DebounceMs)
	}
	// Untouched fields keep their defaults.
	if cfg.UI.MinHeight != 10 {
		t.Errorf("Expected min_height=10, got %d", cfg.UI.MinHeight)
	}
}

func TestLoadFromFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	badYAML := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(badYAML, []byte("ui: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(badYAML); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("Expected parse error, got %v", err)
	}

	badValue := filepath.Join(dir, "value.yaml")
	if err := os.WriteFile(badValue, []byte("ui:\n  algo: v9\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(badValue); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("Expected invalid config error, got %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.UI.Color = "light,matched:1"
	cfg.History.MaxEntries = 42
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile error: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile error: %v", err)
	}
	if loaded.UI.Color != "light,matched:1" {
		t.Errorf("Expected color to round-trip, got %q", loaded.UI.Color)
	}
	if loaded.History.MaxEntries != 42 {
		t.Errorf("Expected max_entries=42, got %d", loaded.History.MaxEntries)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SK_LOG_LEVEL", "warn")
	t.Setenv("SK_LOG_FILE", "/tmp/sk-test.log")
	t.Setenv("SK_HISTORY", "0")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Log.Level != "warn" {
		t.Errorf("Expected log.level=warn, got %s", cfg.Log.Level)
	}
	if cfg.Log.File != "/tmp/sk-test.log" {
		t.Errorf("Expected log.file override, got %s", cfg.Log.File)
	}
	if cfg.History.Enabled {
		t.Error("Expected SK_HISTORY=0 to disable history")
	}
}

func TestApplyEnvOverrides_DebugAndInvalid(t *testing.T) {
	t.Setenv("SK_DEBUG", "1")
	t.Setenv("SK_LOG_LEVEL", "shouty")
	t.Setenv("SK_HISTORY", "perhaps")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected SK_DEBUG to force debug, got %s", cfg.Log.Level)
	}
	if !cfg.History.Enabled {
		t.Error("Expected unparseable SK_HISTORY to be ignored")
	}
}

func TestListKeys(t *testing.T) {
	cfg := DefaultConfig()
	for _, key := range ListKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("ListKeys contains %q but Get fails: %v", key, err)
		}
	}
}
