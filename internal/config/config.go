package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the sk configuration.
type Config struct {
	UI      UIConfig      `yaml:"ui"`
	Requery RequeryConfig `yaml:"requery"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
}

// UIConfig holds chooser defaults. Command-line flags override them.
type UIConfig struct {
	Height        string `yaml:"height"`         // Rows or percentage of the terminal
	MinHeight     int    `yaml:"min_height"`     // Lower bound when height is a percentage
	Layout        string `yaml:"layout"`         // default, reverse or reverse-list
	Prompt        string `yaml:"prompt"`         // Query prompt
	PreviewWindow string `yaml:"preview_window"` // position:size[:hidden][:wrap]
	Margin        string `yaml:"margin"`         // CSS-style margin shorthand
	Color         string `yaml:"color"`          // Base scheme plus overrides
	Tabstop       int    `yaml:"tabstop"`        // Tab width in display text
	Algo          string `yaml:"algo"`           // skim_v1, skim_v2 or clangd
	Case          string `yaml:"case"`           // smart, ignore or respect
	Tiebreak      string `yaml:"tiebreak"`       // Comma-separated criteria
}

// RequeryConfig holds interactive requery settings.
type RequeryConfig struct {
	DebounceMs int `yaml:"debounce_ms"` // Quiet period before the command reruns
}

// HistoryConfig holds query history settings.
type HistoryConfig struct {
	Enabled    bool   `yaml:"enabled"`     // Store accepted queries
	Path       string `yaml:"path"`        // Database path (overrides default)
	MaxEntries int    `yaml:"max_entries"` // Entries kept per history key
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // Log file path; logging is off when empty
}

const (
	minHistoryEntries = 10
	maxHistoryEntries = 100000
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		UI: UIConfig{
			Height:        "100%",
			MinHeight:     10,
			Layout:        "default",
			Prompt:        "> ",
			PreviewWindow: "right:50%",
			Margin:        "0,0,0,0",
			Color:         "",
			Tabstop:       8,
			Algo:          "skim_v2",
			Case:          "smart",
			Tiebreak:      "score,begin,end",
		},
		Requery: RequeryConfig{
			DebounceMs: 100,
		},
		History: HistoryConfig{
			Enabled:    true,
			Path:       "", // Use default from paths
			MaxEntries: 1000,
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	paths := DefaultPaths()
	return LoadFromFile(paths.ConfigFile())
}

// LoadFromFile loads configuration from the specified file.
// If the file doesn't exist, returns default configuration.
// Environment variable overrides are applied after file loading.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	paths := DefaultPaths()
	return c.SaveToFile(paths.ConfigFile())
}

// SaveToFile saves the configuration to the specified file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get retrieves a configuration value by dot-separated key.
// For example: "ui.layout" or "history.enabled"
func (c *Config) Get(key string) (string, error) {
	section, field, err := splitKey(key)
	if err != nil {
		return "", err
	}

	switch section {
	case "ui":
		return c.getUIField(field)
	case "requery":
		if field == "debounce_ms" {
			return strconv.Itoa(c.Requery.DebounceMs), nil
		}
	case "history":
		return c.getHistoryField(field)
	case "log":
		switch field {
		case "level":
			return c.Log.Level, nil
		case "file":
			return c.Log.File, nil
		}
	default:
		return "", fmt.Errorf("unknown section: %s", section)
	}
	return "", fmt.Errorf("unknown field: %s", key)
}

// Set sets a configuration value by dot-separated key.
func (c *Config) Set(key, value string) error {
	section, field, err := splitKey(key)
	if err != nil {
		return err
	}

	switch section {
	case "ui":
		return c.setUIField(field, value)
	case "requery":
		if field == "debounce_ms" {
			return setInt(&c.Requery.DebounceMs, key, value)
		}
	case "history":
		return c.setHistoryField(field, value)
	case "log":
		switch field {
		case "level":
			if !isValidLogLevel(value) {
				return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", value)
			}
			c.Log.Level = value
			return nil
		case "file":
			c.Log.File = value
			return nil
		}
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
	return fmt.Errorf("unknown field: %s", key)
}

func splitKey(key string) (string, string, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", "", errors.New("key must be in format 'section.key'")
	}
	return parts[0], parts[1], nil
}

func (c *Config) uiStrings() map[string]*string {
	return map[string]*string{
		"height":         &c.UI.Height,
		"layout":         &c.UI.Layout,
		"prompt":         &c.UI.Prompt,
		"preview_window": &c.UI.PreviewWindow,
		"margin":         &c.UI.Margin,
		"color":          &c.UI.Color,
		"algo":           &c.UI.Algo,
		"case":           &c.UI.Case,
		"tiebreak":       &c.UI.Tiebreak,
	}
}

func (c *Config) getUIField(field string) (string, error) {
	switch field {
	case "min_height":
		return strconv.Itoa(c.UI.MinHeight), nil
	case "tabstop":
		return strconv.Itoa(c.UI.Tabstop), nil
	}
	if p, ok := c.uiStrings()[field]; ok {
		return *p, nil
	}
	return "", fmt.Errorf("unknown field: ui.%s", field)
}

func (c *Config) setUIField(field, value string) error {
	switch field {
	case "min_height":
		return setInt(&c.UI.MinHeight, "ui.min_height", value)
	case "tabstop":
		return setInt(&c.UI.Tabstop, "ui.tabstop", value)
	case "layout":
		if !isValidLayout(value) {
			return fmt.Errorf("invalid layout: %s (must be default, reverse, or reverse-list)", value)
		}
	case "algo":
		if !isValidAlgo(value) {
			return fmt.Errorf("invalid algo: %s (must be skim_v1, skim_v2, or clangd)", value)
		}
	case "case":
		if !isValidCase(value) {
			return fmt.Errorf("invalid case: %s (must be smart, ignore, or respect)", value)
		}
	}
	p, ok := c.uiStrings()[field]
	if !ok {
		return fmt.Errorf("unknown field: ui.%s", field)
	}
	*p = value
	return nil
}

func (c *Config) getHistoryField(field string) (string, error) {
	switch field {
	case "enabled":
		return strconv.FormatBool(c.History.Enabled), nil
	case "path":
		return c.History.Path, nil
	case "max_entries":
		return strconv.Itoa(c.History.MaxEntries), nil
	default:
		return "", fmt.Errorf("unknown field: history.%s", field)
	}
}

func (c *Config) setHistoryField(field, value string) error {
	switch field {
	case "enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for history.enabled: %w", err)
		}
		c.History.Enabled = b
	case "path":
		c.History.Path = value
	case "max_entries":
		return setInt(&c.History.MaxEntries, "history.max_entries", value)
	default:
		return fmt.Errorf("unknown field: history.%s", field)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dst = v
	return nil
}

// Validate validates the configuration. Out-of-range history sizes are
// clamped rather than rejected.
func (c *Config) Validate() error {
	if c.UI.MinHeight < 0 {
		return errors.New("ui.min_height must be >= 0")
	}

	if c.UI.Tabstop < 1 {
		return errors.New("ui.tabstop must be >= 1")
	}

	if !isValidLayout(c.UI.Layout) {
		return fmt.Errorf("ui.layout must be default, reverse, or reverse-list (got: %s)", c.UI.Layout)
	}

	if !isValidAlgo(c.UI.Algo) {
		return fmt.Errorf("ui.algo must be skim_v1, skim_v2, or clangd (got: %s)", c.UI.Algo)
	}

	if !isValidCase(c.UI.Case) {
		return fmt.Errorf("ui.case must be smart, ignore, or respect (got: %s)", c.UI.Case)
	}

	if c.Requery.DebounceMs < 0 {
		return errors.New("requery.debounce_ms must be >= 0")
	}

	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("log.level must be debug, info, warn, or error (got: %s)", c.Log.Level)
	}

	if c.History.MaxEntries < minHistoryEntries {
		c.History.MaxEntries = minHistoryEntries
	}
	if c.History.MaxEntries > maxHistoryEntries {
		c.History.MaxEntries = maxHistoryEntries
	}

	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidLayout(layout string) bool {
	switch layout {
	case "", "default", "reverse", "reverse-list":
		return true
	default:
		return false
	}
}

func isValidAlgo(algo string) bool {
	switch algo {
	case "", "skim_v1", "skim_v2", "clangd":
		return true
	default:
		return false
	}
}

func isValidCase(mode string) bool {
	switch mode {
	case "", "smart", "ignore", "respect":
		return true
	default:
		return false
	}
}

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SK_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			c.Log.Level = "debug"
		}
	}
	if v := os.Getenv("SK_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.Log.Level = v
		}
	}
	if v := os.Getenv("SK_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("SK_HISTORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.History.Enabled = b
		}
	}
}

// ListKeys returns the configuration keys accepted by Get and Set.
func ListKeys() []string {
	return []string{
		"ui.height",
		"ui.min_height",
		"ui.layout",
		"ui.prompt",
		"ui.preview_window",
		"ui.margin",
		"ui.color",
		"ui.tabstop",
		"ui.algo",
		"ui.case",
		"ui.tiebreak",
		"requery.debounce_ms",
		"history.enabled",
		"history.path",
		"history.max_entries",
		"log.level",
		"log.file",
	}
}
