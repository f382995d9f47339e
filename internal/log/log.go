// Package log provides JSON-lines structured logging for sk sessions.
//
// The chooser owns the terminal while a session runs, so loggers normally
// write to a file and are discarded when none is configured.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config configures the structured logger.
type Config struct {
	// Output is the writer for log output (default: discard)
	Output io.Writer

	// Level is the minimum log level (default: LevelInfo)
	Level slog.Level

	// Debug enables debug level logging (overrides Level)
	Debug bool
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Output: io.Discard,
		Level:  slog.LevelInfo,
	}
}

// New creates a JSON-lines logger. Records look like:
//
//	{"ts":"2026-01-15T10:30:00Z","level":"INFO","msg":"session started","session_id":"..."}
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Output == nil || cfg.Output == io.Discard {
		return Discard()
	}

	level := cfg.Level
	if cfg.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "ts"
			}
			return a
		},
	}
	return slog.New(slog.NewJSONHandler(cfg.Output, opts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// DebugEnabled reports whether SK_DEBUG=1 is set.
func DebugEnabled() bool {
	return os.Getenv("SK_DEBUG") == "1"
}

// NewFromEnv creates a logger writing to stderr when SK_DEBUG=1 and a
// discarding logger otherwise.
func NewFromEnv() *slog.Logger {
	if !DebugEnabled() {
		return Discard()
	}
	return New(&Config{Output: os.Stderr, Debug: true})
}

// ParseLevel parses debug, info, warn or error (case-insensitive).
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// OpenFile opens path for appending, creating its directory as needed. The
// caller closes the returned file.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// SessionInfo holds what is logged when a session opens.
type SessionInfo struct {
	SessionID   string
	Multi       bool
	Interactive bool
	InputFormat string
	Policies    bool
	Expect      []string
}

// LogSessionStart logs session startup.
func LogSessionStart(logger *slog.Logger, info SessionInfo) {
	logger.Info("session started",
		"session_id", info.SessionID,
		"multi", info.Multi,
		"interactive", info.Interactive,
		"input_format", info.InputFormat,
		"pre_select", info.Policies,
		"expect", info.Expect,
	)
}

// LogSessionEnd logs how a session finished.
func LogSessionEnd(logger *slog.Logger, outcome string, selected int) {
	logger.Info("session finished", "outcome", outcome, "selected", selected)
}

// LogGenerationStarted logs the start of a production generation.
func LogGenerationStarted(logger *slog.Logger, id uint64, query string) {
	logger.Debug("generation started", "generation", id, "query", query)
}

// LogGenerationDone logs a generation becoming terminal.
func LogGenerationDone(logger *slog.Logger, id uint64, emitted int, interrupted bool) {
	logger.Debug("generation done",
		"generation", id,
		"emitted", emitted,
		"interrupted", interrupted,
	)
}

// LogCallbackError logs a user callback failure that was turned into an
// item or preview.
func LogCallbackError(logger *slog.Logger, role string, err error) {
	logger.Warn("callback failed", "role", role, "error", err)
}

// LogHistoryError logs a query history failure. History is best effort.
func LogHistoryError(logger *slog.Logger, operation string, err error) {
	logger.Warn("history error", "operation", operation, "error", err)
}
