package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/runger/sk/internal/config"
	"github.com/runger/sk/internal/eval"
	"github.com/runger/sk/internal/feed"
	"github.com/runger/sk/internal/history"
	sklog "github.com/runger/sk/internal/log"
	"github.com/runger/sk/internal/outcome"
	"github.com/runger/sk/internal/session"
)

const maxQueryLen = 4096

func (a *app) runChooser(cmd *cobra.Command, f *flags) error {
	cfg, err := config.Load()
	if err != nil {
		return failure(err)
	}
	paths := config.DefaultPaths()

	logger, closeLog, err := openLogger(cfg, paths, f.logFile)
	if err != nil {
		return failure(&session.ConfigError{Label: "log-file", Err: err})
	}
	defer closeLog()

	opts, err := f.tuiOptions(cmd, cfg)
	if err != nil {
		return failure(err)
	}
	w, err := f.writer()
	if err != nil {
		return failure(err)
	}
	query, err := sanitizeQuery(f.query)
	if err != nil {
		return failure(&session.ConfigError{Label: "query", Err: err})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host, err := eval.NewHost(eval.WithLogger(logger))
	if err != nil {
		return failure(err)
	}
	defer host.Close()

	sess, err := session.New(f.sessionOptions(cmd, cfg, query), host, logger)
	if err != nil {
		return failure(err)
	}

	var in session.Input
	if f.command == "" {
		if isTerminal(a.stdin) {
			return failure(&session.ConfigError{Label: "input", Err: errors.New("stdin is a terminal; pipe items in or use --cmd")})
		}
		if in, err = readInput(a.stdin, f.inputFormat); err != nil {
			return failure(&session.ConfigError{Label: "input-format", Err: err})
		}
	}

	histKey := history.KeyQuery
	if f.interactive {
		histKey = history.KeyCmd
	}
	var store *history.Store
	if cfg.History.Enabled && !f.noHistory {
		store = openHistory(ctx, cfg, paths, logger)
	}
	if store != nil {
		defer store.Close()
		recent, err := store.Recent(ctx, histKey, 0)
		if err != nil {
			sklog.LogHistoryError(logger, "recent", err)
		}
		opts.History = recent
	}

	engine := a.newEngine(opts, logger)
	report, err := sess.Run(ctx, engine, in)
	if err != nil {
		return failure(err)
	}
	if report.Outcome.Kind == outcome.Aborted {
		return &exitError{code: exitCancelled}
	}

	if store != nil && report.Started {
		if err := store.Append(ctx, histKey, engine.Query()); err != nil {
			sklog.LogHistoryError(logger, "append", err)
		}
	}

	if err := w.Write(a.stdout, report.Result); err != nil {
		return failure(err)
	}
	return nil
}

// readInput wraps r as a session input in the given format. Text and JSON
// lines stream; a JSON array is read in full.
func readInput(r io.Reader, format string) (session.Input, error) {
	switch format {
	case "", "text":
		return session.Stream(feed.FromLines(r, feed.DecodeText)), nil
	case "jsonl":
		return session.Stream(feed.FromLines(r, feed.DecodeJSONLine)), nil
	case "json":
		data, err := io.ReadAll(r)
		if err != nil {
			return session.Input{}, fmt.Errorf("read input: %w", err)
		}
		vals, err := feed.ParseJSONArray(data)
		if err != nil {
			return session.Input{}, err
		}
		return session.Values(vals), nil
	default:
		return session.Input{}, fmt.Errorf("unknown input format %q (want text, jsonl or json)", format)
	}
}

// openLogger returns the session logger. Logs go to the first of flagFile,
// the configured file, or the default log file when SK_DEBUG=1; otherwise
// they are discarded.
func openLogger(cfg *config.Config, paths *config.Paths, flagFile string) (*slog.Logger, func(), error) {
	path := flagFile
	if path == "" {
		path = cfg.Log.File
	}
	if path == "" && sklog.DebugEnabled() {
		path = paths.LogFile()
	}
	if path == "" {
		return sklog.Discard(), func() {}, nil
	}

	level, err := sklog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	file, err := sklog.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	logger := sklog.New(&sklog.Config{Output: file, Level: level, Debug: sklog.DebugEnabled()})
	return logger, func() { _ = file.Close() }, nil
}

// openHistory opens the query history. History is best effort: a failure
// is logged and the session runs without it.
func openHistory(ctx context.Context, cfg *config.Config, paths *config.Paths, logger *slog.Logger) *history.Store {
	path := cfg.History.Path
	if path == "" {
		path = paths.HistoryFile()
	}
	store, err := history.Open(path, cfg.History.MaxEntries)
	if err != nil {
		sklog.LogHistoryError(logger, "open", err)
		return nil
	}
	logger.DebugContext(ctx, "history opened", "path", path)
	return store
}

// sanitizeQuery rejects multi-line queries, strips control characters
// except tab and caps the length at maxQueryLen bytes.
func sanitizeQuery(q string) (string, error) {
	if q == "" {
		return "", nil
	}
	if strings.ContainsAny(q, "\n\r") {
		return "", fmt.Errorf("query must not contain newlines")
	}

	var b strings.Builder
	b.Grow(len(q))
	for _, r := range q {
		if r <= 0x1F && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	result := b.String()
	if len(result) > maxQueryLen {
		result = result[:maxQueryLen]
		for !utf8.ValidString(result) {
			result = result[:len(result)-1]
		}
	}
	return result, nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
