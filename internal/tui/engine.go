package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	sklog "github.com/runger/sk/internal/log"
	"github.com/runger/sk/internal/outcome"
	"github.com/runger/sk/internal/session"
)

// Engine runs the chooser as a Bubble Tea program on a terminal.
type Engine struct {
	opts   Options
	input  io.Reader
	output io.Writer
	logger *slog.Logger

	query string
}

var _ session.Engine = (*Engine)(nil)

// NewEngine creates an engine reading keys from input and drawing to
// output, normally both /dev/tty.
func NewEngine(opts Options, input io.Reader, output io.Writer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = sklog.Discard()
	}
	return &Engine{opts: opts, input: input, output: output, logger: logger}
}

// Run shows the chooser over f until the user accepts or aborts, or ctx
// is cancelled.
func (e *Engine) Run(ctx context.Context, f session.Feed) (outcome.Outcome, error) {
	model, err := NewModel(ctx, e.opts, f)
	if err != nil {
		return outcome.Outcome{}, fmt.Errorf("theme: %w", err)
	}

	progOpts := []tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithInput(e.input),
		tea.WithOutput(e.output),
	}
	if e.opts.fullscreen() {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	if !e.opts.NoMouse {
		progOpts = append(progOpts, tea.WithMouseCellMotion())
	}

	final, err := tea.NewProgram(model, progOpts...).Run()
	o, err := e.finish(ctx, final, err)
	if err != nil {
		return outcome.Outcome{}, err
	}
	e.logger.Debug("chooser closed",
		"outcome", o.Kind.String(),
		"query_len", len(e.query),
	)
	return o, nil
}

// finish turns the program's final state into an outcome. A program
// interrupted by a signal, or killed because ctx was cancelled, counts as
// an abort.
func (e *Engine) finish(ctx context.Context, final tea.Model, err error) (outcome.Outcome, error) {
	fm, ok := final.(Model)
	if ok {
		e.query = fm.Query()
	}
	if err != nil {
		if errors.Is(err, tea.ErrInterrupted) || (errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
			return outcome.Abort(), nil
		}
		return outcome.Outcome{}, err
	}
	if !ok {
		return outcome.Outcome{}, fmt.Errorf("unexpected model type %T", final)
	}
	return fm.Outcome(), nil
}

// Query is the query text when the last run ended.
func (e *Engine) Query() string { return e.query }
