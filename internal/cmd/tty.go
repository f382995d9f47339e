package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/runger/sk/internal/outcome"
	"github.com/runger/sk/internal/session"
	"github.com/runger/sk/internal/tui"
)

const minTermWidth = 20

// ttyEngine opens the controlling terminal only when the session actually
// needs the chooser, so a short-circuited session works without one.
type ttyEngine struct {
	opts   tui.Options
	logger *slog.Logger
	query  string
}

func (e *ttyEngine) Run(ctx context.Context, f session.Feed) (outcome.Outcome, error) {
	if err := checkTERM(); err != nil {
		return outcome.Outcome{}, err
	}
	tty, err := openTTY()
	if err != nil {
		return outcome.Outcome{}, err
	}
	defer tty.Close()

	if err := checkTermWidth(tty); err != nil {
		return outcome.Outcome{}, err
	}

	profile := termenv.NewOutput(tty).ColorProfile()
	if monochrome(e.opts.Color) || os.Getenv("NO_COLOR") != "" {
		profile = termenv.Ascii
	}
	lipgloss.SetColorProfile(profile)

	eng := tui.NewEngine(e.opts, tty, tty, e.logger)
	o, err := eng.Run(ctx, f)
	e.query = eng.Query()
	return o, err
}

func (e *ttyEngine) Query() string { return e.query }

// checkTERM verifies that the TERM environment variable is not "dumb".
func checkTERM() error {
	if os.Getenv("TERM") == "dumb" {
		return fmt.Errorf("TERM=dumb is not supported")
	}
	return nil
}

// monochrome reports whether the colour spec selects the bw scheme.
func monochrome(spec string) bool {
	base, _, _ := strings.Cut(spec, ",")
	switch strings.TrimSpace(base) {
	case "bw", "none":
		return true
	}
	return false
}
