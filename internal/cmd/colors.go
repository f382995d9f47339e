package cmd

import (
	"os"
	"runtime"

	"github.com/mattn/go-isatty"
)

// ANSI codes for the config listing. Disabled when stdout is not a colour
// terminal.
var (
	colorCyan  = "\033[0;36m"
	colorDim   = "\033[2m"
	colorBold  = "\033[1m"
	colorReset = "\033[0m"
)

func init() {
	if shouldDisableColors() {
		colorCyan = ""
		colorDim = ""
		colorBold = ""
		colorReset = ""
	}
}

func shouldDisableColors() bool {
	// https://no-color.org/
	if os.Getenv("NO_COLOR") != "" {
		return true
	}
	if os.Getenv("TERM") == "dumb" {
		return true
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return true
	}

	if runtime.GOOS == "windows" {
		if os.Getenv("WT_SESSION") != "" || os.Getenv("TERM_PROGRAM") != "" {
			return false
		}
		// Older consoles only render ANSI through a helper.
		return os.Getenv("ANSICON") == "" && os.Getenv("ConEmuANSI") != "ON"
	}
	return false
}
