//go:build !windows

package cmd

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// openTTY opens the controlling terminal for reading keys and drawing.
func openTTY() (*os.File, error) {
	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("no TTY available: %w", err)
	}
	return f, nil
}

// checkTermWidth verifies that the terminal is at least minTermWidth
// columns wide.
func checkTermWidth(f *os.File) error {
	ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return fmt.Errorf("cannot get terminal size: %w", err)
	}
	if ws.Col < minTermWidth {
		return fmt.Errorf("terminal too narrow (%d columns, need at least %d)", ws.Col, minTermWidth)
	}
	return nil
}
