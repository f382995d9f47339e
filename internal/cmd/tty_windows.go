//go:build windows

package cmd

import (
	"fmt"
	"os"
)

// openTTY opens the console for reading keys and drawing.
func openTTY() (*os.File, error) {
	f, err := os.OpenFile("CONOUT$", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("no console available: %w", err)
	}
	return f, nil
}

// checkTermWidth is a no-op on Windows; the console reports its size to
// the chooser directly.
func checkTermWidth(*os.File) error {
	return nil
}
