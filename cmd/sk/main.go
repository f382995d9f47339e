// Package main is the entry point for the sk fuzzy selector.
package main

import (
	"os"

	"github.com/runger/sk/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
