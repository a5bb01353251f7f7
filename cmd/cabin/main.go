// Command cabin is the CLI entry point: a thin wrapper around
// internal/cli's Cobra command tree (main only calls Execute).
package main

import (
	"os"

	"github.com/cabinpm/cabin/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
