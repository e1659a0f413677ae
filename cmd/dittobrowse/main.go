package main

import (
	"os"

	"github.com/marmos91/dittobrowse/internal/cli"
)

// Set via -ldflags at release time.
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cli.Version = version
	cli.BuildTime = buildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
