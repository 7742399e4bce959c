// Package main is the entry point for the intellab-perf CLI
package main

import (
	"errors"
	"os"

	"intellab-testing/internal/cli"
	"intellab-testing/internal/domain"
)

// Set at build time via ldflags
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version)
	cli.SetBuildInfo(commit, buildTime)

	err := cli.Execute()
	// A crossed threshold is already reported in the summary.
	if err != nil && !errors.Is(err, domain.ErrThresholdsCrossed) {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
	}
	os.Exit(cli.ExitCode(err))
}
