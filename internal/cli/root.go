// Package cli contains all commands of the intellab-perf CLI
package cli

import (
	"errors"

	"intellab-testing/internal/domain"

	"github.com/spf13/cobra"
)

// ExitThresholdsCrossed is the exit code for a run that finished but
// failed at least one threshold, so CI can tell it apart from a crash.
const ExitThresholdsCrossed = 99

var (
	scenarioFile string
	envFile      string
	noColor      bool
	version      = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "intellab-perf",
	Short: "Load tests for the Intellab API",
	Long: `intellab-perf drives staged load against the Intellab API.

Every virtual user shares one authenticated session: the first iteration
logs in, later iterations reuse the cached token.

Example usage:
  intellab-perf run                              # Built-in submit scenario
  intellab-perf run -s scenarios/submit.yaml     # Scenario from a file
  intellab-perf login                            # Check the tester credentials`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrThresholdsCrossed):
		return ExitThresholdsCrossed
	default:
		return 1
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&scenarioFile, "scenario", "s", "", "scenario file (default is the built-in submit scenario)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with API_URL and tester credentials (default ./.env if present)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}
