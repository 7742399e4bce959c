package cli

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	"intellab-testing/config"
	"intellab-testing/internal/output"

	"github.com/spf13/cobra"
)

const vegetaModule = "github.com/tsenart/vegeta/v12"

var (
	commit    = "unknown"
	buildTime = "unknown"
)

// SetBuildInfo sets the commit hash and build time
func SetBuildInfo(c, bt string) {
	commit = c
	buildTime = bt
}

// buildInfo describes this binary and the load it generates by default.
type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Built     string `json:"built"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
	Vegeta    string `json:"vegeta"`
	Scenario  string `json:"defaultScenario"`
}

func currentBuildInfo() buildInfo {
	sc := config.DefaultScenario()
	var total int
	peak := 0
	for _, st := range sc.Stages {
		total += int(st.Duration.Seconds())
		peak = max(peak, st.Target)
	}

	return buildInfo{
		Version:   version,
		Commit:    commit,
		Built:     buildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Vegeta:    moduleVersion(vegetaModule),
		Scenario:  fmt.Sprintf("%s (%d stages, %ds, up to %d VUs)", sc.Name, len(sc.Stages), total, peak),
	}
}

// moduleVersion reports the linked version of a dependency. Test binaries
// and builds without module info report "unknown".
func moduleVersion(path string) string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, dep := range bi.Deps {
		if dep.Path != path {
			continue
		}
		if dep.Replace != nil {
			return dep.Replace.Version
		}
		return dep.Version
	}
	return "unknown"
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, the load generator it links and the default scenario.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		short, _ := cmd.Flags().GetBool("short")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		info := currentBuildInfo()

		switch {
		case short:
			fmt.Fprintln(cmd.OutOrStdout(), info.Version)
			return nil
		case jsonOutput:
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}

		p := output.NewPrinterWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr(), !noColor && output.ResolveColors(output.ColorAuto))
		p.Print("intellab-perf %s", p.Bold(info.Version))
		table := p.NewTable([]string{"Component", "Value"})
		table.AddRow("commit", info.Commit)
		table.AddRow("built", info.Built)
		table.AddRow("go", info.GoVersion)
		table.AddRow("platform", info.Platform)
		table.AddRow("vegeta", info.Vegeta)
		table.AddRow("default scenario", info.Scenario)
		return table.Render()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().Bool("short", false, "print version string only")
	versionCmd.Flags().Bool("json", false, "output as JSON")
}
