package cli

import (
	"context"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/example/stackscan/internal/config"
	"github.com/example/stackscan/internal/report"
)

var version = "dev"

// Execute builds the root command tree and runs the CLI.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	loader := &config.Loader{ConfigPath: config.DefaultConfigPath}
	rootOpts := &rootOptions{}
	report.ToolVersion = version

	rootCmd := &cobra.Command{
		Use:   "stackscan",
		Short: "Heuristic technology-stack discovery for Go repositories",
		Long: heredoc.Doc(`
			stackscan walks a Go repository, reads its go.mod files, import
			declarations and characteristic call sites, and reports which
			frameworks, databases, messaging systems and deployment tooling it
			appears to use. Every finding carries a confidence score and
			file/line evidence.
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	rootCmd.SetVersionTemplate("stackscan version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&rootOpts.ConfigPath, "config", config.DefaultConfigPath, "Path to stackscan.config.yml (optional)")
	rootCmd.PersistentFlags().StringVar(&rootOpts.EnvFile, "env-file", config.DefaultEnvFile, "Path to a .env file feeding STACKSCAN_* settings (optional)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if rootOpts.ConfigPath != "" {
			loader.ConfigPath = rootOpts.ConfigPath
		}
		loader.EnvFile = rootOpts.EnvFile
	}

	rootCmd.AddCommand(
		newInitCmd(loader),
		newScanCmd(loader),
		newReportCmd(),
		newRulesCmd(loader),
		newDoctorCmd(loader),
	)

	return rootCmd
}

type rootOptions struct {
	ConfigPath string
	EnvFile    string
}
