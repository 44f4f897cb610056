package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/stackscan/internal/config"
)

// runtimeFlagSet tracks shared scan flags before they are converted into config overrides.
type runtimeFlagSet struct {
	maxEvidence  int
	includeTests bool
	verbose      bool
	format       string
	output       string
	exclude      []string
	rulesFile    string
	detectors    string
	events       bool
}

func bindRuntimeFlags(cmd *cobra.Command, flags *runtimeFlagSet) {
	cmd.Flags().IntVar(&flags.maxEvidence, "max-evidence", config.DefaultMaxEvidence, "Maximum evidence items per finding (minimum 1)")
	cmd.Flags().BoolVar(&flags.includeTests, "include-tests", false, "Also scan _test.go files and test/ directories")
	cmd.Flags().BoolVar(&flags.verbose, "verbose", false, "Write debug logs to stderr")
	cmd.Flags().StringVar(&flags.format, "format", "", fmt.Sprintf("Output format (%s)", strings.Join(config.Formats, ", ")))
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().StringSliceVar(&flags.exclude, "exclude", nil, "Extra directory globs to skip (doublestar syntax, repeatable)")
	cmd.Flags().StringVar(&flags.rulesFile, "rules-file", "", "YAML file with additional detection rules")
	cmd.Flags().StringVar(&flags.detectors, "detectors", "", "Comma-separated detectors to run (stacks,deploy)")
	cmd.Flags().BoolVar(&flags.events, "events", false, "Stream NDJSON progress events to stderr")
}

func (f runtimeFlagSet) toOverrides(cmd *cobra.Command) config.Overrides {
	ov := config.Overrides{}
	if cmd.Flags().Changed("max-evidence") {
		ov.MaxEvidence = &f.maxEvidence
	}

	if cmd.Flags().Changed("include-tests") {
		ov.IncludeTests = &f.includeTests
	}

	if cmd.Flags().Changed("verbose") {
		ov.Verbose = &f.verbose
	}

	if cmd.Flags().Changed("format") {
		ov.Format = f.format
	}

	if cmd.Flags().Changed("output") {
		ov.Output = f.output
	}

	if cmd.Flags().Changed("exclude") {
		ov.Exclude = f.exclude
	}

	if cmd.Flags().Changed("rules-file") {
		ov.RulesFile = f.rulesFile
	}

	if cmd.Flags().Changed("detectors") {
		ov.Detectors = config.ParseList(f.detectors)
	}

	if cmd.Flags().Changed("events") {
		ov.Events = &f.events
	}

	return ov
}
