package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/example/stackscan/internal/config"
)

var starterConfig = heredoc.Doc(`
	# stackscan configuration. Every key is optional; STACKSCAN_* environment
	# variables and command-line flags take precedence over these values.
	# ${VAR} references are expanded from the environment and the .env file.

	# Maximum evidence items per finding (minimum 1).
	maxEvidence: 3

	# Scan _test.go files and test/ or tests/ directories too.
	includeTests: false

	# Debug logs on stderr.
	verbose: false

	# Report format: json, markdown, table or sarif.
	format: json

	# Write the report to a file instead of stdout.
	# output: stackscan-report.json

	# Extra directories to skip, as doublestar globs relative to the repository root.
	exclude:
	  - "**/testdata"

	# Additional detection rules.
	# rulesFile: stackscan.rules.yml

	# Detectors to run.
	detectors:
	  - stacks
	  - deploy

	# Stream NDJSON progress events to stderr.
	events: false
`)

func newInitCmd(loader *config.Loader) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter stackscan.config.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := loader.ConfigPath
			if path == "" {
				path = config.DefaultConfigPath
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
				return err
			}

			cfg, err := config.Loader{ConfigPath: path, EnvFile: loader.EnvFile}.Load(config.Overrides{})
			if err != nil {
				return fmt.Errorf("starter config does not load: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")

	return cmd
}
