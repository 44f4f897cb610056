package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/stackscan/internal/config"
	"github.com/example/stackscan/internal/model"
	"github.com/example/stackscan/internal/rules"
)

func newRulesCmd(loader *config.Loader) *cobra.Command {
	var rulesFile string
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the effective detection rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			ov := config.Overrides{}
			if cmd.Flags().Changed("rules-file") {
				ov.RulesFile = rulesFile
			}
			cfg, err := loader.Load(ov)
			if err != nil {
				return err
			}

			effective, err := rules.Effective(cfg.RulesFile)
			if err != nil {
				return err
			}

			if asYAML {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(map[string][]model.Rule{"rules": effective}); err != nil {
					return err
				}
				return enc.Close()
			}

			printRules(cmd, effective)
			return nil
		},
	}

	cmd.Flags().StringVar(&rulesFile, "rules-file", "", "YAML file with additional detection rules")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print rules in rules-file YAML format")

	return cmd
}

func printRules(cmd *cobra.Command, list []model.Rule) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-18s %-36s %s\n", "CATEGORY", "NAME", "IMPORT MARKERS")
	for _, r := range list {
		fmt.Fprintf(out, "%-18s %-36s %s\n", r.Category, r.Name, strings.Join(r.ImportMarkers, ", "))
	}
	fmt.Fprintf(out, "\n%d rules\n", len(list))
}
