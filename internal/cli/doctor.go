package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/stackscan/internal/config"
	"github.com/example/stackscan/internal/detector"
	"github.com/example/stackscan/internal/gomod"
	"github.com/example/stackscan/internal/model"
	"github.com/example/stackscan/internal/rules"
	"github.com/example/stackscan/internal/walker"
)

const (
	statusOK      = "✓"
	statusFailed  = "✗"
	statusSkipped = "⊘"
)

type doctorCheck struct {
	Name   string
	Status string
	Detail string
	Error  error
}

func newDoctorCmd(loader *config.Loader) *cobra.Command {
	flags := &runtimeFlagSet{}

	cmd := &cobra.Command{
		Use:   "doctor [repo_root]",
		Short: "Validate configuration, rules and the repository root before scanning",
		Long: `The doctor subcommand checks everything a scan depends on:
- Go runtime version
- merged configuration (file, environment, flags)
- the effective rule set, including any rules file
- the selected detectors
- the repository root and its go.mod
- the report output location`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := flags.toOverrides(cmd)
			cfg, err := loader.Load(overrides)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			checks := runDoctorChecks(&cfg, root)
			printDoctorReport(cmd, checks)

			for _, check := range checks {
				if check.Error != nil {
					return errors.New("doctor checks failed")
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "\n"+statusOK+" All checks passed. Ready to scan.")
			return nil
		},
	}

	bindRuntimeFlags(cmd, flags)

	return cmd
}

func runDoctorChecks(cfg *config.RuntimeConfig, root string) []doctorCheck {
	checks := []doctorCheck{
		checkGoVersion(),
		checkConfiguration(cfg),
	}

	rulesCheck, ruleSet := checkRules(cfg.RulesFile)
	checks = append(checks, rulesCheck)
	if rulesCheck.Error == nil {
		checks = append(checks, checkDetectors(ruleSet, cfg.Detectors))
	}

	checks = append(checks, checkRepositoryRoot(root, cfg.Exclude))
	checks = append(checks, checkOutput(cfg.Output))

	return checks
}

func checkGoVersion() doctorCheck {
	return doctorCheck{
		Name:   "Go Runtime",
		Status: statusOK,
		Detail: fmt.Sprintf("Version %s", runtime.Version()),
	}
}

func checkConfiguration(cfg *config.RuntimeConfig) doctorCheck {
	if err := cfg.Validate(); err != nil {
		return doctorCheck{
			Name:   "Configuration",
			Status: statusFailed,
			Detail: "Invalid configuration",
			Error:  err,
		}
	}

	return doctorCheck{
		Name:   "Configuration",
		Status: statusOK,
		Detail: fmt.Sprintf("format=%s, max evidence=%d", cfg.Format, cfg.MaxEvidence),
	}
}

func checkRules(rulesFile string) (doctorCheck, []model.Rule) {
	set, err := rules.Effective(rulesFile)
	if err != nil {
		return doctorCheck{
			Name:   "Rules",
			Status: statusFailed,
			Detail: "Rule set could not be loaded",
			Error:  err,
		}, nil
	}

	detail := fmt.Sprintf("%d rules", len(set))
	if rulesFile != "" {
		detail += fmt.Sprintf(" (including %s)", rulesFile)
	}
	return doctorCheck{Name: "Rules", Status: statusOK, Detail: detail}, set
}

func checkDetectors(ruleSet []model.Rule, names []string) doctorCheck {
	dets, err := detector.NewRegistry(ruleSet).BuildDetectors(names)
	if err != nil {
		return doctorCheck{
			Name:   "Detectors",
			Status: statusFailed,
			Detail: strings.Join(names, ", "),
			Error:  err,
		}
	}

	enabled := make([]string, 0, len(dets))
	for _, d := range dets {
		enabled = append(enabled, d.Name())
	}
	return doctorCheck{Name: "Detectors", Status: statusOK, Detail: strings.Join(enabled, ", ")}
}

func checkRepositoryRoot(root string, excludes []string) doctorCheck {
	abs, fsys, err := walker.OpenRoot(root)
	if err != nil {
		return doctorCheck{
			Name:   "Repository Root",
			Status: statusFailed,
			Detail: abs,
			Error:  err,
		}
	}

	w, err := walker.New(fsys, excludes)
	if err != nil {
		return doctorCheck{
			Name:   "Repository Root",
			Status: statusFailed,
			Detail: "Invalid exclude pattern",
			Error:  err,
		}
	}

	mods := gomod.Collect(w)
	if len(mods) == 0 {
		return doctorCheck{
			Name:   "Repository Root",
			Status: statusSkipped,
			Detail: abs + " (no go.mod found; only source markers will match)",
		}
	}

	return doctorCheck{
		Name:   "Repository Root",
		Status: statusOK,
		Detail: fmt.Sprintf("%s (%d go.mod)", abs, len(mods)),
	}
}

func checkOutput(output string) doctorCheck {
	if output == "" {
		return doctorCheck{Name: "Output", Status: statusSkipped, Detail: "stdout"}
	}

	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return doctorCheck{
			Name:   "Output",
			Status: statusFailed,
			Detail: output,
			Error:  err,
		}
	}

	return doctorCheck{Name: "Output", Status: statusOK, Detail: output}
}

func printDoctorReport(cmd *cobra.Command, checks []doctorCheck) {
	fmt.Fprintln(cmd.OutOrStdout(), "Running environment diagnostics...")

	for _, check := range checks {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %-20s %s\n", statusColor(check.Status).Sprint(check.Status), check.Name+":", check.Detail)
		if check.Error != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "   Error: %v\n", check.Error)
		}
	}
}

func statusColor(status string) *color.Color {
	switch status {
	case statusOK:
		return color.New(color.FgGreen)
	case statusFailed:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}
