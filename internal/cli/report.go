package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/stackscan/internal/config"
	"github.com/example/stackscan/internal/report"
)

func newReportCmd() *cobra.Command {
	var inputPath string
	var format string
	var outputPath string
	var minConfidence float64

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Re-render a saved JSON scan report in another format",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return errors.New("--input is required")
			}

			f, err := os.Open(filepath.Clean(inputPath))
			if err != nil {
				return err
			}
			defer f.Close()

			rep, err := report.Decode(f)
			if err != nil {
				return fmt.Errorf("%s: %w", inputPath, err)
			}

			if minConfidence > 0 {
				kept := rep.Stacks[:0]
				for _, s := range rep.Stacks {
					if s.Confidence >= minConfidence {
						kept = append(kept, s)
					}
				}
				rep.Stacks = kept
			}

			buf := &bytes.Buffer{}
			if err := report.Render(buf, rep, format); err != nil {
				return err
			}
			return writeOutput(cmd, outputPath, buf.Bytes())
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Path to a JSON report written by scan")
	cmd.Flags().StringVar(&format, "format", "markdown", fmt.Sprintf("Output format (%s)", strings.Join(config.Formats, ", ")))
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the rendered report to a file instead of stdout")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "Drop stacks scoring below this confidence")
	if err := cmd.MarkFlagRequired("input"); err != nil {
		panic(err)
	}

	return cmd
}
