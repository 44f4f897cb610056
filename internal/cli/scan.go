package cli

import (
	"bytes"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/stackscan/internal/config"
	"github.com/example/stackscan/internal/detector"
	"github.com/example/stackscan/internal/events"
	"github.com/example/stackscan/internal/logging"
	"github.com/example/stackscan/internal/report"
	"github.com/example/stackscan/internal/rules"
	"github.com/example/stackscan/internal/walker"
)

var tracer = otel.Tracer("github.com/example/stackscan/internal/cli")

// scanClock stamps reports and events; tests swap in a mock.
var scanClock clock.Clock = clock.New()

func newScanCmd(loader *config.Loader) *cobra.Command {
	flags := &runtimeFlagSet{}

	cmd := &cobra.Command{
		Use:   "scan [repo_root]",
		Short: "Scan a Go repository and report its technology stack",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := flags.toOverrides(cmd)
			cfg, err := loader.Load(overrides)
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runScan(cmd, cfg, root)
		},
	}

	bindRuntimeFlags(cmd, flags)

	return cmd
}

func runScan(cmd *cobra.Command, cfg config.RuntimeConfig, root string) error {
	log := logging.New(cfg.Verbose, cmd.ErrOrStderr())
	defer func() { _ = log.Sync() }()

	abs, fsys, err := walker.OpenRoot(root)
	if err != nil {
		if werr := report.WriteError(cmd.OutOrStdout(), abs); werr != nil {
			return werr
		}
		return &ExitError{Code: ExitInvalidRoot, Err: err}
	}

	ruleSet, err := rules.Effective(cfg.RulesFile)
	if err != nil {
		return err
	}

	detectors, err := detector.NewRegistry(ruleSet).BuildDetectors(cfg.Detectors)
	if err != nil {
		return err
	}

	w, err := walker.New(fsys, cfg.Exclude)
	if err != nil {
		return err
	}

	assembler := report.NewAssembler(scanClock)
	scanID := assembler.NewScanID()

	var emitter *events.Emitter
	if cfg.Events {
		emitter = events.NewEmitter(cmd.ErrOrStderr(), events.WithClock(scanClock), events.WithScanID(scanID))
	}
	emit := func(evt events.Event) {
		if err := emitter.Emit(evt); err != nil {
			log.Warnw("failed to emit event", "type", evt.Type, "error", err)
		}
	}

	ctx, span := tracer.Start(cmd.Context(), "scan", trace.WithAttributes(
		attribute.String("repo.root", abs),
		attribute.String("scan.id", scanID),
	))
	defer span.End()

	emit(events.Event{Type: events.TypeScanStarted, Message: "Starting scan", Fields: map[string]interface{}{
		"root":      abs,
		"detectors": cfg.Detectors,
	}})

	_, walkSpan := tracer.Start(ctx, "walk")
	scan := detector.NewScan(w, detector.Options{
		MaxEvidence:  cfg.MaxEvidence,
		IncludeTests: cfg.IncludeTests,
		Logger:       log,
		OnDetectorDone: func(name string, findings int) {
			if err := emitter.DetectorDone(name, findings); err != nil {
				log.Warnw("failed to emit event", "type", events.TypeDetectorDone, "error", err)
			}
		},
	})
	walkSpan.SetAttributes(
		attribute.Int("manifests", len(scan.Manifests)),
		attribute.Int("sources", len(scan.SourceFiles)),
	)
	walkSpan.End()

	log.Debugf("found %d go.mod files", len(scan.Manifests))
	emit(events.Event{Type: events.TypeManifestsParsed, Fields: map[string]interface{}{
		"manifests": len(scan.Manifests),
		"sources":   len(scan.SourceFiles),
	}})

	findings, err := detector.Run(ctx, detectors, scan)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		emit(events.Event{Type: events.TypeScanFailed, Message: err.Error()})
		return fmt.Errorf("scan %s: %w", abs, err)
	}

	rep := assembler.Assemble(scanID, abs, scan.Manifests, findings)

	buf := &bytes.Buffer{}
	if err := report.Render(buf, rep, cfg.Format); err != nil {
		return err
	}
	if err := writeOutput(cmd, cfg.Output, buf.Bytes()); err != nil {
		return err
	}

	emit(events.Event{Type: events.TypeScanFinished, Message: "Scan complete", Fields: map[string]interface{}{
		"stacks": len(findings),
		"output": cfg.Output,
	}})
	return nil
}
