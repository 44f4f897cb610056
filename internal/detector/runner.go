package detector

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/example/stackscan/internal/model"
)

var tracer = otel.Tracer("github.com/example/stackscan/internal/detector")

// Registry maps detector names to constructors.
type Registry map[string]Factory

// Factory builds a detector instance.
type Factory func() Detector

// DefaultDetectors lists the detectors run when none are configured.
var DefaultDetectors = []string{StacksDetectorName, DeployDetectorName}

// NewRegistry returns the built-in detectors, with the stack detector using rules.
func NewRegistry(rules []model.Rule) Registry {
	return Registry{
		StacksDetectorName: func() Detector { return NewStackDetector(rules) },
		DeployDetectorName: func() Detector { return NewDeployDetector() },
	}
}

// BuildDetectors instantiates detectors from the provided names.
func (r Registry) BuildDetectors(names []string) ([]Detector, error) {
	if len(names) == 0 {
		return nil, nil
	}

	var detectors []Detector
	seen := map[string]struct{}{}
	for _, name := range names {
		factory, ok := r[name]
		if !ok {
			return nil, fmt.Errorf("unknown detector: %s", name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		detectors = append(detectors, factory())
	}
	return detectors, nil
}

// Run executes detectors sequentially and returns their findings in report order.
// A failing detector is logged and skipped; cancellation stops the run.
func Run(ctx context.Context, detectors []Detector, scan *Scan) ([]model.Finding, error) {
	findings := []model.Finding{}
	for _, detector := range detectors {
		select {
		case <-ctx.Done():
			return findings, ctx.Err()
		default:
		}

		spanCtx, span := tracer.Start(ctx, "detector."+detector.Name())
		found, err := detector.Detect(spanCtx, scan)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			if ctx.Err() != nil {
				return findings, ctx.Err()
			}
			scan.Logger.Warnw("detector failed", "detector", detector.Name(), "error", err)
			continue
		}
		span.SetAttributes(attribute.Int("findings", len(found)))
		span.End()

		findings = append(findings, found...)
		if scan.OnDetectorDone != nil {
			scan.OnDetectorDone(detector.Name(), len(found))
		}
	}

	Sort(findings)
	return findings, nil
}

// Sort orders findings by descending confidence, then category, then name.
func Sort(findings []model.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		fi, fj := findings[i], findings[j]
		if fi.Confidence != fj.Confidence {
			return fi.Confidence > fj.Confidence
		}
		if fi.Category != fj.Category {
			return fi.Category < fj.Category
		}
		return fi.Name < fj.Name
	})
}
