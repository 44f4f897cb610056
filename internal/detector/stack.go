package detector

import (
	"context"
	"math"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/example/stackscan/internal/evidence"
	"github.com/example/stackscan/internal/gomod"
	"github.com/example/stackscan/internal/model"
)

// StacksDetectorName is the registry name of the rule-based stack detector.
const StacksDetectorName = "stacks"

const (
	baseConfidence = 0.2
	manifestWeight = 0.25
	importWeight   = 0.25
	codeWeight     = 0.35
	maxConfidence  = 0.95
)

const (
	ReasonManifest = "go.mod declares a dependency on this component"
	ReasonImport   = "Go source imports this component"
	ReasonCode     = "Go source contains a characteristic initialization or call site"

	whyManifest = "go.mod dependency declaration matches this component"
	whyImport   = "Go source references this component's import path"
)

// StackDetector evaluates the rule set against manifests, imports and code markers.
type StackDetector struct {
	rules []model.Rule
}

// NewStackDetector returns a detector for rules.
func NewStackDetector(rules []model.Rule) *StackDetector {
	return &StackDetector{rules: rules}
}

// Name implements Detector.
func (d *StackDetector) Name() string {
	return StacksDetectorName
}

// Detect implements Detector. Rules are evaluated concurrently; the result is sorted.
func (d *StackDetector) Detect(ctx context.Context, scan *Scan) ([]model.Finding, error) {
	in := ruleInputs{
		scan:          scan,
		collector:     evidence.NewCollector(scan.Corpus),
		requires:      gomod.Requires(scan.Manifests),
		manifestPaths: gomod.Paths(scan.Manifests),
	}
	// warm the import universe before fanning out
	scan.Imports()

	results := make([]*model.Finding, len(d.rules))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, rule := range d.rules {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = in.evaluate(rule)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	findings := []model.Finding{}
	for _, f := range results {
		if f == nil {
			continue
		}
		scan.Logger.Debugf("detected stack %s/%s, confidence=%.2f", f.Category, f.Name, f.Confidence)
		findings = append(findings, *f)
	}

	Sort(findings)
	return findings, nil
}

type ruleInputs struct {
	scan          *Scan
	collector     *evidence.Collector
	requires      []string
	manifestPaths []string
}

func (in ruleInputs) inManifest(marker string) bool {
	for _, req := range in.requires {
		if strings.Contains(req, marker) {
			return true
		}
	}
	return false
}

func (in ruleInputs) evaluate(rule model.Rule) *model.Finding {
	limit := in.scan.MaxEvidence
	perMarker := in.scan.perMarkerLimit()
	universe := in.scan.Imports()

	manifestHit := false
	importHit := false
	for _, m := range rule.ImportMarkers {
		manifestHit = manifestHit || in.inManifest(m)
		importHit = importHit || universe.MatchesPrefix(m)
	}

	var codeEvidence []model.Evidence
	for _, cm := range rule.CodeMarkers {
		codeEvidence = append(codeEvidence, in.collector.Find(cm, in.scan.SourceFiles, perMarker, evidence.MarkerWhy(cm))...)
		if len(codeEvidence) >= limit {
			break
		}
	}

	if !manifestHit && !importHit && len(codeEvidence) == 0 {
		return nil
	}

	var manifestEvidence []model.Evidence
	if manifestHit {
		manifestEvidence = in.manifestEvidence(rule, perMarker, limit)
	}

	var importEvidence []model.Evidence
	if importHit {
		for _, m := range rule.ImportMarkers {
			importEvidence = append(importEvidence, in.collector.Find(m, in.scan.SourceFiles, perMarker, whyImport)...)
			if len(importEvidence) >= limit {
				break
			}
		}
	}

	return &model.Finding{
		Category:   rule.Category,
		Name:       rule.Name,
		Confidence: Confidence(manifestHit, importHit, len(codeEvidence) > 0),
		Reasons:    Reasons(manifestHit, importHit, len(codeEvidence) > 0),
		Evidence:   assemble(limit, codeEvidence, manifestEvidence, importEvidence),
	}
}

// manifestEvidence cites go.mod lines containing the rule's markers. When no
// line holds a marker verbatim, it falls back to the line declaring the
// matched module path.
func (in ruleInputs) manifestEvidence(rule model.Rule, perMarker, limit int) []model.Evidence {
	var out []model.Evidence
	for _, m := range rule.ImportMarkers {
		out = append(out, in.collector.Find(m, in.manifestPaths, perMarker, whyManifest)...)
		if len(out) >= limit {
			return out
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, mod := range in.scan.Manifests {
		for _, req := range mod.Requires {
			for _, m := range rule.ImportMarkers {
				if !strings.Contains(req, m) {
					continue
				}
				coordinate, _, _ := strings.Cut(req, "@")
				if hits := in.collector.Find(coordinate, []string{mod.Path}, 1, whyManifest); len(hits) > 0 {
					return hits
				}
			}
		}
	}
	return nil
}

// assemble concatenates evidence groups in priority order, capped at limit.
func assemble(limit int, groups ...[]model.Evidence) []model.Evidence {
	out := []model.Evidence{}
	for _, group := range groups {
		for _, e := range group {
			if len(out) >= limit {
				return out
			}
			out = append(out, e)
		}
	}
	return out
}

// Confidence scores a finding from the signals that matched. The result is
// clamped to [0, 0.95] and rounded to two decimals.
func Confidence(manifest, imported, code bool) float64 {
	c := baseConfidence
	if manifest {
		c += manifestWeight
	}
	if imported {
		c += importWeight
	}
	if code {
		c += codeWeight
	}
	c = math.Min(maxConfidence, math.Max(0, c))
	return math.Round(c*100) / 100
}

// Reasons lists the matched signals in manifest, import, code order.
func Reasons(manifest, imported, code bool) []string {
	reasons := []string{}
	if manifest {
		reasons = append(reasons, ReasonManifest)
	}
	if imported {
		reasons = append(reasons, ReasonImport)
	}
	if code {
		reasons = append(reasons, ReasonCode)
	}
	return reasons
}
