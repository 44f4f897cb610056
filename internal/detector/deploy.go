package detector

import (
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/stackscan/internal/evidence"
	"github.com/example/stackscan/internal/model"
)

// DeployDetectorName is the registry name of the deployment-artifact detector.
const DeployDetectorName = "deploy"

const deployCategory = "deploy_runtime"

var composeNames = map[string]struct{}{
	"docker-compose.yml":  {},
	"docker-compose.yaml": {},
	"compose.yml":         {},
	"compose.yaml":        {},
}

var deployDirs = []string{"/k8s/", "/kubernetes/", "/manifests/", "/deploy/", "/deployment/", "/helm/", "/charts/"}

// deployFiles groups deployment-related files by kind, each list sorted.
type deployFiles struct {
	dockerfiles  []string
	composeFiles []string
	charts       []string
	k8sManifests []string
}

// DeployDetector recognises container and orchestration artifacts.
type DeployDetector struct{}

// NewDeployDetector returns a deployment-artifact detector.
func NewDeployDetector() *DeployDetector {
	return &DeployDetector{}
}

// Name implements Detector.
func (d *DeployDetector) Name() string {
	return DeployDetectorName
}

// Detect implements Detector.
func (d *DeployDetector) Detect(ctx context.Context, scan *Scan) ([]model.Finding, error) {
	files := d.collect(scan)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collector := evidence.NewCollector(scan.Corpus)
	limit := scan.MaxEvidence
	perMarker := scan.perMarkerLimit()

	findings := []model.Finding{}

	if len(files.dockerfiles) > 0 {
		ev := findEach(collector, []string{"FROM ", "EXPOSE", "CMD", "ENTRYPOINT", "COPY --from="},
			files.dockerfiles, perMarker, limit, "Dockerfile declares image build or runtime instructions")

		confidence := 0.8
		for _, f := range files.dockerfiles {
			if strings.Contains(scan.Corpus.Text(f), "COPY --from=") {
				confidence = 0.9
				break
			}
		}

		findings = append(findings, model.Finding{
			Category:   deployCategory,
			Name:       "docker",
			Confidence: confidence,
			Reasons:    []string{"repository contains a Dockerfile (container image build and run configuration)"},
			Evidence:   assemble(limit, ev),
		})
	}

	if len(files.composeFiles) > 0 {
		ev := collector.Find("services:", files.composeFiles, limit, "Compose file defines services")
		findings = append(findings, model.Finding{
			Category:   deployCategory,
			Name:       "docker-compose",
			Confidence: 0.85,
			Reasons:    []string{"repository contains a docker-compose/compose file"},
			Evidence:   assemble(limit, ev),
		})
	}

	if len(files.charts) > 0 {
		ev := collector.Find("name:", files.charts, limit, "Helm Chart.yaml declares the chart name")
		findings = append(findings, model.Finding{
			Category:   deployCategory,
			Name:       "helm",
			Confidence: 0.8,
			Reasons:    []string{"repository contains a Helm Chart.yaml"},
			Evidence:   assemble(limit, ev),
		})
	}

	if len(files.k8sManifests) > 0 {
		ev := findEach(collector, []string{"apiVersion:", "kind:", "metadata:"},
			files.k8sManifests, perMarker, limit, "Kubernetes manifest contains a required key")
		findings = append(findings, model.Finding{
			Category:   deployCategory,
			Name:       "kubernetes",
			Confidence: 0.8,
			Reasons:    []string{"repository contains Kubernetes manifests (yaml/yml)"},
			Evidence:   assemble(limit, ev),
		})
	}

	return findings, nil
}

func findEach(c *evidence.Collector, markers, files []string, perMarker, limit int, why string) []model.Evidence {
	var out []model.Evidence
	for _, m := range markers {
		out = append(out, c.Find(m, files, perMarker, why)...)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func (d *DeployDetector) collect(scan *Scan) deployFiles {
	var files deployFiles

	for p := range scan.Walker.Files() {
		name := path.Base(p)
		lower := strings.ToLower(name)

		switch {
		case strings.HasPrefix(lower, "dockerfile"):
			files.dockerfiles = append(files.dockerfiles, p)
		case isCompose(name):
			files.composeFiles = append(files.composeFiles, p)
		case name == "Chart.yaml":
			files.charts = append(files.charts, p)
		case strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml"):
			if IsKubernetesManifest(p, scan.Corpus.Text(p)) {
				files.k8sManifests = append(files.k8sManifests, p)
			}
		}
	}

	sort.Strings(files.dockerfiles)
	sort.Strings(files.composeFiles)
	sort.Strings(files.charts)
	sort.Strings(files.k8sManifests)
	return files
}

func isCompose(name string) bool {
	_, ok := composeNames[name]
	return ok
}

// IsKubernetesManifest reports whether the YAML file at p looks like a
// Kubernetes object. Under a deployment directory apiVersion and kind are
// enough; elsewhere metadata is required too.
func IsKubernetesManifest(p, text string) bool {
	required := []string{"apiVersion", "kind", "metadata"}
	if inDeployDir(p) {
		required = required[:2]
	}

	keys, ok := topLevelKeys(text)
	if !ok {
		// templated YAML (e.g. Helm) does not decode; fall back to plain text
		for _, key := range required {
			if !strings.Contains(text, key+":") {
				return false
			}
		}
		return true
	}

	for _, doc := range keys {
		if hasAll(doc, required) {
			return true
		}
	}
	return false
}

func inDeployDir(p string) bool {
	lower := "/" + strings.ToLower(p)
	for _, seg := range deployDirs {
		if strings.Contains(lower, seg) {
			return true
		}
	}
	return false
}

// topLevelKeys returns the mapping keys of each YAML document in text.
func topLevelKeys(text string) ([]map[string]struct{}, bool) {
	dec := yaml.NewDecoder(strings.NewReader(text))
	var docs []map[string]struct{}
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			return docs, true
		}
		if err != nil {
			return nil, false
		}
		if len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
			continue
		}

		keys := map[string]struct{}{}
		mapping := node.Content[0]
		for i := 0; i+1 < len(mapping.Content); i += 2 {
			keys[mapping.Content[i].Value] = struct{}{}
		}
		docs = append(docs, keys)
	}
}

func hasAll(keys map[string]struct{}, required []string) bool {
	for _, k := range required {
		if _, ok := keys[k]; !ok {
			return false
		}
	}
	return true
}
