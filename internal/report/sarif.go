package report

import (
	"io"
	"strings"

	"github.com/example/stackscan/internal/model"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"

	// ToolName is reported as the SARIF driver name.
	ToolName = "stackscan"
)

// ToolVersion is reported as the SARIF driver version. Set at build time.
var ToolVersion = "dev"

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID     string          `json:"ruleId"`
	Level      string          `json:"level"`
	Message    sarifMessage    `json:"message"`
	Locations  []sarifLocation `json:"locations,omitempty"`
	Properties sarifProperties `json:"properties"`
}

type sarifProperties struct {
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int           `json:"startLine"`
	EndLine   int           `json:"endLine"`
	Snippet   *sarifSnippet `json:"snippet,omitempty"`
}

type sarifSnippet struct {
	Text string `json:"text"`
}

// RenderSARIF writes a SARIF 2.1.0 log with one result per evidence item.
// Findings without evidence produce a single result without a location.
func RenderSARIF(w io.Writer, rep model.Report) error {
	rules := make([]sarifRule, 0, len(rep.Stacks))
	results := []sarifResult{}

	for _, f := range rep.Stacks {
		id := f.Category + "/" + f.Name
		rules = append(rules, sarifRule{
			ID:               id,
			ShortDescription: sarifMessage{Text: "Detected " + f.Name + " (" + f.Category + ")"},
		})

		props := sarifProperties{Confidence: f.Confidence, Category: f.Category}
		if len(f.Evidence) == 0 {
			results = append(results, sarifResult{
				RuleID:     id,
				Level:      "note",
				Message:    sarifMessage{Text: strings.Join(f.Reasons, "; ")},
				Properties: props,
			})
			continue
		}

		for _, e := range f.Evidence {
			start := e.LineStart
			if start <= 0 {
				start = 1
			}
			end := e.LineEnd
			if end < start {
				end = start
			}
			results = append(results, sarifResult{
				RuleID:  id,
				Level:   "note",
				Message: sarifMessage{Text: e.Why},
				Locations: []sarifLocation{{
					PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifactLocation{URI: toURI(e.File)},
						Region: sarifRegion{
							StartLine: start,
							EndLine:   end,
							Snippet:   &sarifSnippet{Text: e.Match},
						},
					},
				}},
				Properties: props,
			})
		}
	}

	log := sarifLog{
		Version: sarifVersion,
		Schema:  sarifSchema,
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: ToolName, Version: ToolVersion, Rules: rules}},
			Results: results,
		}},
	}
	return writeJSON(w, log)
}

func toURI(p string) string {
	if strings.TrimSpace(p) == "" {
		return "UNKNOWN"
	}
	return strings.ReplaceAll(p, "\\", "/")
}
