package model

// Evidence is a located citation backing a finding.
type Evidence struct {
	File      string `json:"file"`
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
	Match     string `json:"match"`
	Why       string `json:"why"`
}

// Rule describes how to recognise one stack component.
type Rule struct {
	Category      string   `json:"category" yaml:"category"`
	Name          string   `json:"name" yaml:"name"`
	ImportMarkers []string `json:"import_markers" yaml:"importMarkers"`
	CodeMarkers   []string `json:"code_markers" yaml:"codeMarkers"`
}

// Key identifies the rule within a rule set.
func (r Rule) Key() string {
	return r.Category + "/" + r.Name
}

// ManifestInfo is the parsed content of one go.mod file.
type ManifestInfo struct {
	Path      string   `json:"path"`
	Module    string   `json:"module,omitempty"`
	GoVersion string   `json:"go_version,omitempty"`
	Toolchain string   `json:"toolchain,omitempty"`
	Requires  []string `json:"requires"`
	Replaces  []string `json:"replaces"`
}

// Finding is a single detected stack component.
type Finding struct {
	Category   string     `json:"category"`
	Name       string     `json:"name"`
	Confidence float64    `json:"confidence"`
	Reasons    []string   `json:"reasons"`
	Evidence   []Evidence `json:"evidence"`
}
