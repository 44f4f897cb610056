package model

import "time"

// Repo summarises the scanned repository.
type Repo struct {
	Root         string         `json:"root"`
	GoMods       []ManifestInfo `json:"go_mods"`
	MaxGoVersion string         `json:"max_go_version,omitempty"`
}

// Report is the full scan output.
type Report struct {
	ScanID      string    `json:"scan_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at,omitempty"`
	Repo        Repo      `json:"repo"`
	Stacks      []Finding `json:"stacks"`
	Notes       []string  `json:"notes"`
}

// ErrorReport is written instead of a Report when the input is unusable.
type ErrorReport struct {
	Error    string `json:"error"`
	RepoRoot string `json:"repo_root"`
}
