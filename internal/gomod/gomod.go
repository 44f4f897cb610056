// Package gomod extracts module identity and declared dependencies from go.mod files.
//
// The parser is a line-oriented state machine rather than a grammar: it
// never fails, and malformed lines degrade to best-effort tokens.
package gomod

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/example/stackscan/internal/model"
	"github.com/example/stackscan/internal/walker"
)

// ManifestName is the file name collected by Collect.
const ManifestName = "go.mod"

var (
	moduleRegex    = regexp.MustCompile(`(?m)^\s*module\s+(\S+)\s*$`)
	goVersionRegex = regexp.MustCompile(`(?m)^\s*go\s+(\S+)\s*$`)
	toolchainRegex = regexp.MustCompile(`(?m)^\s*toolchain\s+(\S+)\s*$`)
)

// Manifest holds the fields parsed out of one go.mod document.
type Manifest struct {
	Module    string
	GoVersion string
	Toolchain string
	Requires  []string
	Replaces  []string
}

// Parse reads a go.mod document. Requires are rendered as "path@version"
// in file order, duplicates included.
func Parse(content string) Manifest {
	m := Manifest{
		Module:    firstMatch(moduleRegex, content),
		GoVersion: firstMatch(goVersionRegex, content),
		Toolchain: firstMatch(toolchainRegex, content),
		Requires:  []string{},
		Replaces:  []string{},
	}

	inRequire := false
	inReplace := false

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if i := strings.Index(line, "//"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}

		switch {
		case line == ")":
			inRequire = false
			inReplace = false
		case strings.HasPrefix(line, "require ("):
			inRequire = true
		case strings.HasPrefix(line, "replace ("):
			inReplace = true
		case inRequire:
			m.Requires = append(m.Requires, requirement(line))
		case inReplace:
			m.Replaces = append(m.Replaces, line)
		case strings.HasPrefix(line, "require "):
			m.Requires = append(m.Requires, requirement(strings.TrimSpace(line[len("require "):])))
		case strings.HasPrefix(line, "replace "):
			m.Replaces = append(m.Replaces, strings.TrimSpace(line[len("replace "):]))
		}
	}

	return m
}

// requirement joins the first two tokens as path@version, or keeps the raw
// tokens when the line is short.
func requirement(line string) string {
	parts := strings.Fields(line)
	if len(parts) >= 2 {
		return parts[0] + "@" + parts[1]
	}
	return strings.Join(parts, " ")
}

func firstMatch(re *regexp.Regexp, content string) string {
	m := re.FindStringSubmatch(content)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// Collect parses every go.mod reachable through w, sorted by path.
func Collect(w *walker.Walker) []model.ManifestInfo {
	mods := []model.ManifestInfo{}
	for p := range w.FilesWithSuffix(ManifestName) {
		parsed := Parse(walker.ReadText(w.FS(), p))
		mods = append(mods, model.ManifestInfo{
			Path:      p,
			Module:    parsed.Module,
			GoVersion: parsed.GoVersion,
			Toolchain: parsed.Toolchain,
			Requires:  parsed.Requires,
			Replaces:  parsed.Replaces,
		})
	}

	sort.Slice(mods, func(i, j int) bool {
		return mods[i].Path < mods[j].Path
	})
	return mods
}

// MaxGoVersion returns the highest go directive across mods, as written.
// Directives that are not valid versions are ignored.
func MaxGoVersion(mods []model.ManifestInfo) string {
	var (
		best    *semver.Version
		bestRaw string
	)

	for _, m := range mods {
		if m.GoVersion == "" {
			continue
		}
		v, err := semver.NewVersion(m.GoVersion)
		if err != nil {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestRaw = m.GoVersion
		}
	}

	return bestRaw
}

// Requires flattens the requires of all manifests, preserving order.
func Requires(mods []model.ManifestInfo) []string {
	var out []string
	for _, m := range mods {
		out = append(out, m.Requires...)
	}
	return out
}

// Paths lists the manifest paths.
func Paths(mods []model.ManifestInfo) []string {
	out := make([]string, 0, len(mods))
	for _, m := range mods {
		out = append(out, m.Path)
	}
	return out
}
