// Package imports pulls import paths out of Go source without parsing it.
package imports

import (
	"regexp"
	"strings"
)

var (
	singleImportRegex = regexp.MustCompile(`(?m)^\s*import\s+(?:[\w.]+\s+)?"([^"]+)"\s*$`)
	importBlockRegex  = regexp.MustCompile(`(?s)\bimport\s*\((.*?)\)(?:\s|$)`)
	blockLineRegex    = regexp.MustCompile(`(?m)^\s*(?:[\w.]+\s+)?"([^"]+)"\s*$`)
)

// Set is a collection of import paths.
type Set map[string]struct{}

// Extract returns the import paths declared in source, from both single-line
// declarations and grouped blocks. Lines that do not look like imports are skipped.
func Extract(source string) Set {
	set := Set{}
	for _, m := range singleImportRegex.FindAllStringSubmatch(source, -1) {
		set[m[1]] = struct{}{}
	}

	for _, block := range importBlockRegex.FindAllStringSubmatch(source, -1) {
		for _, m := range blockLineRegex.FindAllStringSubmatch(block[1], -1) {
			set[m[1]] = struct{}{}
		}
	}

	return set
}

// Merge adds every path of other to s.
func (s Set) Merge(other Set) {
	for p := range other {
		s[p] = struct{}{}
	}
}

// MatchesPrefix reports whether any path equals marker or lives below it.
func (s Set) MatchesPrefix(marker string) bool {
	if _, ok := s[marker]; ok {
		return true
	}

	prefix := marker + "/"
	for p := range s {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}
