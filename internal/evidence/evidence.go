// Package evidence locates marker occurrences and turns them into citations.
package evidence

import (
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/example/stackscan/internal/model"
	"github.com/example/stackscan/internal/walker"
)

// MaxMatchLen bounds the length of Evidence.Match, in runes.
const MaxMatchLen = 200

// Corpus caches file contents for a single scan. It is safe for concurrent use.
type Corpus struct {
	fsys  fs.FS
	mu    sync.Mutex
	cache map[string]string
}

// NewCorpus returns an empty cache over fsys.
func NewCorpus(fsys fs.FS) *Corpus {
	return &Corpus{fsys: fsys, cache: map[string]string{}}
}

// Text returns the decoded content of p, reading it at most once.
func (c *Corpus) Text(p string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if text, ok := c.cache[p]; ok {
		return text
	}
	text := walker.ReadText(c.fsys, p)
	c.cache[p] = text
	return text
}

// Collector finds marker occurrences in a set of files.
type Collector struct {
	corpus *Corpus
}

// NewCollector builds a collector reading through corpus.
func NewCollector(corpus *Corpus) *Collector {
	return &Collector{corpus: corpus}
}

// MarkerWhy is the default justification for a code-marker hit.
func MarkerWhy(marker string) string {
	return fmt.Sprintf("matched characteristic marker: %s", marker)
}

// Find returns one Evidence per line containing marker, across files in
// order, stopping as soon as limit records have been collected.
func (c *Collector) Find(marker string, files []string, limit int, why string) []model.Evidence {
	var hits []model.Evidence
	if marker == "" || limit <= 0 {
		return hits
	}

	for _, p := range files {
		text := c.corpus.Text(p)
		if !strings.Contains(text, marker) {
			continue
		}

		for idx, line := range strings.Split(text, "\n") {
			if !strings.Contains(line, marker) {
				continue
			}
			hits = append(hits, model.Evidence{
				File:      p,
				LineStart: idx + 1,
				LineEnd:   idx + 1,
				Match:     Truncate(strings.TrimSpace(line), MaxMatchLen),
				Why:       why,
			})
			if len(hits) >= limit {
				return hits
			}
		}
	}
	return hits
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
