// Package testfs builds in-memory repositories for tests.
package testfs

import (
	"path"
	"testing"

	"github.com/psanford/memfs"
)

// New returns an in-memory filesystem containing files, keyed by slash-separated path.
func New(t testing.TB, files map[string]string) *memfs.FS {
	t.Helper()

	fsys := memfs.New()
	for name, content := range files {
		if dir := path.Dir(name); dir != "." {
			if err := fsys.MkdirAll(dir, 0o755); err != nil {
				t.Fatalf("mkdir %s: %v", dir, err)
			}
		}
		if err := fsys.WriteFile(name, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return fsys
}
