package walker

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrInvalidRoot marks a repository root that is missing or not a directory.
var ErrInvalidRoot = errors.New("repository root does not exist or is not a directory")

// Ignored directories (exact match on folder name)
var ignoredDirs = map[string]struct{}{
	".git":         {},
	"vendor":       {},
	"node_modules": {},
	".idea":        {},
	".vscode":      {},
	".trae":        {},
	"dist":         {},
	"build":        {},
	"tmp":          {},
	"bin":          {},
	"out":          {},
}

var testDirs = map[string]struct{}{
	"test":  {},
	"tests": {},
}

// Walker enumerates repository files, pruning ignored directories.
type Walker struct {
	fsys     fs.FS
	excludes []string
}

// New builds a walker over fsys. Excludes are doublestar patterns matched
// against slash-separated directory paths relative to the root.
func New(fsys fs.FS, excludes []string) (*Walker, error) {
	for _, pattern := range excludes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	return &Walker{fsys: fsys, excludes: excludes}, nil
}

// OpenRoot resolves root to an absolute directory and returns a filesystem rooted at it.
func OpenRoot(root string) (string, fs.FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return root, nil, fmt.Errorf("%w: %s", ErrInvalidRoot, root)
	}

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return abs, nil, fmt.Errorf("%w: %s", ErrInvalidRoot, abs)
	}

	return abs, os.DirFS(abs), nil
}

// FS returns the filesystem the walker reads from.
func (w *Walker) FS() fs.FS {
	return w.fsys
}

// Files yields every file outside ignored directories.
func (w *Walker) Files() iter.Seq[string] {
	return w.walk(func(string) bool { return true })
}

// FilesWithSuffix yields files whose path ends with suffix.
func (w *Walker) FilesWithSuffix(suffix string) iter.Seq[string] {
	return w.walk(func(p string) bool { return strings.HasSuffix(p, suffix) })
}

func (w *Walker) walk(keep func(string) bool) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = fs.WalkDir(w.fsys, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				// unreadable entries are skipped, the rest of the tree is still walked
				return nil
			}

			if d.IsDir() {
				if p != "." && w.skipDir(p, d.Name()) {
					return fs.SkipDir
				}
				return nil
			}

			if !keep(p) {
				return nil
			}
			if !yield(p) {
				return fs.SkipAll
			}
			return nil
		})
	}
}

func (w *Walker) skipDir(p, name string) bool {
	if _, ok := ignoredDirs[name]; ok {
		return true
	}

	for _, pattern := range w.excludes {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

// IsIgnoredDir reports whether name is in the fixed ignore set.
func IsIgnoredDir(name string) bool {
	_, ok := ignoredDirs[name]
	return ok
}

// IsTestFile reports whether p is a Go test file or lives under a test directory.
func IsTestFile(p string) bool {
	if strings.HasSuffix(path.Base(p), "_test.go") {
		return true
	}

	for _, segment := range strings.Split(p, "/") {
		if _, ok := testDirs[strings.ToLower(segment)]; ok {
			return true
		}
	}
	return false
}

// ReadText returns the file content, replacing invalid UTF-8 sequences with U+FFFD.
// Unreadable files read as empty.
func ReadText(fsys fs.FS, p string) string {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return ""
	}

	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}
