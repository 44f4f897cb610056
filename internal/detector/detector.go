package detector

import (
	"context"
	"io/fs"
	"sync"

	"go.uber.org/zap"

	"github.com/example/stackscan/internal/evidence"
	"github.com/example/stackscan/internal/gomod"
	"github.com/example/stackscan/internal/imports"
	"github.com/example/stackscan/internal/model"
	"github.com/example/stackscan/internal/walker"
)

// DefaultMaxEvidence is the per-finding evidence cap when none is configured.
const DefaultMaxEvidence = 3

// Detector is implemented by modules that turn a scanned repository into findings.
type Detector interface {
	Name() string
	Detect(ctx context.Context, scan *Scan) ([]model.Finding, error)
}

// Options tune a scan.
type Options struct {
	MaxEvidence  int
	IncludeTests bool
	Logger       *zap.SugaredLogger
	// OnDetectorDone, if set, is called by Run after each detector completes.
	OnDetectorDone func(name string, findings int)
}

// Scan holds the per-run inputs shared by every detector.
type Scan struct {
	Walker      *walker.Walker
	Corpus      *evidence.Corpus
	Manifests   []model.ManifestInfo
	SourceFiles []string
	Options

	importsOnce sync.Once
	imports     imports.Set
}

// NewScan walks the repository once, collecting manifests and the Go sources
// allowed by the test-file policy.
func NewScan(w *walker.Walker, opts Options) *Scan {
	if opts.MaxEvidence < 1 {
		opts.MaxEvidence = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	scan := &Scan{
		Walker:    w,
		Corpus:    evidence.NewCorpus(w.FS()),
		Manifests: gomod.Collect(w),
		Options:   opts,
	}

	for p := range w.FilesWithSuffix(".go") {
		if !opts.IncludeTests && walker.IsTestFile(p) {
			continue
		}
		scan.SourceFiles = append(scan.SourceFiles, p)
	}

	return scan
}

// FS returns the repository filesystem.
func (s *Scan) FS() fs.FS {
	return s.Walker.FS()
}

// Imports is the union of import paths across SourceFiles, computed once.
func (s *Scan) Imports() imports.Set {
	s.importsOnce.Do(func() {
		s.imports = imports.Set{}
		for _, p := range s.SourceFiles {
			s.imports.Merge(imports.Extract(s.Corpus.Text(p)))
		}
	})
	return s.imports
}

// perMarkerLimit caps the hits gathered for one marker to half the finding cap.
func (s *Scan) perMarkerLimit() int {
	return max(1, s.MaxEvidence/2)
}
