package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/example/stackscan/internal/gomod"
	"github.com/example/stackscan/internal/model"
)

// Notes are the fixed caveats attached to every report.
var Notes = []string{
	"this scan is a heuristic first pass: back high-value conclusions with entry-point or registration evidence",
	"a component that only appears in go.mod with no call site usually scores low confidence",
}

// InvalidRootMessage is the error text written when the repository root is unusable.
const InvalidRootMessage = "repo_root does not exist or is not a directory"

// Assembler builds reports. The zero value is not usable; see NewAssembler.
type Assembler struct {
	clock clock.Clock
	newID func() string
}

// NewAssembler returns an Assembler stamping reports with c.
func NewAssembler(c clock.Clock) *Assembler {
	if c == nil {
		c = clock.New()
	}
	return &Assembler{clock: c, newID: uuid.NewString}
}

// NewScanID allocates the identifier for the next report.
func (a *Assembler) NewScanID() string {
	return a.newID()
}

// Assemble combines the scan results into a Report. A nil findings slice is
// rendered as an empty list.
func (a *Assembler) Assemble(scanID, root string, mods []model.ManifestInfo, findings []model.Finding) model.Report {
	if mods == nil {
		mods = []model.ManifestInfo{}
	}
	if findings == nil {
		findings = []model.Finding{}
	}
	notes := make([]string, len(Notes))
	copy(notes, Notes)

	return model.Report{
		ScanID:      scanID,
		GeneratedAt: a.clock.Now().UTC(),
		Repo: model.Repo{
			Root:         root,
			GoMods:       mods,
			MaxGoVersion: gomod.MaxGoVersion(mods),
		},
		Stacks: findings,
		Notes:  notes,
	}
}

// Decode reads a report previously written by the json renderer.
func Decode(r io.Reader) (model.Report, error) {
	var rep model.Report
	dec := json.NewDecoder(r)
	if err := dec.Decode(&rep); err != nil {
		return rep, fmt.Errorf("decoding report: %w", err)
	}
	if rep.Stacks == nil {
		rep.Stacks = []model.Finding{}
	}
	return rep, nil
}

// WriteError writes the JSON error shape for an unusable repository root.
func WriteError(w io.Writer, root string) error {
	return writeJSON(w, model.ErrorReport{Error: InvalidRootMessage, RepoRoot: root})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
