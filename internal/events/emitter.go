package events

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Event types emitted during a scan.
const (
	TypeScanStarted     = "scan_started"
	TypeManifestsParsed = "manifests_parsed"
	TypeDetectorDone    = "detector_done"
	TypeScanFinished    = "scan_finished"
	TypeScanFailed      = "scan_failed"
)

// Event represents a single NDJSON progress record.
type Event struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	ScanID    string                 `json:"scan_id,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Emitter writes NDJSON events to an io.Writer safely across goroutines.
type Emitter struct {
	writer io.Writer
	clock  clock.Clock
	scanID string
	mu     sync.Mutex
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithClock sets the clock used to stamp events.
func WithClock(c clock.Clock) Option {
	return func(e *Emitter) {
		e.clock = c
	}
}

// WithScanID tags every event with the given scan identifier.
func WithScanID(id string) Option {
	return func(e *Emitter) {
		e.scanID = id
	}
}

// NewEmitter returns a new NDJSON emitter.
func NewEmitter(w io.Writer, opts ...Option) *Emitter {
	e := &Emitter{writer: w, clock: clock.New()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit serializes the event to JSON and appends a newline.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = e.clock.Now().UTC()
	}
	if evt.ScanID == "" {
		evt.ScanID = e.scanID
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.writer.Write(append(payload, '\n')); err != nil {
		return err
	}

	return nil
}

// DetectorDone emits the completion record for one detector.
func (e *Emitter) DetectorDone(name string, findings int) error {
	return e.Emit(Event{
		Type:    TypeDetectorDone,
		Message: name,
		Fields: map[string]interface{}{
			"detector": name,
			"findings": findings,
		},
	})
}
