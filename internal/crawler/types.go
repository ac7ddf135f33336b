package crawler

import (
	"context"
	"errors"
	"net/url"
	"time"
)

// ErrInvalidSeed is returned when the seed URL cannot start a crawl.
var ErrInvalidSeed = errors.New("invalid seed url")

// Outcome classifies how one iteration ended.
type Outcome string

// Iteration outcomes recorded in the journal.
const (
	OutcomeSaved        Outcome = "saved"
	OutcomeRenderFailed Outcome = "render_failed"
	OutcomeSaveFailed   Outcome = "save_failed"
)

// State is the controller's position in a crawl.
type State int

// Controller states. A run moves Idle -> Running, then cycles through
// Rendering, Extracting and Persisting once per page before Terminated.
const (
	StateIdle State = iota
	StateRunning
	StateRendering
	StateExtracting
	StatePersisting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateRendering:
		return "rendering"
	case StateExtracting:
		return "extracting"
	case StatePersisting:
		return "persisting"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// RenderedPage is the ephemeral result of rendering one URL.
type RenderedPage struct {
	URL      *url.URL
	Links    []string
	Markup   string
	Status   int
	Duration time.Duration
}

// Entry is one journal row.
type Entry struct {
	RunID        string
	URL          string
	VisitedKey   string
	Outcome      Outcome
	ArtifactPath string
	Bytes        int
	Digest       string
	Status       int
	Error        string
	RecordedAt   time.Time
}

// Summary describes a finished crawl.
type Summary struct {
	RunID          string
	Domain         string
	Visited        int
	Saved          int
	RenderFailures int
	SaveFailures   int
	LinksAdmitted  int
	LinkErrors     int
	Started        time.Time
	Finished       time.Time
}

// Persister writes rendered markup for a page and returns where it went.
type Persister interface {
	Save(ctx context.Context, pageURL *url.URL, markup []byte) (string, error)
}

// Journal records iteration outcomes.
type Journal interface {
	Record(ctx context.Context, entry Entry) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
	Since(start time.Time) time.Duration
}

// IDGenerator produces crawl run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher fingerprints saved markup.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Resolver derives the registrable domain of a hostname.
type Resolver func(hostname string) (string, error)
