package engine

import (
	"log/slog"
	"net/http"

	"github.com/getstubd/stubd/pkg/content"
	"github.com/getstubd/stubd/pkg/journal"
	"github.com/getstubd/stubd/pkg/logging"
	"github.com/getstubd/stubd/pkg/proxy"
	"github.com/getstubd/stubd/pkg/scenario"
)

// Options configures a new Engine. The zero value is usable: an in-memory
// journal, no content store, diagnostic unmatched handling and a no-op
// logger.
type Options struct {
	// Journal stores served exchanges. Defaults to an in-memory journal.
	Journal journal.Store

	// Content resolves bodyFile references. May be nil.
	Content content.Store

	// Logger receives operational logs. Defaults to a no-op logger.
	Logger *slog.Logger

	// TieBreak orders equally specific candidates of equal priority.
	TieBreak TieBreak

	// MaxBodyBytes caps request bodies read for matching.
	MaxBodyBytes int64

	// UnmatchedMode selects the unmatched request behavior.
	UnmatchedMode UnmatchedMode

	// Forwarder relays unmatched requests in proxy mode.
	Forwarder *proxy.Forwarder

	// Sink receives proxied exchanges, typically a recording queue.
	Sink ExchangeSink
}

// Engine is a fully wired service-virtualization engine. Construct one
// per virtual service; engines share nothing.
type Engine struct {
	repo      *Repository
	scenarios *scenario.Tracker
	journal   journal.Store
	handler   *Handler
	log       *slog.Logger
}

// New constructs an Engine from the options.
func New(opts Options) *Engine {
	if opts.Journal == nil {
		opts.Journal = journal.NewMemory(journal.DefaultMaxEntries)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.UnmatchedMode == "" {
		opts.UnmatchedMode = UnmatchedDiagnose
	}

	tracker := scenario.NewTracker()
	repo := NewRepository(tracker, opts.TieBreak)

	h := &Handler{
		repo:          repo,
		renderer:      NewRenderer(opts.Content),
		journal:       opts.Journal,
		log:           opts.Logger,
		maxBodyBytes:  opts.MaxBodyBytes,
		unmatchedMode: opts.UnmatchedMode,
		forwarder:     opts.Forwarder,
		sink:          opts.Sink,
	}

	return &Engine{
		repo:      repo,
		scenarios: tracker,
		journal:   opts.Journal,
		handler:   h,
		log:       opts.Logger,
	}
}

// Handler returns the http.Handler serving stub traffic.
func (e *Engine) Handler() http.Handler {
	return e.handler
}

// Repository returns the stub repository.
func (e *Engine) Repository() *Repository {
	return e.repo
}

// Scenarios returns the scenario tracker.
func (e *Engine) Scenarios() *scenario.Tracker {
	return e.scenarios
}

// Journal returns the request journal.
func (e *Engine) Journal() journal.Store {
	return e.journal
}

// Reset clears mappings, scenarios and the journal in one step.
func (e *Engine) Reset() {
	e.repo.Clear()
	e.journal.Clear()
}
