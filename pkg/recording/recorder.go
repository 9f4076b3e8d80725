// Package recording turns proxied exchanges into candidate stub mappings.
// The serve path never converts anything itself: it offers exchanges onto
// a bounded queue and a single learner goroutine does the work, so a burst
// of recorded traffic cannot slow down live responses.
package recording

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getstubd/stubd/internal/id"
	"github.com/getstubd/stubd/pkg/logging"
	"github.com/getstubd/stubd/pkg/proxy"
	"github.com/getstubd/stubd/pkg/stub"
)

// DefaultQueueSize bounds the exchange queue between the serve path and
// the learner.
const DefaultQueueSize = 256

// DefaultMaxRecordings bounds how many recordings are retained.
const DefaultMaxRecordings = 1000

// Recording is one learned exchange together with the stub mapping
// derived from it.
type Recording struct {
	ID         string            `json:"id"`
	CapturedAt time.Time         `json:"capturedAt"`
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Status     int               `json:"status"`
	Mapping    *stub.StubMapping `json:"mapping"`
}

// Recorder consumes proxied exchanges asynchronously.
type Recorder struct {
	queue  chan *proxy.Exchange
	stopCh chan struct{}
	doneCh chan struct{}
	log    *slog.Logger

	maxRecordings int
	dropped       atomic.Int64

	mu         sync.RWMutex
	recordings []Recording
	running    bool
}

// NewRecorder creates a recorder. Non-positive sizes fall back to the
// defaults.
func NewRecorder(queueSize, maxRecordings int, log *slog.Logger) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if maxRecordings <= 0 {
		maxRecordings = DefaultMaxRecordings
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Recorder{
		queue:         make(chan *proxy.Exchange, queueSize),
		log:           log,
		maxRecordings: maxRecordings,
	}
}

// Start launches the learner goroutine.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.running = true
	go r.loop(r.stopCh, r.doneCh)
}

// Stop halts the learner and waits for it to drain.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	close(r.stopCh)
	r.running = false
	doneCh := r.doneCh
	r.mu.Unlock()

	<-doneCh
}

// Offer enqueues an exchange without blocking. Returns false when the
// queue is full and the exchange was dropped.
func (r *Recorder) Offer(ex *proxy.Exchange) bool {
	select {
	case r.queue <- ex:
		return true
	default:
		r.dropped.Add(1)
		return false
	}
}

// Dropped reports how many exchanges were discarded on a full queue.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

func (r *Recorder) loop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	for {
		select {
		case <-stopCh:
			// Drain what is already queued before exiting.
			for {
				select {
				case ex := <-r.queue:
					r.ingest(ex)
				default:
					return
				}
			}
		case ex := <-r.queue:
			r.ingest(ex)
		}
	}
}

func (r *Recorder) ingest(ex *proxy.Exchange) {
	rec := Recording{
		ID:         "rec-" + id.Sortable(),
		CapturedAt: ex.Timestamp,
		Method:     ex.Request.Method,
		Path:       ex.Request.Path,
		Status:     ex.Response.Status,
		Mapping:    Convert(ex),
	}

	r.mu.Lock()
	r.recordings = append(r.recordings, rec)
	if len(r.recordings) > r.maxRecordings {
		r.recordings = r.recordings[len(r.recordings)-r.maxRecordings:]
	}
	r.mu.Unlock()

	r.log.Debug("recorded exchange",
		"id", rec.ID, "method", rec.Method, "path", rec.Path, "status", rec.Status)
}

// List returns recordings newest first.
func (r *Recorder) List() []Recording {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Recording, len(r.recordings))
	for i, rec := range r.recordings {
		out[len(r.recordings)-1-i] = rec
	}
	return out
}

// Count returns the number of retained recordings.
func (r *Recorder) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.recordings)
}

// Clear drops all recordings.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordings = nil
}

// Snapshot returns copies of the learned mappings, ready to be registered.
func (r *Recorder) Snapshot() []*stub.StubMapping {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*stub.StubMapping, len(r.recordings))
	for i, rec := range r.recordings {
		out[i] = rec.Mapping.Copy()
	}
	return out
}
