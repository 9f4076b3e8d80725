package journal

import (
	"sync"
	"time"

	"github.com/getstubd/stubd/internal/id"
)

// DefaultMaxEntries bounds the in-memory journal.
const DefaultMaxEntries = 1000

const subscriberBuffer = 100

// Memory is an in-memory ring-buffer journal. Oldest entries are evicted
// once the capacity is reached.
type Memory struct {
	mu         sync.RWMutex
	entries    []Entry
	maxEntries int

	subMu       sync.RWMutex
	subscribers map[int]chan Entry
	nextSubID   int
}

// NewMemory creates a journal holding at most maxEntries entries.
// Non-positive values fall back to DefaultMaxEntries.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		maxEntries:  maxEntries,
		subscribers: make(map[int]chan Entry),
	}
}

// Append records the entry, assigning its ID and timestamp if unset.
func (m *Memory) Append(e Entry) Entry {
	if e.ID == "" {
		e.ID = "req-" + id.Sortable()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	m.mu.Lock()
	m.entries = append(m.entries, e)
	if len(m.entries) > m.maxEntries {
		m.entries = m.entries[len(m.entries)-m.maxEntries:]
	}
	m.mu.Unlock()

	m.subMu.RLock()
	for _, ch := range m.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
	m.subMu.RUnlock()

	return e
}

// Get returns an entry by ID.
func (m *Memory) Get(entryID string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].ID == entryID {
			return m.entries[i], true
		}
	}
	return Entry{}, false
}

// List returns matching entries newest first.
func (m *Memory) List(f Filter) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	skipped := 0
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if !f.accepts(e) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

// Count returns how many entries pass the filter, ignoring limit/offset.
func (m *Memory) Count(f Filter) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, e := range m.entries {
		if f.accepts(e) {
			n++
		}
	}
	return n
}

// Clear drops all entries. Subscriptions survive.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
}

// Subscribe registers a listener for appended entries.
func (m *Memory) Subscribe() (<-chan Entry, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	subID := m.nextSubID
	m.nextSubID++
	ch := make(chan Entry, subscriberBuffer)
	m.subscribers[subID] = ch

	cancel := func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if ch, ok := m.subscribers[subID]; ok {
			delete(m.subscribers, subID)
			close(ch)
		}
	}
	return ch, cancel
}

var _ Store = (*Memory)(nil)
