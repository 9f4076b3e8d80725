// Package scenario tracks the state machines that gate scenario-bound
// stub mappings. Every scenario starts in the Started state and only
// moves when a mapping that names a newState is selected, or when an
// operator sets the state explicitly.
package scenario

import (
	"sort"
	"sync"
)

// Started is the implicit initial state of every scenario.
const Started = "Started"

// State is a snapshot of one scenario.
type State struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// Tracker holds current scenario states. All methods are safe for
// concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	states map[string]string
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{states: make(map[string]string)}
}

// Ensure registers a scenario in the Started state if it is not yet known.
func (t *Tracker) Ensure(name string) {
	if name == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.states[name]; !ok {
		t.states[name] = Started
	}
}

// CurrentState returns the scenario's current state. Unknown scenarios
// report Started.
func (t *Tracker) CurrentState(name string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.states[name]; ok {
		return s
	}
	return Started
}

// Set forces a scenario into the given state.
func (t *Tracker) Set(name, state string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[name] = state
}

// TransitionIfState atomically moves the scenario from required to next.
// An empty required matches any current state. An empty next leaves the
// state untouched but still succeeds. Returns false when the scenario is
// no longer in the required state, in which case nothing changes.
func (t *Tracker) TransitionIfState(name, required, next string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.states[name]
	if !ok {
		current = Started
	}
	if required != "" && current != required {
		return false
	}
	if next != "" {
		t.states[name] = next
	} else if !ok {
		t.states[name] = current
	}
	return true
}

// Reset returns a scenario to Started. Reports whether it was known.
func (t *Tracker) Reset(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.states[name]; !ok {
		return false
	}
	t.states[name] = Started
	return true
}

// ResetAll returns every known scenario to Started.
func (t *Tracker) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for name := range t.states {
		t.states[name] = Started
	}
}

// Delete forgets a scenario entirely.
func (t *Tracker) Delete(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, name)
}

// Clear forgets all scenarios.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states = make(map[string]string)
}

// List returns a snapshot of all known scenarios, sorted by name.
func (t *Tracker) List() []State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]State, 0, len(t.states))
	for name, state := range t.states {
		out = append(out, State{Name: name, State: state})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
