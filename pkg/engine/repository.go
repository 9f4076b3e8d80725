package engine

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/getstubd/stubd/internal/matching"
	"github.com/getstubd/stubd/pkg/scenario"
	"github.com/getstubd/stubd/pkg/stub"
)

// TieBreak decides between candidates with equal priority and equal
// specificity.
type TieBreak string

const (
	// TieBreakNewest prefers the most recently registered mapping.
	TieBreakNewest TieBreak = "newest"

	// TieBreakOldest prefers the earliest registered mapping.
	TieBreakOldest TieBreak = "oldest"
)

type record struct {
	mapping *stub.StubMapping
	seq     uint64
}

// Repository stores registered stub mappings and selects the best match
// for a request. Mutations are atomic with respect to lookups; lookups
// run concurrently with each other.
type Repository struct {
	mu       sync.RWMutex
	records  map[string]*record
	seq      uint64
	tieBreak TieBreak

	scenarios *scenario.Tracker
}

// NewRepository creates an empty repository. The tracker gates
// scenario-bound mappings during selection; it must not be nil.
func NewRepository(tracker *scenario.Tracker, tieBreak TieBreak) *Repository {
	if tieBreak == "" {
		tieBreak = TieBreakNewest
	}
	return &Repository{
		records:   make(map[string]*record),
		tieBreak:  tieBreak,
		scenarios: tracker,
	}
}

// Scenarios returns the tracker gating this repository.
func (r *Repository) Scenarios() *scenario.Tracker {
	return r.scenarios
}

func (r *Repository) validate(m *stub.StubMapping) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := matching.ValidatePattern(&m.Request); err != nil {
		return &stub.ValidationError{Field: "request", Message: err.Error()}
	}
	return nil
}

// Register adds a new mapping, assigning an ID when absent. Registering
// an ID that already exists fails with a ConflictError.
func (r *Repository) Register(m *stub.StubMapping) (*stub.StubMapping, error) {
	if err := r.validate(m); err != nil {
		return nil, err
	}

	c := m.Copy()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[c.ID]; exists {
		return nil, &ConflictError{ID: c.ID}
	}
	r.seq++
	r.records[c.ID] = &record{mapping: c, seq: r.seq}
	r.scenarios.Ensure(c.ScenarioName)

	return c.Copy(), nil
}

// Update replaces an existing mapping. The mapping keeps its ID but is
// considered freshly registered for recency tie-breaking.
func (r *Repository) Update(m *stub.StubMapping) (*stub.StubMapping, error) {
	if m.ID == "" {
		return nil, &stub.ValidationError{Field: "id", Message: "update requires an id"}
	}
	if err := r.validate(m); err != nil {
		return nil, err
	}

	c := m.Copy()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[c.ID]; !exists {
		return nil, &NotFoundError{ID: c.ID}
	}
	r.seq++
	r.records[c.ID] = &record{mapping: c, seq: r.seq}
	r.scenarios.Ensure(c.ScenarioName)

	return c.Copy(), nil
}

// Remove deletes a mapping by ID. Removing an unknown ID is a no-op, so
// cleanup code can call it blindly; the return reports whether a mapping
// was actually deleted.
func (r *Repository) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[id]; !exists {
		return false
	}
	delete(r.records, id)
	return true
}

// Clear removes every mapping and forgets all scenarios.
func (r *Repository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[string]*record)
	r.scenarios.Clear()
}

// Get returns a copy of the mapping with the given ID.
func (r *Repository) Get(id string) (*stub.StubMapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, false
	}
	return rec.mapping.Copy(), true
}

// List returns copies of all mappings in selection order: ascending
// priority, then most recently registered first.
func (r *Repository) List() []*stub.StubMapping {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := make([]*record, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		pi, pj := recs[i].mapping.EffectivePriority(), recs[j].mapping.EffectivePriority()
		if pi != pj {
			return pi < pj
		}
		return recs[i].seq > recs[j].seq
	})

	out := make([]*stub.StubMapping, len(recs))
	for i, rec := range recs {
		out[i] = rec.mapping.Copy()
	}
	return out
}

// Count returns the number of registered mappings.
func (r *Repository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

type candidate struct {
	rec *record
	res matching.Result
}

// FindBestMatch selects the winning mapping for a request, if any.
// Candidates are ordered by ascending priority value, then descending
// specificity, then the repository's tie-break policy. A scenario-bound
// winner atomically advances its scenario; if a concurrent request moved
// the scenario first, selection falls through to the next candidate.
func (r *Repository) FindBestMatch(req *matching.Request) (*stub.StubMapping, map[string]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var cands []candidate
	for _, rec := range r.records {
		m := rec.mapping
		if m.InScenario() {
			if r.scenarios.CurrentState(m.ScenarioName) != requiredState(m) {
				continue
			}
		}
		res := matching.Evaluate(&m.Request, req)
		if res.Matched {
			cands = append(cands, candidate{rec: rec, res: res})
		}
	}
	if len(cands) == 0 {
		return nil, nil, false
	}

	sort.Slice(cands, func(i, j int) bool {
		pi, pj := cands[i].rec.mapping.EffectivePriority(), cands[j].rec.mapping.EffectivePriority()
		if pi != pj {
			return pi < pj
		}
		if cands[i].res.Specificity != cands[j].res.Specificity {
			return cands[i].res.Specificity > cands[j].res.Specificity
		}
		if r.tieBreak == TieBreakOldest {
			return cands[i].rec.seq < cands[j].rec.seq
		}
		return cands[i].rec.seq > cands[j].rec.seq
	})

	for _, c := range cands {
		m := c.rec.mapping
		if m.InScenario() {
			if !r.scenarios.TransitionIfState(m.ScenarioName, requiredState(m), m.NewState) {
				continue
			}
		}
		return m.Copy(), c.res.PathParams, true
	}
	return nil, nil, false
}

// requiredState resolves the state a scenario-bound mapping is eligible
// in. Leaving requiredState unset binds the mapping to the initial state.
func requiredState(m *stub.StubMapping) string {
	if m.RequiredState == "" {
		return scenario.Started
	}
	return m.RequiredState
}
