package journal

// Store is the journal contract the engine and admin layers depend on.
type Store interface {
	// Append records an entry. It never blocks the serve path; when the
	// store is full the oldest entry is evicted.
	Append(e Entry) Entry

	// Get returns an entry by ID.
	Get(id string) (Entry, bool)

	// List returns entries newest first, narrowed by the filter.
	List(f Filter) []Entry

	// Count returns how many entries pass the filter.
	Count(f Filter) int

	// Clear drops all entries.
	Clear()

	// Subscribe returns a channel receiving entries as they are appended
	// and a function to cancel the subscription. Slow subscribers miss
	// entries rather than slow down appends.
	Subscribe() (<-chan Entry, func())
}
