package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortable(t *testing.T) {
	a := Sortable()
	b := Sortable()

	assert.Len(t, a, 20)
	assert.Len(t, b, 20)
	assert.NotEqual(t, a, b)
	assert.LessOrEqual(t, a, b, "IDs should sort by creation order")
}

func TestSortableUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := Sortable()
		assert.False(t, seen[s], "duplicate id %s", s)
		seen[s] = true
	}
}
