package betbuilder

import (
	"slices"
	"sync"
)

// SelectionDedup remembers the last selection list it was shown and reports
// whether a new list differs from it. Lists are compared in order, so a
// reordering counts as a change. It is safe for concurrent use.
type SelectionDedup struct {
	last []string
	seen bool
	mu   sync.Mutex
}

// NewSelectionDedup creates an empty SelectionDedup. The first list it sees
// always counts as a change.
func NewSelectionDedup() *SelectionDedup {
	return &SelectionDedup{}
}

// Changed returns true and records ids if they differ from the previously
// recorded list. It returns false for a repeat of the same ordered list.
func (d *SelectionDedup) Changed(ids []string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seen && slices.Equal(d.last, ids) {
		return false
	}
	d.last = slices.Clone(ids)
	d.seen = true
	return true
}

// Last returns a copy of the last recorded list.
func (d *SelectionDedup) Last() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.last)
}

// Reset forgets the recorded list so the next call to Changed returns true.
func (d *SelectionDedup) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = nil
	d.seen = false
}
