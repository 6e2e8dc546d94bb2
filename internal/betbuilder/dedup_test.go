package betbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectionDedup(t *testing.T) {
	d := NewSelectionDedup()

	assert.True(t, d.Changed([]string{"a", "b"}), "first list is a change")
	assert.False(t, d.Changed([]string{"a", "b"}), "same ordered list")
	assert.True(t, d.Changed([]string{"b", "a"}), "reordered list")
	assert.True(t, d.Changed([]string{"b", "a", "c"}))
	assert.Equal(t, []string{"b", "a", "c"}, d.Last())

	d.Reset()
	assert.True(t, d.Changed([]string{"b", "a", "c"}))
}

func TestSelectionDedup_CopiesInput(t *testing.T) {
	d := NewSelectionDedup()
	ids := []string{"a", "b"}
	d.Changed(ids)

	ids[0] = "z"

	assert.False(t, d.Changed([]string{"a", "b"}))
}

func TestSelectionDedup_EmptyLists(t *testing.T) {
	d := NewSelectionDedup()

	assert.True(t, d.Changed(nil))
	assert.False(t, d.Changed([]string{}))
}
