package grouping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Handicap 2:1", "Handicap"},
		{"Handicap 0:3", "Handicap"},
		{"European handicap 1:0 Full Time", "European handicap Full Time"},
		{"HANDICAP 10:2 1st Half", "HANDICAP 1st Half"},
		{"Total Goals 2:1", "Total Goals 2:1"},
		{"Over/Under 2.5", "Over/Under 2.5"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, displayName(tt.in))
		})
	}
}

func TestNamePolicyValid(t *testing.T) {
	assert.True(t, NameLast.Valid())
	assert.True(t, NameFirst.Valid())
	assert.False(t, NamePolicy("middle").Valid())
	assert.False(t, NamePolicy("").Valid())
}
