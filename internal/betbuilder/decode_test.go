package betbuilder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketgroups/internal/domain"
)

func TestDecode_FullPayload(t *testing.T) {
	payload := []byte(`{
		"grayouts": {
			"o1": {"outcomeId": "o1", "bettingOfferId": "bo1", "bettingTypeId": "69"},
			"o2": {"outcomeId": 2, "bettingOfferId": 22, "bettingTypeId": 69}
		},
		"cannotCombineMoreSelections": false
	}`)

	state, dropped, err := Decode(payload)

	require.NoError(t, err)
	assert.Empty(t, dropped)
	assert.Equal(t, map[string]domain.OutcomePointer{
		"o1": {OutcomeID: "o1", BettingOfferID: "bo1", BettingTypeID: "69"},
		"o2": {OutcomeID: "2", BettingOfferID: "22", BettingTypeID: "69"},
	}, state.Blocked)
	assert.False(t, state.Unavailable())
	assert.True(t, state.ShouldGrayout("o1"))
	assert.False(t, state.ShouldGrayout("o3"))
}

func TestDecode_DropsMalformedEntries(t *testing.T) {
	payload := []byte(`{
		"grayouts": {
			"good": {"outcomeId": "good", "bettingOfferId": "b", "bettingTypeId": "t"},
			"str": "not an object",
			"bool": {"outcomeId": true},
			"arr": [1, 2],
			"nil": null
		}
	}`)

	state, dropped, err := Decode(payload)

	require.NoError(t, err)
	assert.Len(t, state.Blocked, 1)
	assert.Contains(t, state.Blocked, "good")
	assert.Equal(t, []string{"arr", "bool", "nil", "str"}, dropped)
}

func TestDecode_MissingOutcomeIDInheritsKey(t *testing.T) {
	state, _, err := Decode([]byte(`{"grayouts": {"o9": {"bettingOfferId": "b9"}}}`))

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePointer{OutcomeID: "o9", BettingOfferID: "b9"}, state.Blocked["o9"])
}

func TestDecode_FlagsAndErrors(t *testing.T) {
	state, _, err := Decode([]byte(`{
		"cannotCombineMoreSelections": true,
		"errorCode": "BB_DOWN",
		"errorMessage": "temporarily unavailable"
	}`))

	require.NoError(t, err)
	assert.NotNil(t, state.Blocked)
	assert.True(t, state.CannotCombineMoreSelections)
	assert.True(t, state.ShouldGrayout("anything"))
	assert.True(t, state.Unavailable())
	require.NotNil(t, state.ErrorCode)
	assert.Equal(t, "BB_DOWN", *state.ErrorCode)
}

func TestDecode_MalformedEnvelope(t *testing.T) {
	for _, payload := range []string{`{`, `[]`, `{"grayouts": []}`, `"x"`} {
		t.Run(payload, func(t *testing.T) {
			_, _, err := Decode([]byte(payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidPayload))
		})
	}
}

func TestDefaultStateGraysNothing(t *testing.T) {
	state := domain.DefaultGrayouts()

	for _, id := range []string{"", "o1", "42"} {
		assert.False(t, state.ShouldGrayout(id))
	}
	assert.False(t, state.Unavailable())
}
