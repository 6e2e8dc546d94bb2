// Package betbuilder implements the combinability gate: it decodes the
// operator's grayout payload and keeps one session's grayout state in step
// with its current selections.
package betbuilder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/alanyoungcy/marketgroups/internal/domain"
)

// wireState is the grayouts payload as the operator sends it.
type wireState struct {
	Grayouts                    map[string]json.RawMessage `json:"grayouts"`
	CannotCombineMoreSelections bool                       `json:"cannotCombineMoreSelections"`
	ErrorCode                   *string                    `json:"errorCode"`
	ErrorMessage                *string                    `json:"errorMessage"`
}

type wirePointer struct {
	OutcomeID      flexID `json:"outcomeId"`
	BettingOfferID flexID `json:"bettingOfferId"`
	BettingTypeID  flexID `json:"bettingTypeId"`
}

// flexID accepts an identifier sent either as a JSON string or a number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number, got %s", b)
	}
	*f = flexID(n.String())
	return nil
}

// Decode parses a grayouts payload. Entries that fail to parse on their own
// are dropped and their keys returned in sorted order; only a malformed
// envelope is an error. An entry without an outcomeId takes its map key.
func Decode(payload []byte) (domain.GrayoutsState, []string, error) {
	var w wireState
	if err := json.Unmarshal(payload, &w); err != nil {
		return domain.GrayoutsState{}, nil, fmt.Errorf("betbuilder: decode: %w: %w", domain.ErrInvalidPayload, err)
	}

	state := domain.DefaultGrayouts()
	state.CannotCombineMoreSelections = w.CannotCombineMoreSelections
	state.ErrorCode = w.ErrorCode
	state.ErrorMessage = w.ErrorMessage

	var dropped []string
	for key, raw := range w.Grayouts {
		ptr, ok := decodePointer(key, raw)
		if !ok {
			dropped = append(dropped, key)
			continue
		}
		state.Blocked[key] = ptr
	}
	sort.Strings(dropped)
	return state, dropped, nil
}

func decodePointer(key string, raw json.RawMessage) (domain.OutcomePointer, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return domain.OutcomePointer{}, false
	}
	var p wirePointer
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.OutcomePointer{}, false
	}
	if p.OutcomeID == "" {
		p.OutcomeID = flexID(key)
	}
	return domain.OutcomePointer{
		OutcomeID:      string(p.OutcomeID),
		BettingOfferID: string(p.BettingOfferID),
		BettingTypeID:  string(p.BettingTypeID),
	}, true
}
