package domain

import "maps"

// OutcomePointer identifies one blocked offer.
type OutcomePointer struct {
	OutcomeID      string `json:"outcome_id"`
	BettingOfferID string `json:"betting_offer_id"`
	BettingTypeID  string `json:"betting_type_id"`
}

// GrayoutsState is a snapshot of bet-builder combinability restrictions. It
// is replaced wholesale on every fetch; the zero value restricts nothing.
type GrayoutsState struct {
	Blocked                     map[string]OutcomePointer `json:"blocked"`
	CannotCombineMoreSelections bool                      `json:"cannot_combine_more_selections"`
	ErrorCode                   *string                   `json:"error_code,omitempty"`
	ErrorMessage                *string                   `json:"error_message,omitempty"`
}

// DefaultGrayouts returns the empty state that permits every outcome.
func DefaultGrayouts() GrayoutsState {
	return GrayoutsState{Blocked: map[string]OutcomePointer{}}
}

// Clone returns a copy of s that shares no map with it.
func (s GrayoutsState) Clone() GrayoutsState {
	out := s
	out.Blocked = maps.Clone(s.Blocked)
	if out.Blocked == nil {
		out.Blocked = map[string]OutcomePointer{}
	}
	return out
}

// ShouldGrayout reports whether outcomeID must be shown as not combinable.
func (s GrayoutsState) ShouldGrayout(outcomeID string) bool {
	if s.CannotCombineMoreSelections {
		return true
	}
	_, blocked := s.Blocked[outcomeID]
	return blocked
}

// Unavailable reports whether the server flagged the bet builder as
// temporarily unavailable.
func (s GrayoutsState) Unavailable() bool {
	return s.ErrorCode != nil || s.ErrorMessage != nil
}
