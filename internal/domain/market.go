package domain

// BettingOffer is the priced, bettable side of an outcome.
type BettingOffer struct {
	ID        string  `json:"id"`
	Value     float64 `json:"value"`
	Available bool    `json:"available"`
	Live      bool    `json:"live"`
}

// Outcome is one selectable option within a market. ID and HeaderCodeName
// are stable across odds updates; only BettingOffer.Value moves.
type Outcome struct {
	ID             string       `json:"id"`
	CodeName       string       `json:"code_name"`
	TypeName       string       `json:"type_name"`
	TranslatedName string       `json:"translated_name"`
	HeaderCodeName string       `json:"header_code_name"`
	OrderValue     *string      `json:"order_value,omitempty"`
	BettingOffer   BettingOffer `json:"betting_offer"`
}

// Market is one bettable proposition for an event, e.g. "Over/Under 2.5".
// Outcomes are in display order once they have been through the ordering
// package, not in arrival order.
type Market struct {
	ID            string    `json:"id"`
	MarketTypeID  string    `json:"market_type_id,omitempty"` // empty when the feed sent none
	Name          string    `json:"name"`
	NameDigit1    *float64  `json:"name_digit_1,omitempty"`
	NameDigit2    *float64  `json:"name_digit_2,omitempty"`
	NameDigit3    *float64  `json:"name_digit_3,omitempty"`
	EventPartID   string    `json:"event_part_id,omitempty"`
	BettingTypeID string    `json:"betting_type_id,omitempty"`
	Outcomes      []Outcome `json:"outcomes"`
}

// MatchContext is the slice of event data the grouping engine needs.
type MatchContext struct {
	HomeName string `json:"home_name"`
	AwayName string `json:"away_name"`
	SportID  string `json:"sport_id"`
}

// MarketGroup is one market tab of an event (e.g. "Main", "Goals") with its
// markets in feed order.
type MarketGroup struct {
	Key     string   `json:"key"`
	Markets []Market `json:"markets"`
}

// EventSnapshot is a finished, immutable view of one event as published by
// the live-odds aggregator.
type EventSnapshot struct {
	EventID string        `json:"event_id"`
	Match   MatchContext  `json:"match"`
	Groups  []MarketGroup `json:"groups"`
}

// Group returns the market group with the given key.
func (s EventSnapshot) Group(key string) (MarketGroup, bool) {
	for _, g := range s.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return MarketGroup{}, false
}
