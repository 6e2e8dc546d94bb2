package domain

import "time"

// SnapshotUpdated is published on ChannelSnapshots when the aggregator has
// stored a new snapshot of an event.
type SnapshotUpdated struct {
	EventID string `json:"event_id"`
}

// SelectionsChanged is published on ChannelSelections when a bet-builder
// session's selection list may have changed.
type SelectionsChanged struct {
	SessionID  string   `json:"session_id"`
	Selections []string `json:"selections"`
}

// GroupOrganizers are the organizers of one market group of an event.
type GroupOrganizers struct {
	GroupKey   string      `json:"group_key"`
	Organizers []Organizer `json:"organizers"`
}

// OrganizersUpdate is published on OrganizersChannel(eventID) after a
// recompute.
type OrganizersUpdate struct {
	EventID    string            `json:"event_id"`
	Groups     []GroupOrganizers `json:"groups"`
	ComputedAt time.Time         `json:"computed_at"`
}

// GrayoutsUpdate is published on GrayoutsChannel(sessionID) whenever a
// session's grayout state is replaced.
type GrayoutsUpdate struct {
	SessionID   string        `json:"session_id"`
	State       GrayoutsState `json:"state"`
	Unavailable bool          `json:"unavailable"`
}
