package domain

import (
	"context"
	"time"
)

// SnapshotCache is the read side of the live-odds aggregator: it serves the
// latest finished snapshot of each event.
type SnapshotCache interface {
	Set(ctx context.Context, snap EventSnapshot) error
	Get(ctx context.Context, eventID string) (EventSnapshot, error)
	Invalidate(ctx context.Context, eventID string) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus provides pub/sub messaging.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// BusMessage is a payload together with the channel it arrived on.
type BusMessage struct {
	Channel string
	Payload []byte
}

// Bus channels.
const (
	ChannelSnapshots        = "snapshots"
	ChannelSelections       = "betbuilder:selections"
	ChannelOrganizersPrefix = "organizers:"
	ChannelGrayoutsPrefix   = "grayouts:"
)

// OrganizersChannel is the channel recomputed organizers for eventID are
// published on.
func OrganizersChannel(eventID string) string { return ChannelOrganizersPrefix + eventID }

// GrayoutsChannel is the channel grayout updates for sessionID are published on.
func GrayoutsChannel(sessionID string) string { return ChannelGrayoutsPrefix + sessionID }

// RecomputeLockKey names the lock that lets one replica at a time recompute
// eventID.
func RecomputeLockKey(eventID string) string { return "recompute:" + eventID }
