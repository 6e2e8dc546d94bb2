// Package feed connects bus channels to the services that react to them.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/marketgroups/internal/domain"
	"github.com/alanyoungcy/marketgroups/internal/metrics"
)

// Recomputer recomputes and publishes the organizers of an event.
type Recomputer interface {
	Recompute(ctx context.Context, eventID string) error
}

// SnapshotFeeder subscribes to the snapshots channel and recomputes the
// organizers of every event the aggregator reports as updated.
type SnapshotFeeder struct {
	bus        domain.SignalBus
	recomputer Recomputer
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewSnapshotFeeder creates a SnapshotFeeder.
func NewSnapshotFeeder(bus domain.SignalBus, recomputer Recomputer, m *metrics.Metrics, logger *slog.Logger) *SnapshotFeeder {
	return &SnapshotFeeder{
		bus:        bus,
		recomputer: recomputer,
		metrics:    m,
		logger:     logger.With(slog.String("component", "snapshot_feeder")),
	}
}

// Run consumes the snapshots channel until ctx is cancelled or the
// subscription closes.
func (f *SnapshotFeeder) Run(ctx context.Context) error {
	ch, err := f.bus.Subscribe(ctx, domain.ChannelSnapshots)
	if err != nil {
		return fmt.Errorf("feed: subscribe %s: %w", domain.ChannelSnapshots, err)
	}
	f.logger.Info("snapshot feeder started")
	defer f.logger.Info("snapshot feeder stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			result := "ok"
			if err := f.handleMessage(ctx, data); err != nil {
				result = "error"
				f.logger.Warn("snapshot feeder handle message failed",
					slog.String("error", err.Error()),
					slog.Int("payload_len", len(data)),
				)
			}
			f.metrics.BusMessage(domain.ChannelSnapshots, result)
		}
	}
}

func (f *SnapshotFeeder) handleMessage(ctx context.Context, data []byte) error {
	var ev domain.SnapshotUpdated
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("decode snapshot update: %w", err)
	}
	eventID := strings.TrimSpace(ev.EventID)
	if eventID == "" {
		return nil
	}
	err := f.recomputer.Recompute(ctx, eventID)
	if errors.Is(err, domain.ErrNotFound) {
		// The snapshot expired between the announcement and the read.
		f.logger.Debug("snapshot gone before recompute", slog.String("event_id", eventID))
		return nil
	}
	return err
}
