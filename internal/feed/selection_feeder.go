package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/marketgroups/internal/domain"
	"github.com/alanyoungcy/marketgroups/internal/metrics"
)

// SelectionHandler receives selection-changed notifications.
type SelectionHandler interface {
	SelectionsChanged(ctx context.Context, sessionID string, selectionIDs []string) bool
}

// SelectionFeeder subscribes to the bet-builder selections channel and
// forwards each notification to the session's gate.
type SelectionFeeder struct {
	bus     domain.SignalBus
	handler SelectionHandler
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewSelectionFeeder creates a SelectionFeeder.
func NewSelectionFeeder(bus domain.SignalBus, handler SelectionHandler, m *metrics.Metrics, logger *slog.Logger) *SelectionFeeder {
	return &SelectionFeeder{
		bus:     bus,
		handler: handler,
		metrics: m,
		logger:  logger.With(slog.String("component", "selection_feeder")),
	}
}

// Run consumes the selections channel until ctx is cancelled or the
// subscription closes.
func (f *SelectionFeeder) Run(ctx context.Context) error {
	ch, err := f.bus.Subscribe(ctx, domain.ChannelSelections)
	if err != nil {
		return fmt.Errorf("feed: subscribe %s: %w", domain.ChannelSelections, err)
	}
	f.logger.Info("selection feeder started")
	defer f.logger.Info("selection feeder stopped")

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
				f.logger.Debug("selection feeder handle message failed",
					slog.String("error", err.Error()),
					slog.Int("payload_len", len(data)),
				)
			}
			f.metrics.BusMessage(domain.ChannelSelections, result)
		}
	}
}

func (f *SelectionFeeder) handleMessage(ctx context.Context, data []byte) error {
	var ev domain.SelectionsChanged
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("decode selections: %w", err)
	}
	sessionID := strings.TrimSpace(ev.SessionID)
	if sessionID == "" {
		return fmt.Errorf("decode selections: %w: empty session id", domain.ErrInvalidPayload)
	}
	if f.handler.SelectionsChanged(ctx, sessionID, ev.Selections) {
		f.logger.Debug("grayouts fetch started",
			slog.String("session_id", sessionID),
			slog.Int("selections", len(ev.Selections)),
		)
	}
	return nil
}
