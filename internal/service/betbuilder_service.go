package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/alanyoungcy/marketgroups/internal/betbuilder"
	"github.com/alanyoungcy/marketgroups/internal/domain"
	"github.com/alanyoungcy/marketgroups/internal/metrics"
)

// publishTimeout bounds a grayouts publish triggered by a gate update.
const publishTimeout = 5 * time.Second

// BetBuilderService keeps one combinability gate per session and publishes
// every accepted grayout state on the session's grayouts channel.
type BetBuilderService struct {
	gates  *betbuilder.GateSet
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewBetBuilderService creates a BetBuilderService. bus and m may be nil.
func NewBetBuilderService(
	fetcher betbuilder.Fetcher,
	bus domain.SignalBus,
	m *metrics.Metrics,
	fetchTimeout time.Duration,
	logger *slog.Logger,
) *BetBuilderService {
	s := &BetBuilderService{
		bus:    bus,
		logger: logger.With(slog.String("component", "betbuilder_service")),
	}
	s.gates = betbuilder.NewGateSet(fetcher, betbuilder.GateOptions{
		Timeout:  fetchTimeout,
		OnChange: s.publish,
		Metrics:  m,
		Logger:   logger,
	})
	return s
}

// SelectionsChanged forwards a selection notification to the session's
// gate and reports whether it started a fetch.
func (s *BetBuilderService) SelectionsChanged(ctx context.Context, sessionID string, selectionIDs []string) bool {
	g := s.gates.Get(sessionID)
	if g == nil {
		return false
	}
	return g.SelectionsChanged(ctx, selectionIDs)
}

// Grayouts returns the current state of a session. Unknown sessions get the
// default state.
func (s *BetBuilderService) Grayouts(sessionID string) domain.GrayoutsState {
	g, ok := s.gates.Lookup(sessionID)
	if !ok {
		return domain.DefaultGrayouts()
	}
	return g.State()
}

// ShouldGrayout reports whether outcomeID is grayed out for the session.
func (s *BetBuilderService) ShouldGrayout(sessionID, outcomeID string) bool {
	return s.Grayouts(sessionID).ShouldGrayout(outcomeID)
}

// EndSession drops the session's gate.
func (s *BetBuilderService) EndSession(sessionID string) {
	s.gates.Remove(sessionID)
}

// Sessions returns the number of live sessions.
func (s *BetBuilderService) Sessions() int {
	return s.gates.Len()
}

// RunSweeper ends sessions idle for longer than idle, checking every
// interval, until ctx is cancelled.
func (s *BetBuilderService) RunSweeper(ctx context.Context, interval, idle time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "session sweeper started",
		slog.Duration("interval", interval),
		slog.Duration("idle_ttl", idle),
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if ids := s.gates.Sweep(idle); len(ids) > 0 {
				s.logger.InfoContext(ctx, "ended idle bet-builder sessions",
					slog.Int("count", len(ids)),
					slog.Int("remaining", s.gates.Len()),
				)
			}
		}
	}
}

// Close cancels all in-flight fetches.
func (s *BetBuilderService) Close() error {
	s.gates.Close()
	return nil
}

func (s *BetBuilderService) publish(sessionID string, state domain.GrayoutsState) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(domain.GrayoutsUpdate{
		SessionID:   sessionID,
		State:       state,
		Unavailable: state.Unavailable(),
	})
	if err != nil {
		s.logger.Error("marshal grayouts update failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.bus.Publish(ctx, domain.GrayoutsChannel(sessionID), payload); err != nil {
		s.logger.Warn("publish grayouts failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
}
