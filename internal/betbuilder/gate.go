package betbuilder

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/marketgroups/internal/domain"
	"github.com/alanyoungcy/marketgroups/internal/metrics"
)

// Fetcher retrieves the grayout state for a selection list from the
// operator. requestID correlates the call in logs on both sides.
type Fetcher interface {
	FetchGrayouts(ctx context.Context, requestID string, selectionIDs []string) (domain.GrayoutsState, error)
}

// GateOptions tune a Gate.
type GateOptions struct {
	// Timeout bounds a single fetch. Zero means no timeout.
	Timeout time.Duration
	// OnChange is called with the new state after each accepted update.
	// Calls are serialized, and a state that has already been replaced
	// when its turn comes is skipped, so the last call always carries the
	// gate's current state.
	OnChange func(sessionID string, state domain.GrayoutsState)
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Gate tracks one bet-builder session. Each change of the selection list
// starts a fetch; a newer change cancels the fetch in flight and a stale
// result that still arrives is discarded. Failed fetches leave the previous
// state in place.
type Gate struct {
	sessionID string
	fetcher   Fetcher
	dedup     *SelectionDedup
	timeout   time.Duration
	onChange  func(string, domain.GrayoutsState)
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu     sync.Mutex
	state  domain.GrayoutsState
	ver    uint64 // bumped on every state replacement
	gen    uint64 // bumped on every accepted selection change
	retry  bool   // last fetch failed, a repeat of its list may refetch
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup

	notifyMu sync.Mutex
}

// NewGate creates a Gate in the default (nothing restricted) state.
func NewGate(sessionID string, fetcher Fetcher, opts GateOptions) *Gate {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		sessionID: sessionID,
		fetcher:   fetcher,
		dedup:     NewSelectionDedup(),
		timeout:   opts.Timeout,
		onChange:  opts.OnChange,
		metrics:   opts.Metrics,
		logger: logger.With(
			slog.String("component", "betbuilder_gate"),
			slog.String("session_id", sessionID),
		),
		state: domain.DefaultGrayouts(),
	}
}

// SessionID returns the session this gate belongs to.
func (g *Gate) SessionID() string { return g.sessionID }

// SelectionsChanged handles a selection-changed notification. A repeat of
// the previous ordered list is ignored unless the fetch for it failed. An
// empty list installs the default state directly. Any other change starts a
// fetch in the background and SelectionsChanged returns true. ctx supplies request-scoped values only;
// the fetch outlives it and is cancelled by a newer change or Close.
func (g *Gate) SelectionsChanged(ctx context.Context, selectionIDs []string) bool {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return false
	}
	if !g.dedup.Changed(selectionIDs) && !g.retry {
		g.mu.Unlock()
		g.metrics.GateDedupSkipped()
		return false
	}

	g.retry = false
	g.gen++
	gen := g.gen
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}

	if len(selectionIDs) == 0 {
		ver := g.replaceState(domain.DefaultGrayouts())
		g.wg.Add(1)
		g.mu.Unlock()
		g.logger.Debug("selections cleared")
		go func() {
			defer g.wg.Done()
			g.notify(ver)
		}()
		return false
	}

	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if g.timeout > 0 {
		var cancelTimeout context.CancelFunc
		fetchCtx, cancelTimeout = context.WithTimeout(fetchCtx, g.timeout)
		parent := cancel
		cancel = func() {
			cancelTimeout()
			parent()
		}
	}
	g.cancel = cancel
	g.wg.Add(1)
	g.mu.Unlock()

	go g.fetch(fetchCtx, cancel, gen, slices.Clone(selectionIDs))
	return true
}

func (g *Gate) fetch(ctx context.Context, cancel context.CancelFunc, gen uint64, selectionIDs []string) {
	defer g.wg.Done()
	defer cancel()

	requestID := uuid.NewString()
	start := time.Now()
	state, err := g.fetcher.FetchGrayouts(ctx, requestID, selectionIDs)
	elapsed := time.Since(start)

	g.mu.Lock()
	if gen != g.gen {
		g.mu.Unlock()
		g.metrics.ObserveGateFetch(metrics.FetchSuperseded, elapsed)
		g.logger.Debug("discarding superseded grayouts",
			slog.String("request_id", requestID),
		)
		return
	}
	g.cancel = nil
	if err != nil {
		g.retry = true
		g.mu.Unlock()
		g.metrics.ObserveGateFetch(metrics.FetchError, elapsed)
		if !errors.Is(err, context.Canceled) {
			g.logger.Warn("grayouts fetch failed, keeping previous state",
				slog.String("request_id", requestID),
				slog.Int("selections", len(selectionIDs)),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	if state.Blocked == nil {
		state.Blocked = map[string]domain.OutcomePointer{}
	}
	ver := g.replaceState(state)
	g.mu.Unlock()

	result := metrics.FetchOK
	if state.Unavailable() {
		result = metrics.FetchUnavailable
		g.logger.Info("bet builder reported unavailable",
			slog.String("request_id", requestID),
			slog.String("error_code", deref(state.ErrorCode)),
			slog.String("error_message", deref(state.ErrorMessage)),
		)
	}
	g.metrics.ObserveGateFetch(result, elapsed)
	g.logger.Debug("grayouts updated",
		slog.String("request_id", requestID),
		slog.Int("blocked", len(state.Blocked)),
		slog.Bool("cannot_combine", state.CannotCombineMoreSelections),
	)
	g.notify(ver)
}

// replaceState installs state and returns its version. g.mu must be held.
func (g *Gate) replaceState(state domain.GrayoutsState) uint64 {
	g.state = state
	g.ver++
	return g.ver
}

// notify hands the state of version ver to OnChange unless a newer state
// has replaced it, in which case the newer state's own notify publishes.
func (g *Gate) notify(ver uint64) {
	if g.onChange == nil {
		return
	}
	g.notifyMu.Lock()
	defer g.notifyMu.Unlock()

	g.mu.Lock()
	if ver != g.ver || g.closed {
		g.mu.Unlock()
		return
	}
	state := g.state.Clone()
	g.mu.Unlock()

	g.onChange(g.sessionID, state)
}

// State returns a copy of the current grayout state.
func (g *Gate) State() domain.GrayoutsState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Clone()
}

// ShouldGrayout reports whether outcomeID must be grayed out under the
// current state.
func (g *Gate) ShouldGrayout(outcomeID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.ShouldGrayout(outcomeID)
}

// Selections returns the last selection list the gate accepted.
func (g *Gate) Selections() []string {
	return g.dedup.Last()
}

// Close cancels any fetch in flight and waits for it to return. Later
// notifications are ignored.
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.gen++
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	g.mu.Unlock()
	g.wg.Wait()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
