package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/marketgroups/internal/domain"
	"github.com/alanyoungcy/marketgroups/internal/grouping"
	"github.com/alanyoungcy/marketgroups/internal/metrics"
)

const (
	defaultSettingsTTL = 30 * time.Second
	defaultLockTTL     = 10 * time.Second
)

// OrganizerServiceConfig configures an OrganizerService.
type OrganizerServiceConfig struct {
	// Operator selects the row in the operator settings store.
	Operator string
	// StaticUngrouped is used when the store is absent, has no row for
	// Operator, or fails.
	StaticUngrouped []string
	// SettingsTTL is how long settings read from the store are reused.
	SettingsTTL time.Duration
	// LockTTL bounds how long one replica holds the recompute lock of an
	// event.
	LockTTL time.Duration
}

// OrganizerService runs the grouping engine over event snapshots from the
// aggregator cache and publishes the results.
type OrganizerService struct {
	engine    *grouping.Engine
	snapshots domain.SnapshotCache
	settings  domain.OperatorSettingsStore
	bus       domain.SignalBus
	locks     domain.LockManager
	metrics   *metrics.Metrics
	cfg       OrganizerServiceConfig
	logger    *slog.Logger

	now func() time.Time

	mu        sync.Mutex
	ungrouped grouping.MarketTypeSet
	loadedAt  time.Time

	firstMu sync.Mutex
	first   map[string]*grouping.FirstMarketCache
}

// NewOrganizerService creates an OrganizerService. settings, bus, locks and
// m may be nil.
func NewOrganizerService(
	engine *grouping.Engine,
	snapshots domain.SnapshotCache,
	settings domain.OperatorSettingsStore,
	bus domain.SignalBus,
	locks domain.LockManager,
	m *metrics.Metrics,
	cfg OrganizerServiceConfig,
	logger *slog.Logger,
) *OrganizerService {
	if cfg.SettingsTTL <= 0 {
		cfg.SettingsTTL = defaultSettingsTTL
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	return &OrganizerService{
		engine:    engine,
		snapshots: snapshots,
		settings:  settings,
		bus:       bus,
		locks:     locks,
		metrics:   m,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "organizer_service")),
		now:       time.Now,
		first:     make(map[string]*grouping.FirstMarketCache),
	}
}

// Organize returns the organizers of one market group of an event. It
// returns domain.ErrNotFound if the event or the group is unknown.
func (s *OrganizerService) Organize(ctx context.Context, eventID, groupKey string) ([]domain.Organizer, error) {
	snap, err := s.snapshot(ctx, eventID)
	if err != nil {
		return nil, err
	}
	group, ok := snap.Group(groupKey)
	if !ok {
		return nil, fmt.Errorf("organizer_service: event %s group %s: %w", eventID, groupKey, domain.ErrNotFound)
	}
	return s.organizeGroup(ctx, snap, group), nil
}

// OrganizeAll returns the organizers of every market group of an event, in
// snapshot order.
func (s *OrganizerService) OrganizeAll(ctx context.Context, eventID string) ([]domain.GroupOrganizers, error) {
	snap, err := s.snapshot(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.GroupOrganizers, 0, len(snap.Groups))
	for _, g := range snap.Groups {
		out = append(out, domain.GroupOrganizers{
			GroupKey:   g.Key,
			Organizers: s.organizeGroup(ctx, snap, g),
		})
	}
	return out, nil
}

// Recompute organizes every group of an event and publishes the result on
// the event's organizers channel. When another replica holds the event's
// recompute lock the call is a no-op.
func (s *OrganizerService) Recompute(ctx context.Context, eventID string) error {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, domain.RecomputeLockKey(eventID), s.cfg.LockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			s.logger.DebugContext(ctx, "recompute already running elsewhere",
				slog.String("event_id", eventID),
			)
			return nil
		}
		if err != nil {
			return fmt.Errorf("organizer_service: lock %s: %w", eventID, err)
		}
		defer unlock()
	}

	groups, err := s.OrganizeAll(ctx, eventID)
	if err != nil {
		return err
	}
	if s.bus == nil {
		return nil
	}

	payload, err := json.Marshal(domain.OrganizersUpdate{
		EventID:    eventID,
		Groups:     groups,
		ComputedAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("organizer_service: marshal organizers %s: %w", eventID, err)
	}
	if err := s.bus.Publish(ctx, domain.OrganizersChannel(eventID), payload); err != nil {
		return fmt.Errorf("organizer_service: publish organizers %s: %w", eventID, err)
	}
	return nil
}

// Ingest stores a snapshot in the aggregator cache and announces it on the
// snapshots channel.
func (s *OrganizerService) Ingest(ctx context.Context, snap domain.EventSnapshot) error {
	if snap.EventID == "" {
		return fmt.Errorf("organizer_service: ingest: %w: empty event id", domain.ErrInvalidPayload)
	}
	if err := s.snapshots.Set(ctx, snap); err != nil {
		return fmt.Errorf("organizer_service: ingest %s: %w", snap.EventID, err)
	}
	if s.bus == nil {
		return nil
	}
	payload, err := json.Marshal(domain.SnapshotUpdated{EventID: snap.EventID})
	if err != nil {
		return fmt.Errorf("organizer_service: marshal snapshot update: %w", err)
	}
	if err := s.bus.Publish(ctx, domain.ChannelSnapshots, payload); err != nil {
		return fmt.Errorf("organizer_service: publish snapshot update %s: %w", snap.EventID, err)
	}
	return nil
}

// FirstMarket returns the first market organized for eventID by this
// process. It reports false until the event has been organized once.
func (s *OrganizerService) FirstMarket(eventID string) (domain.Market, bool) {
	s.firstMu.Lock()
	c, ok := s.first[eventID]
	s.firstMu.Unlock()
	if !ok {
		return domain.Market{}, false
	}
	return c.Get()
}

// forgetEvent drops the first-market cache of an event whose snapshot has
// left the aggregator cache.
func (s *OrganizerService) forgetEvent(eventID string) {
	s.firstMu.Lock()
	defer s.firstMu.Unlock()
	delete(s.first, eventID)
}

func (s *OrganizerService) firstMarketCache(eventID string) *grouping.FirstMarketCache {
	s.firstMu.Lock()
	defer s.firstMu.Unlock()
	c, ok := s.first[eventID]
	if !ok {
		c = grouping.NewFirstMarketCache()
		s.first[eventID] = c
	}
	return c
}

// InvalidateSettings drops the cached operator settings so the next run
// reads the store again.
func (s *OrganizerService) InvalidateSettings() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ungrouped = nil
	s.loadedAt = time.Time{}
}

func (s *OrganizerService) snapshot(ctx context.Context, eventID string) (domain.EventSnapshot, error) {
	snap, err := s.snapshots.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.forgetEvent(eventID)
		}
		s.metrics.OrganizeFailed()
		return domain.EventSnapshot{}, fmt.Errorf("organizer_service: load snapshot %s: %w", eventID, err)
	}
	return snap, nil
}

func (s *OrganizerService) organizeGroup(ctx context.Context, snap domain.EventSnapshot, g domain.MarketGroup) []domain.Organizer {
	start := time.Now()
	orgs := s.engine.OrganizeInto(s.firstMarketCache(snap.EventID), g.Key, snap.Match, g.Markets, s.ungroupedSet(ctx))
	s.metrics.ObserveOrganize(time.Since(start), orgs)
	return orgs
}

// ungroupedSet returns the never-auto-merge market types, preferring the
// operator settings store over the static configuration.
func (s *OrganizerService) ungroupedSet(ctx context.Context) grouping.MarketTypeSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ungrouped != nil && s.now().Sub(s.loadedAt) < s.cfg.SettingsTTL {
		return s.ungrouped
	}

	ids := s.cfg.StaticUngrouped
	if s.settings != nil {
		settings, err := s.settings.Get(ctx, s.cfg.Operator)
		switch {
		case err == nil:
			ids = settings.UngroupedMarketTypeIDs
		case errors.Is(err, domain.ErrNotFound):
		default:
			s.logger.WarnContext(ctx, "operator settings unavailable, using static set",
				slog.String("operator", s.cfg.Operator),
				slog.String("error", err.Error()),
			)
			// Retry on the next call rather than caching the fallback.
			return grouping.NewMarketTypeSet(ids...)
		}
	}

	s.ungrouped = grouping.NewMarketTypeSet(ids...)
	s.loadedAt = s.now()
	return s.ungrouped
}
