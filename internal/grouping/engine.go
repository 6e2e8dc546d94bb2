// Package grouping clusters the markets of an event into display groups and
// picks the organizer shape each group is rendered with.
package grouping

import (
	"log/slog"
	"strings"

	"github.com/alanyoungcy/marketgroups/internal/domain"
	"github.com/alanyoungcy/marketgroups/internal/ordering"
)

// missingMarketTypeID stands in for markets the feed sent without a type.
const missingMarketTypeID = "000"

// DefaultColumnListedKeyPrefixes are cluster-key prefixes that are always
// rendered as a column grid (an over/under ladder split by team and draw).
var DefaultColumnListedKeyPrefixes = []string{"3-163"}

// MarketTypeSet is a set of market type ids.
type MarketTypeSet map[string]struct{}

// NewMarketTypeSet builds a set from ids.
func NewMarketTypeSet(ids ...string) MarketTypeSet {
	s := make(MarketTypeSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s MarketTypeSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Options tune an Engine. The zero value behaves like the defaults.
type Options struct {
	NamePolicy              NamePolicy
	ColumnListedKeyPrefixes []string
	Logger                  *slog.Logger
}

// Engine turns a flat list of markets into an ordered list of organizers.
// Organize is pure apart from the first-market cache and is safe to call
// from multiple goroutines as long as inputs are not mutated concurrently.
type Engine struct {
	ranker   ordering.Ranker
	first    *FirstMarketCache
	policy   NamePolicy
	prefixes []string
	logger   *slog.Logger
}

// NewEngine creates an Engine. first may be shared between engines; a nil
// cache gets a private one.
func NewEngine(ranker ordering.Ranker, first *FirstMarketCache, opts Options) *Engine {
	if first == nil {
		first = NewFirstMarketCache()
	}
	policy := opts.NamePolicy
	if !policy.Valid() {
		policy = NameLast
	}
	prefixes := opts.ColumnListedKeyPrefixes
	if prefixes == nil {
		prefixes = DefaultColumnListedKeyPrefixes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		ranker:   ranker,
		first:    first,
		policy:   policy,
		prefixes: prefixes,
		logger:   logger.With(slog.String("component", "grouping")),
	}
}

// FirstMarket returns the first market this engine's cache captured.
func (e *Engine) FirstMarket() (domain.Market, bool) {
	return e.first.Get()
}

// FirstMarketCache exposes the engine's cache, e.g. for Reset.
func (e *Engine) FirstMarketCache() *FirstMarketCache {
	return e.first
}

// cluster is the set of markets that share one cluster key.
type cluster struct {
	key     string
	name    string
	markets []domain.Market
}

// Organize clusters markets and returns one organizer per cluster, in the
// order each cluster key first appears in markets. Markets whose type id is
// in ungrouped never merge with other markets. groupKey names the market
// tab being organized and is only used for logging.
func (e *Engine) Organize(groupKey string, match domain.MatchContext, markets []domain.Market, ungrouped MarketTypeSet) []domain.Organizer {
	return e.OrganizeInto(nil, groupKey, match, markets, ungrouped)
}

// OrganizeInto is Organize that also offers every canonicalized market to
// first, a cache scoped by the caller (typically one per event). first may
// be nil.
func (e *Engine) OrganizeInto(first *FirstMarketCache, groupKey string, match domain.MatchContext, markets []domain.Market, ungrouped MarketTypeSet) []domain.Organizer {
	clusters := e.clusterMarkets(match, markets, ungrouped, first)

	organizers := make([]domain.Organizer, 0, len(clusters))
	for _, c := range clusters {
		org := e.organize(c)
		e.logger.Debug("organized cluster",
			slog.String("group", groupKey),
			slog.String("cluster", c.key),
			slog.String("kind", string(org.Kind)),
			slog.Int("markets", len(c.markets)),
		)
		organizers = append(organizers, org)
	}
	return organizers
}

// clusterMarkets canonicalizes every market and files it under its cluster
// key. Clusters come back in first-seen key order.
func (e *Engine) clusterMarkets(match domain.MatchContext, markets []domain.Market, ungrouped MarketTypeSet, scoped *FirstMarketCache) []*cluster {
	var ordered []*cluster
	byKey := make(map[string]*cluster)

	for _, m := range markets {
		m.Outcomes = ordering.Order(m.Outcomes, e.ranker)
		key := clusterKey(m, match, ungrouped)

		c, ok := byKey[key]
		if !ok {
			c = &cluster{key: key}
			byKey[key] = c
			ordered = append(ordered, c)
		}
		c.markets = append(c.markets, m)

		if e.policy == NameLast || len(c.markets) == 1 {
			c.name = displayName(m.Name)
		}

		e.first.offer(m)
		if scoped != nil {
			scoped.offer(m)
		}
	}
	return ordered
}

func clusterKey(m domain.Market, match domain.MatchContext, ungrouped MarketTypeSet) string {
	anchor := m.MarketTypeID
	switch {
	case anchor != "" && ungrouped.Has(anchor):
		anchor = m.ID
	case anchor == "":
		anchor = missingMarketTypeID
	}
	return anchor + "-" + match.HomeName + "-" + match.AwayName
}

// organize picks the organizer for one cluster. Rules are evaluated in
// order and the first match wins.
func (e *Engine) organize(c *cluster) domain.Organizer {
	first := c.markets[0]
	id, name := first.ID, c.name

	var all []domain.Outcome
	for _, m := range c.markets {
		all = append(all, m.Outcomes...)
	}

	buckets := bucketOutcomes(all)
	if buckets.shouldCollapse() {
		buckets = collapsed(all)
	}
	keys := buckets.len()

	switch {
	case strings.Contains(name, "&"):
		return domain.NewSimpleListGroup(id, name, buckets.buckets, all)
	case isSequentialKey(buckets):
		return domain.NewSequential(id, name, first)
	case len(c.markets) == 1 && keys <= 3:
		return domain.NewColumnListed(id, name, buckets.buckets)
	case buckets.hasAny("exact", "range", "more_than"):
		return domain.NewMarketColumns(id, name, c.markets, buckets.buckets)
	case e.hasColumnListedPrefix(c.key):
		return domain.NewColumnListed(id, name, buckets.buckets)
	case len(first.Outcomes) <= 3 && (keys == 2 || keys == 3):
		return domain.NewMarketLines(id, name, c.markets, buckets.buckets)
	case keys > 3:
		return domain.NewUndefinedGroup(id, name, buckets.buckets)
	case len(first.Outcomes) > 3:
		return domain.NewUnorderedGroup(id, name, buckets.buckets)
	default:
		return domain.NewColumnListed(id, name, buckets.buckets)
	}
}

func isSequentialKey(bs *bucketSet) bool {
	key, ok := bs.onlyKey()
	if !ok {
		return false
	}
	return key == "" || key == "exact" || key == allHeaderKey
}

func (e *Engine) hasColumnListedPrefix(key string) bool {
	for _, p := range e.prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}
