package grouping

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketgroups/internal/domain"
	"github.com/alanyoungcy/marketgroups/internal/ordering"
)

var testMatch = domain.MatchContext{HomeName: "Arsenal", AwayName: "Chelsea", SportID: "1"}

func mkOutcome(id, code, header string) domain.Outcome {
	return domain.Outcome{
		ID:             id,
		CodeName:       code,
		HeaderCodeName: header,
		BettingOffer:   domain.BettingOffer{ID: "bo-" + id, Value: 1.9, Available: true},
	}
}

func mkMarket(id, typeID, name string, outcomes ...domain.Outcome) domain.Market {
	return domain.Market{ID: id, MarketTypeID: typeID, Name: name, Outcomes: outcomes}
}

func overUnder(id, typeID, name string) domain.Market {
	return mkMarket(id, typeID, name,
		mkOutcome(id+"-u", "under", "under"),
		mkOutcome(id+"-o", "over", "over"),
	)
}

func newTestEngine(opts Options) *Engine {
	return NewEngine(ordering.NewCodeRanker(nil), nil, opts)
}

func organize(t *testing.T, markets []domain.Market, ungrouped MarketTypeSet) []domain.Organizer {
	t.Helper()
	return newTestEngine(Options{}).Organize("main", testMatch, markets, ungrouped)
}

func outcomeIDs(outcomes []domain.Outcome) []string {
	out := make([]string, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.ID
	}
	return out
}

func TestOrganize_SingleMarketTwoHeaders_ColumnListed(t *testing.T) {
	m := mkMarket("m1", "1", "Match Winner",
		mkOutcome("away", "2", "a"),
		mkOutcome("home", "1", "h"),
	)

	got := organize(t, []domain.Market{m}, nil)

	require.Len(t, got, 1)
	assert.Equal(t, domain.OrganizerColumnListed, got[0].Kind)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "Match Winner", got[0].Name)
	// Outcomes are reordered before bucketing, so "h" comes first.
	assert.Equal(t, []string{"h", "a"}, got[0].Buckets.Keys())
}

func TestOrganize_SingleMarketThreeWay_ColumnListedBeforeLines(t *testing.T) {
	m := mkMarket("m1", "1", "1X2",
		mkOutcome("home", "1", "h"),
		mkOutcome("draw", "X", "d"),
		mkOutcome("away", "2", "a"),
	)

	got := organize(t, []domain.Market{m}, nil)

	require.Len(t, got, 1)
	assert.Equal(t, domain.OrganizerColumnListed, got[0].Kind)
	assert.Equal(t, []string{"h", "d", "a"}, got[0].Buckets.Keys())
}

func TestOrganize_ThreeOverUnderLines_MarketLines(t *testing.T) {
	markets := []domain.Market{
		overUnder("ou15", "10", "Over/Under 1.5"),
		overUnder("ou25", "10", "Over/Under 2.5"),
		overUnder("ou35", "10", "Over/Under 3.5"),
	}

	got := organize(t, markets, nil)

	require.Len(t, got, 1)
	org := got[0]
	assert.Equal(t, domain.OrganizerMarketLines, org.Kind)
	assert.Equal(t, "ou15", org.ID)
	require.Len(t, org.Markets, 3)
	for _, m := range org.Markets {
		assert.Len(t, m.Outcomes, 2)
	}
	assert.Equal(t, []string{"over", "under"}, org.Buckets.Keys())
	over, _ := org.Buckets.Get("over")
	assert.Equal(t, []string{"ou15-o", "ou25-o", "ou35-o"}, outcomeIDs(over))
}

func TestOrganize_AmpersandName_SimpleListGroup(t *testing.T) {
	m := mkMarket("cs", "55", "Correct Score & Total Goals",
		mkOutcome("a", "1:0 & over", "h"),
		mkOutcome("b", "0:1 & under", "a"),
	)

	got := organize(t, []domain.Market{m}, nil)

	require.Len(t, got, 1)
	assert.Equal(t, domain.OrganizerSimpleList, got[0].Kind)
	assert.Equal(t, []string{"a", "b"}, outcomeIDs(got[0].Outcomes))
	assert.Len(t, got[0].Buckets, 2)
}

func TestOrganize_ExactHeader(t *testing.T) {
	t.Run("sole market, sole key is sequential", func(t *testing.T) {
		m := mkMarket("ex", "20", "Exact Goals",
			mkOutcome("g0", "0", "exact"),
			mkOutcome("g1", "1", "exact"),
			mkOutcome("g2", "2", "exact"),
			mkOutcome("g3", "3+", "exact"),
		)

		got := organize(t, []domain.Market{m}, nil)

		require.Len(t, got, 1)
		assert.Equal(t, domain.OrganizerSequential, got[0].Kind)
		require.NotNil(t, got[0].Market)
		assert.Equal(t, "ex", got[0].Market.ID)
		assert.Empty(t, got[0].Buckets)
	})

	t.Run("several markets with exact among keys are market columns", func(t *testing.T) {
		markets := []domain.Market{
			mkMarket("e1", "21", "Home Goals",
				mkOutcome("e1-0", "0", "exact"),
				mkOutcome("e1-r", "1-2", "range"),
			),
			mkMarket("e2", "21", "Home Goals",
				mkOutcome("e2-0", "0", "exact"),
				mkOutcome("e2-r", "3+", "range"),
			),
		}

		got := organize(t, markets, nil)

		require.Len(t, got, 1)
		assert.Equal(t, domain.OrganizerMarketColumns, got[0].Kind)
		assert.Len(t, got[0].Markets, 2)
		assert.Equal(t, []string{"exact", "range"}, got[0].Buckets.Keys())
	})
}

func TestOrganize_EmptyOrAllHeaderIsSequential(t *testing.T) {
	for _, header := range []string{"", "all"} {
		t.Run(fmt.Sprintf("header %q", header), func(t *testing.T) {
			markets := []domain.Market{
				mkMarket("p1", "30", "Player to Score", mkOutcome("x1", "p1", header)),
				mkMarket("p2", "30", "Player to Score", mkOutcome("x2", "p2", header)),
			}

			got := organize(t, markets, nil)

			require.Len(t, got, 1)
			assert.Equal(t, domain.OrganizerSequential, got[0].Kind)
			assert.Equal(t, "p1", got[0].Market.ID)
		})
	}
}

func TestOrganize_ColumnListedKeyPrefix(t *testing.T) {
	threeWay := func(id, typeID string) domain.Market {
		return mkMarket(id, typeID, "Team Totals",
			mkOutcome(id+"-h", "1", "h"),
			mkOutcome(id+"-d", "X", "d"),
			mkOutcome(id+"-a", "2", "a"),
		)
	}

	withPrefix := organize(t, []domain.Market{threeWay("t1", "3-163"), threeWay("t2", "3-163")}, nil)
	without := organize(t, []domain.Market{threeWay("t1", "4"), threeWay("t2", "4")}, nil)

	require.Len(t, withPrefix, 1)
	require.Len(t, without, 1)
	assert.Equal(t, domain.OrganizerColumnListed, withPrefix[0].Kind)
	assert.Equal(t, domain.OrganizerMarketLines, without[0].Kind)
}

func TestOrganize_CustomKeyPrefixes(t *testing.T) {
	e := newTestEngine(Options{ColumnListedKeyPrefixes: []string{"99-"}})
	markets := []domain.Market{overUnder("a", "99", "Totals"), overUnder("b", "99", "Totals")}

	got := e.Organize("main", testMatch, markets, nil)

	require.Len(t, got, 1)
	assert.Equal(t, domain.OrganizerColumnListed, got[0].Kind)
}

func TestOrganize_ManyHeaderTypes_UndefinedGroup(t *testing.T) {
	markets := []domain.Market{
		mkMarket("m1", "40", "Scorecast", mkOutcome("a", "k1", "k1"), mkOutcome("b", "k2", "k2")),
		mkMarket("m2", "40", "Scorecast", mkOutcome("c", "k3", "k3"), mkOutcome("d", "k4", "k4")),
	}

	got := organize(t, markets, nil)

	require.Len(t, got, 1)
	assert.Equal(t, domain.OrganizerUndefined, got[0].Kind)
	assert.Len(t, got[0].Buckets, 4)
}

func TestOrganize_FewHeadersManyOutcomes_UnorderedGroup(t *testing.T) {
	first := mkMarket("m1", "50", "Asian Lines",
		mkOutcome("a", "over", "over"),
		mkOutcome("b", "under", "under"),
		mkOutcome("c", "over", "over"),
		mkOutcome("d", "under", "under"),
	)
	second := overUnder("m2", "50", "Asian Lines")

	got := organize(t, []domain.Market{first, second}, nil)

	require.Len(t, got, 1)
	assert.Equal(t, domain.OrganizerUnordered, got[0].Kind)
}

func TestOrganize_FallbackColumnListed(t *testing.T) {
	markets := []domain.Market{
		mkMarket("m1", "60", "Home Clean Sheet", mkOutcome("a", "yes", "h")),
		mkMarket("m2", "60", "Home Clean Sheet", mkOutcome("b", "yes", "h")),
	}

	got := organize(t, markets, nil)

	require.Len(t, got, 1)
	assert.Equal(t, domain.OrganizerColumnListed, got[0].Kind)
	h, ok := got[0].Buckets.Get("h")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, outcomeIDs(h))
}

func TestOrganize_HomeDrawAwayCollapse(t *testing.T) {
	m := mkMarket("m1", "70", "Result & Both Teams Score",
		mkOutcome("o1", "1", "H"),
		mkOutcome("o2", "X", "D"),
		mkOutcome("o3", "2", "A"),
		mkOutcome("o4", "other", "x"),
	)

	got := organize(t, []domain.Market{m}, nil)

	require.Len(t, got, 1)
	assert.Equal(t, domain.OrganizerSimpleList, got[0].Kind)
	require.Len(t, got[0].Buckets, 1)
	assert.Equal(t, "all", got[0].Buckets[0].Key)
	assert.Equal(t, []string{"o1", "o2", "o3", "o4"}, outcomeIDs(got[0].Buckets[0].Outcomes))
}

func TestOrganize_CollapsedClusterWithoutAmpersandIsSequential(t *testing.T) {
	m := mkMarket("m1", "71", "Result Plus",
		mkOutcome("o1", "1", "h"),
		mkOutcome("o2", "X", "d"),
		mkOutcome("o3", "2", "a"),
		mkOutcome("o4", "other", "x"),
	)

	got := organize(t, []domain.Market{m}, nil)

	require.Len(t, got, 1)
	assert.Equal(t, domain.OrganizerSequential, got[0].Kind)
}

func TestOrganize_OrderPreservation(t *testing.T) {
	markets := []domain.Market{
		overUnder("a1", "A", "Totals"),
		mkMarket("b1", "B", "Winner", mkOutcome("h", "1", "h"), mkOutcome("a", "2", "a")),
		overUnder("a2", "A", "Totals"),
		mkMarket("c1", "C", "Double Chance", mkOutcome("x", "1x", "1x")),
	}

	got := organize(t, markets, nil)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"a1", "b1", "c1"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Len(t, got[0].Markets, 2)
}

func TestOrganize_UngroupedMarketTypesNeverMerge(t *testing.T) {
	markets := []domain.Market{
		overUnder("m1", "7", "Corners"),
		overUnder("m2", "7", "Corners"),
		overUnder("m3", "8", "Cards"),
		overUnder("m4", "8", "Cards"),
	}

	got := organize(t, markets, NewMarketTypeSet("7"))

	require.Len(t, got, 3)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "m2", got[1].ID)
	assert.Equal(t, "m3", got[2].ID)
	assert.Len(t, got[2].Markets, 2)
}

func TestClusterKey(t *testing.T) {
	ungrouped := NewMarketTypeSet("7")

	assert.Equal(t, "m1-Arsenal-Chelsea", clusterKey(mkMarket("m1", "7", "x"), testMatch, ungrouped))
	assert.Equal(t, "8-Arsenal-Chelsea", clusterKey(mkMarket("m2", "8", "x"), testMatch, ungrouped))
	assert.Equal(t, "000-Arsenal-Chelsea", clusterKey(mkMarket("m3", "", "x"), testMatch, ungrouped))
	assert.Equal(t, "000-Arsenal-Chelsea", clusterKey(mkMarket("m4", "", "x"), testMatch, NewMarketTypeSet("")))
}

func TestOrganize_HandicapNamesCollapse(t *testing.T) {
	markets := []domain.Market{
		mkMarket("h1", "90", "Handicap 2:1", mkOutcome("a", "1", "h"), mkOutcome("b", "2", "a")),
		mkMarket("h2", "90", "Handicap 0:3", mkOutcome("c", "1", "h"), mkOutcome("d", "2", "a")),
	}

	got := organize(t, markets, nil)

	require.Len(t, got, 1)
	assert.Equal(t, "Handicap", got[0].Name)
	assert.Equal(t, domain.OrganizerMarketLines, got[0].Kind)
}

func TestOrganize_NamePolicy(t *testing.T) {
	markets := []domain.Market{
		overUnder("m1", "5", "Total Goals"),
		overUnder("m2", "5", "Asian Handicap 1:0"),
	}

	last := newTestEngine(Options{}).Organize("main", testMatch, markets, nil)
	first := newTestEngine(Options{NamePolicy: NameFirst}).Organize("main", testMatch, markets, nil)

	assert.Equal(t, "Asian Handicap", last[0].Name)
	assert.Equal(t, "Total Goals", first[0].Name)
}

func TestOrganize_EmptyOutcomeMarketDegradesGracefully(t *testing.T) {
	markets := []domain.Market{
		mkMarket("empty", "1", "Suspended"),
		overUnder("ou", "2", "Totals"),
	}

	got := organize(t, markets, nil)

	require.Len(t, got, 2)
	assert.Equal(t, "empty", got[0].ID)
	assert.Equal(t, domain.OrganizerColumnListed, got[0].Kind)
	assert.Empty(t, got[0].Buckets)
}

func TestOrganize_NoMarkets(t *testing.T) {
	assert.Empty(t, organize(t, nil, nil))
}

func TestOrganize_Deterministic(t *testing.T) {
	markets := []domain.Market{
		overUnder("a1", "A", "Totals"),
		mkMarket("b1", "B", "Winner", mkOutcome("a", "2", "a"), mkOutcome("h", "1", "h")),
		overUnder("a2", "A", "Totals"),
		mkMarket("c1", "", "Misc", mkOutcome("x", "?", "k1"), mkOutcome("y", "?", "k2"),
			mkOutcome("z", "?", "k3"), mkOutcome("w", "?", "k4")),
	}
	e := newTestEngine(Options{})

	first := e.Organize("main", testMatch, markets, NewMarketTypeSet("B"))
	second := e.Organize("main", testMatch, markets, NewMarketTypeSet("B"))

	assert.Equal(t, first, second)
}

func TestOrganize_DoesNotMutateInput(t *testing.T) {
	m := mkMarket("m1", "1", "Winner", mkOutcome("a", "2", "a"), mkOutcome("h", "1", "h"))
	markets := []domain.Market{m}

	organize(t, markets, nil)

	assert.Equal(t, []string{"a", "h"}, outcomeIDs(markets[0].Outcomes))
}

func TestEngine_FirstMarketCache(t *testing.T) {
	e := newTestEngine(Options{})

	_, ok := e.FirstMarket()
	assert.False(t, ok)

	e.Organize("main", testMatch, []domain.Market{
		mkMarket("m1", "1", "Winner", mkOutcome("a", "2", "a"), mkOutcome("h", "1", "h")),
		overUnder("m2", "2", "Totals"),
	}, nil)
	e.Organize("main", testMatch, []domain.Market{overUnder("m3", "3", "Totals")}, nil)

	got, ok := e.FirstMarket()
	require.True(t, ok)
	assert.Equal(t, "m1", got.ID)
	assert.Equal(t, []string{"h", "a"}, outcomeIDs(got.Outcomes))

	e.FirstMarketCache().Reset()
	e.Organize("main", testMatch, []domain.Market{overUnder("m3", "3", "Totals")}, nil)

	got, ok = e.FirstMarket()
	require.True(t, ok)
	assert.Equal(t, "m3", got.ID)
}

func TestEngine_OrganizeIntoScopedCache(t *testing.T) {
	e := newTestEngine(Options{})
	ev1, ev2 := NewFirstMarketCache(), NewFirstMarketCache()

	e.OrganizeInto(ev1, "main", testMatch, []domain.Market{overUnder("m1", "1", "Totals")}, nil)
	e.OrganizeInto(ev2, "main", testMatch, []domain.Market{overUnder("x1", "1", "Totals")}, nil)
	e.OrganizeInto(nil, "main", testMatch, []domain.Market{overUnder("y1", "1", "Totals")}, nil)

	got, ok := ev1.Get()
	require.True(t, ok)
	assert.Equal(t, "m1", got.ID)

	got, ok = ev2.Get()
	require.True(t, ok)
	assert.Equal(t, "x1", got.ID)

	got, ok = e.FirstMarket()
	require.True(t, ok)
	assert.Equal(t, "m1", got.ID)
}

func TestEngine_FirstMarketCacheConcurrent(t *testing.T) {
	cache := NewFirstMarketCache()
	e := NewEngine(ordering.NewCodeRanker(nil), cache, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("m%d", i)
			e.Organize("main", testMatch, []domain.Market{overUnder(id, "1", "Totals")}, nil)
		}(i)
	}
	wg.Wait()

	got, ok := cache.Get()
	require.True(t, ok)
	assert.Regexp(t, `^m\d+$`, got.ID)
}

func TestEngine_InvalidNamePolicyDefaultsToLast(t *testing.T) {
	e := newTestEngine(Options{NamePolicy: "bogus"})
	markets := []domain.Market{overUnder("m1", "5", "Alpha"), overUnder("m2", "5", "Beta")}

	got := e.Organize("main", testMatch, markets, nil)

	assert.Equal(t, "Beta", got[0].Name)
}
