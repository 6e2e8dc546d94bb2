package domain

// OrganizerKind tags the display shape chosen for a cluster of markets.
type OrganizerKind string

const (
	OrganizerSimpleList    OrganizerKind = "simple_list_group"
	OrganizerSequential    OrganizerKind = "sequential"
	OrganizerColumnListed  OrganizerKind = "column_listed"
	OrganizerMarketColumns OrganizerKind = "market_columns"
	OrganizerMarketLines   OrganizerKind = "market_lines"
	OrganizerUndefined     OrganizerKind = "undefined_group"
	OrganizerUnordered     OrganizerKind = "unordered_group"
)

// OrganizerKinds lists every kind, in declaration order.
var OrganizerKinds = []OrganizerKind{
	OrganizerSimpleList,
	OrganizerSequential,
	OrganizerColumnListed,
	OrganizerMarketColumns,
	OrganizerMarketLines,
	OrganizerUndefined,
	OrganizerUnordered,
}

// HeaderBucket holds the outcomes that share one header code, in the order
// they were flattened from the cluster's markets.
type HeaderBucket struct {
	Key      string    `json:"key"`
	Outcomes []Outcome `json:"outcomes"`
}

// OutcomeBuckets is an insertion-ordered list of header buckets. Keys are
// unique.
type OutcomeBuckets []HeaderBucket

// Keys returns the header keys in bucket order.
func (b OutcomeBuckets) Keys() []string {
	keys := make([]string, len(b))
	for i, bucket := range b {
		keys[i] = bucket.Key
	}
	return keys
}

// Get returns the outcomes filed under key.
func (b OutcomeBuckets) Get(key string) ([]Outcome, bool) {
	for _, bucket := range b {
		if bucket.Key == key {
			return bucket.Outcomes, true
		}
	}
	return nil, false
}

// Organizer describes how one cluster of markets is rendered. It is a closed
// tagged union: Kind decides which payload fields are set.
//
//	SimpleListGroup  Buckets, Outcomes
//	Sequential       Market
//	ColumnListed     Buckets
//	MarketColumns    Markets, Buckets
//	MarketLines      Markets, Buckets
//	UndefinedGroup   Buckets
//	UnorderedGroup   Buckets
//
// ID is always the id of the first market in the cluster.
type Organizer struct {
	Kind     OrganizerKind  `json:"kind"`
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Buckets  OutcomeBuckets `json:"buckets,omitempty"`
	Outcomes []Outcome      `json:"outcomes,omitempty"`
	Market   *Market        `json:"market,omitempty"`
	Markets  []Market       `json:"markets,omitempty"`
}

// NewSimpleListGroup builds a free-form list organizer.
func NewSimpleListGroup(id, name string, buckets OutcomeBuckets, outcomes []Outcome) Organizer {
	return Organizer{Kind: OrganizerSimpleList, ID: id, Name: name, Buckets: buckets, Outcomes: outcomes}
}

// NewSequential builds an organizer that renders one market flat.
func NewSequential(id, name string, market Market) Organizer {
	return Organizer{Kind: OrganizerSequential, ID: id, Name: name, Market: &market}
}

// NewColumnListed builds a fixed 1-3 column grid organizer.
func NewColumnListed(id, name string, buckets OutcomeBuckets) Organizer {
	return Organizer{Kind: OrganizerColumnListed, ID: id, Name: name, Buckets: buckets}
}

// NewMarketColumns builds an organizer where each market is its own column.
func NewMarketColumns(id, name string, markets []Market, buckets OutcomeBuckets) Organizer {
	return Organizer{Kind: OrganizerMarketColumns, ID: id, Name: name, Markets: markets, Buckets: buckets}
}

// NewMarketLines builds an organizer where each market is one row.
func NewMarketLines(id, name string, markets []Market, buckets OutcomeBuckets) Organizer {
	return Organizer{Kind: OrganizerMarketLines, ID: id, Name: name, Markets: markets, Buckets: buckets}
}

// NewUndefinedGroup builds an organizer for clusters with many header types.
func NewUndefinedGroup(id, name string, buckets OutcomeBuckets) Organizer {
	return Organizer{Kind: OrganizerUndefined, ID: id, Name: name, Buckets: buckets}
}

// NewUnorderedGroup builds an organizer for few header types with many
// outcomes per market.
func NewUnorderedGroup(id, name string, buckets OutcomeBuckets) Organizer {
	return Organizer{Kind: OrganizerUnordered, ID: id, Name: name, Buckets: buckets}
}
