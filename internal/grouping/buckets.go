package grouping

import (
	"strings"

	"github.com/alanyoungcy/marketgroups/internal/domain"
)

// allHeaderKey is the single bucket a cluster collapses into when it has too
// many header types to render as columns.
const allHeaderKey = "all"

// bucketSet files outcomes by header code while remembering the order in
// which each header was first seen.
type bucketSet struct {
	buckets domain.OutcomeBuckets
	index   map[string]int
}

func newBucketSet() *bucketSet {
	return &bucketSet{index: make(map[string]int)}
}

func bucketOutcomes(outcomes []domain.Outcome) *bucketSet {
	bs := newBucketSet()
	for _, o := range outcomes {
		bs.add(o)
	}
	return bs
}

func (bs *bucketSet) add(o domain.Outcome) {
	i, ok := bs.index[o.HeaderCodeName]
	if !ok {
		i = len(bs.buckets)
		bs.index[o.HeaderCodeName] = i
		bs.buckets = append(bs.buckets, domain.HeaderBucket{Key: o.HeaderCodeName})
	}
	bs.buckets[i].Outcomes = append(bs.buckets[i].Outcomes, o)
}

func (bs *bucketSet) len() int { return len(bs.buckets) }

func (bs *bucketSet) has(key string) bool {
	_, ok := bs.index[key]
	return ok
}

func (bs *bucketSet) hasAny(keys ...string) bool {
	for _, k := range keys {
		if bs.has(k) {
			return true
		}
	}
	return false
}

// onlyKey returns the sole header key when there is exactly one.
func (bs *bucketSet) onlyKey() (string, bool) {
	if len(bs.buckets) != 1 {
		return "", false
	}
	return bs.buckets[0].Key, true
}

// shouldCollapse reports whether there are more than three header keys and
// they include home, draw and away (compared case-insensitively).
func (bs *bucketSet) shouldCollapse() bool {
	if len(bs.buckets) <= 3 {
		return false
	}
	var home, draw, away bool
	for _, b := range bs.buckets {
		switch strings.ToLower(b.Key) {
		case "h":
			home = true
		case "d":
			draw = true
		case "a":
			away = true
		}
	}
	return home && draw && away
}

// collapsed returns a set holding every outcome under allHeaderKey, in
// flattened order.
func collapsed(outcomes []domain.Outcome) *bucketSet {
	all := make([]domain.Outcome, len(outcomes))
	copy(all, outcomes)
	return &bucketSet{
		buckets: domain.OutcomeBuckets{{Key: allHeaderKey, Outcomes: all}},
		index:   map[string]int{allHeaderKey: 0},
	}
}
