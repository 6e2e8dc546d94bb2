// Package ordering puts the outcomes of a single market into display order.
package ordering

import (
	"math"
	"sort"

	"github.com/alanyoungcy/marketgroups/internal/domain"
)

// unknownRank places codes the ranker does not know after every known code.
const unknownRank = math.MaxInt

// Ranker maps an outcome code (or order hint) to its display rank. Lower
// ranks sort first. ok is false for codes the ranker has never seen.
type Ranker interface {
	Rank(code string) (rank int, ok bool)
}

// RankerFunc adapts a plain function to Ranker.
type RankerFunc func(code string) (int, bool)

// Rank calls f(code).
func (f RankerFunc) Rank(code string) (int, bool) { return f(code) }

// Order returns a copy of outcomes sorted for display. When both outcomes of
// a pair carry an OrderValue their ranks are compared, otherwise the ranks of
// their CodeName are. Ties keep input order.
func Order(outcomes []domain.Outcome, ranker Ranker) []domain.Outcome {
	out := make([]domain.Outcome, len(outcomes))
	copy(out, outcomes)
	if len(out) < 2 {
		return out
	}

	rank := func(code string) int {
		if r, ok := ranker.Rank(code); ok {
			return r
		}
		return unknownRank
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.OrderValue != nil && b.OrderValue != nil {
			return rank(*a.OrderValue) < rank(*b.OrderValue)
		}
		return rank(a.CodeName) < rank(b.CodeName)
	})
	return out
}
