package ordering

import (
	"math"
	"strconv"
	"strings"
)

// numericBase offsets ranks derived from numbered codes so they never
// collide with the fixed table.
const numericBase = 1_000

// defaultRanks is the built-in code table. Keys are lower case.
var defaultRanks = map[string]int{
	// home / draw / away
	"1":    10,
	"h":    10,
	"home": 10,
	"1x":   15,
	"x":    20,
	"d":    20,
	"draw": 20,
	"12":   25,
	"2":    30,
	"a":    30,
	"away": 30,
	"x2":   35,

	// totals
	"over":  100,
	"o":     100,
	"exact": 110,
	"under": 120,
	"u":     120,

	"yes":  200,
	"no":   210,
	"odd":  300,
	"even": 310,

	"home_over":  400,
	"home_under": 410,
	"draw_over":  420,
	"draw_under": 430,
	"away_over":  440,
	"away_under": 450,

	"other": 900,
}

// CodeRanker ranks outcome codes using a fixed table, with numbered codes
// ("2.5", "over_2.5", "3+") ordered by their number after the table.
type CodeRanker struct {
	ranks map[string]int
}

// NewCodeRanker builds a CodeRanker from the default table with overrides
// merged on top. Override keys are matched case-insensitively.
func NewCodeRanker(overrides map[string]int) *CodeRanker {
	ranks := make(map[string]int, len(defaultRanks)+len(overrides))
	for k, v := range defaultRanks {
		ranks[k] = v
	}
	for k, v := range overrides {
		ranks[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &CodeRanker{ranks: ranks}
}

// Rank implements Ranker.
func (r *CodeRanker) Rank(code string) (int, bool) {
	c := strings.ToLower(strings.TrimSpace(code))
	if rank, ok := r.ranks[c]; ok {
		return rank, true
	}

	prefix, num, ok := splitNumbered(c)
	if !ok {
		return 0, false
	}
	base := numericBase
	if prefix != "" {
		p, known := r.ranks[prefix]
		if !known {
			return 0, false
		}
		base += p * numericBase
	}
	// Lines go up in halves; scale so 0.5 and 1.0 stay distinct.
	return base + int(math.Round(num*100)), true
}

// splitNumbered splits "over_2.5" into ("over", 2.5) and "2.5" into ("", 2.5).
// A trailing "+" ("3+") is ignored.
func splitNumbered(code string) (string, float64, bool) {
	code = strings.TrimSuffix(code, "+")
	prefix := ""
	if i := strings.LastIndexAny(code, "_ "); i >= 0 {
		prefix, code = code[:i], code[i+1:]
	}
	num, err := strconv.ParseFloat(code, 64)
	if err != nil || num < 0 || math.IsNaN(num) || math.IsInf(num, 0) {
		return "", 0, false
	}
	return prefix, num, true
}
