package grouping

import (
	"regexp"
	"strings"
)

var (
	scorePairRe  = regexp.MustCompile(`\d+:\d+`)
	whitespaceRe = regexp.MustCompile(`\s{2,}`)
)

// displayName derives a line-agnostic group label from a market name.
// Handicap markets lose their score pairs so "Handicap 2:1" and
// "Handicap 0:1" share the label "Handicap"; other names pass through.
func displayName(marketName string) string {
	if !strings.Contains(strings.ToLower(marketName), "handicap") {
		return marketName
	}
	name := scorePairRe.ReplaceAllString(marketName, "")
	name = whitespaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// NamePolicy decides which market names a cluster when its markets disagree.
type NamePolicy string

const (
	// NameLast takes the name of the last market seen for the cluster.
	NameLast NamePolicy = "last"
	// NameFirst takes the name of the first market seen for the cluster.
	NameFirst NamePolicy = "first"
)

// Valid reports whether p is a known policy.
func (p NamePolicy) Valid() bool {
	return p == NameLast || p == NameFirst
}
