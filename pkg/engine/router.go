package engine

import (
	"strings"

	"github.com/harun/ingat/pkg/store"
)

// Signal-term tiers for category routing, strongest first: decision terms
// outrank bug terms, which outrank style terms, which outrank
// recency/session terms, which outrank architecture terms.
var routingTiers = []struct {
	category store.Category
	terms    []string
}{
	{store.CategoryDecisions, []string{
		"why did we", "why we", "decision", "decide", "decided",
		"chose", "choose", "chosen", "rationale", "tradeoff", "trade-off",
		"instead of", "alternative",
	}},
	{store.CategoryRegressions, []string{
		"bug", "regression", "broken", "breaks", "crash", "fails",
		"failing", "failure", "error", "fixed", "workaround",
	}},
	{store.CategoryPreferences, []string{
		"style", "convention", "prefer", "preference", "formatting",
		"naming", "lint", "idiom",
	}},
	{store.CategorySessions, []string{
		"recent", "recently", "yesterday", "last session", "last time",
		"session", "what happened", "changelog",
	}},
	{store.CategoryFacts, []string{
		"architecture", "how does", "how do", "how it works", "structure",
		"design", "component", "layer", "flow",
	}},
}

// RouteQuery classifies free text into one category via the ordered
// heuristics. The boolean is false when no tier matches, meaning "search
// all categories". No model call involved.
func RouteQuery(query string) (store.Category, bool) {
	q := strings.ToLower(query)
	for _, tier := range routingTiers {
		for _, term := range tier.terms {
			if strings.Contains(q, term) {
				return tier.category, true
			}
		}
	}
	return "", false
}
