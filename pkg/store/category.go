package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCategory is returned when a caller names a category outside the
// closed set. It is raised before any side effect.
var ErrInvalidCategory = errors.New("invalid category")

// Category partitions knowledge entries by type. The set is closed: adding or
// removing a category must touch every switch over it.
type Category string

const (
	// CategoryFacts holds how-things-work knowledge about the codebase.
	CategoryFacts Category = "facts"
	// CategoryDecisions holds historical decisions and their rationale.
	CategoryDecisions Category = "decisions"
	// CategoryRegressions holds known bugs and regressions.
	CategoryRegressions Category = "regressions"
	// CategoryPreferences holds raw style and developer preferences.
	CategoryPreferences Category = "preferences"
	// CategorySessions holds auto-captured session notes.
	CategorySessions Category = "sessions"
	// CategoryChangelog holds the time-derived changelog.
	CategoryChangelog Category = "changelog"
)

// Categories returns every category in stable order.
func Categories() []Category {
	return []Category{
		CategoryFacts,
		CategoryDecisions,
		CategoryRegressions,
		CategoryPreferences,
		CategorySessions,
		CategoryChangelog,
	}
}

// ParseCategory validates a raw category string against the closed set.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q (expected one of: %s)", ErrInvalidCategory, raw, categoryList())
	}
	return c, nil
}

// Valid reports whether c belongs to the closed set.
func (c Category) Valid() bool {
	switch c {
	case CategoryFacts, CategoryDecisions, CategoryRegressions,
		CategoryPreferences, CategorySessions, CategoryChangelog:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// Description returns a one-line summary used by listings and orientation.
func (c Category) Description() string {
	switch c {
	case CategoryFacts:
		return "how things work"
	case CategoryDecisions:
		return "decisions and their rationale"
	case CategoryRegressions:
		return "known bugs and regressions"
	case CategoryPreferences:
		return "style and developer preferences"
	case CategorySessions:
		return "auto-captured session notes"
	case CategoryChangelog:
		return "time-derived changelog"
	}
	return ""
}

func categoryList() string {
	names := make([]string, 0, len(Categories()))
	for _, c := range Categories() {
		names = append(names, c.String())
	}
	return strings.Join(names, ", ")
}
