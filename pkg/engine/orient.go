package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harun/ingat/pkg/store"
)

const recentWindow = 7 * 24 * time.Hour

// starterOrientation seeds MEMORY.md the first time orient runs against an
// empty store.
const starterOrientation = `# Memory

This directory is a knowledge base maintained across working sessions.

Categories:
%s
Nothing has been recorded yet. Write facts as you learn how things work,
decisions as you make them, and regressions as you hit them.
`

// OrientResponse is the session-start overview.
type OrientResponse struct {
	Orientation    string                 `json:"orientation"`
	RecentSessions []SearchHit            `json:"recent_sessions,omitempty"`
	RecentEntries  []store.Entry          `json:"recent_entries,omitempty"`
	Counts         map[store.Category]int `json:"counts"`
	Guidance       string                 `json:"guidance,omitempty"`
}

// Orient returns the orientation document, recent session summaries, and
// entries touched in the last seven days. On an empty store it writes the
// starter orientation document and returns empty-state guidance.
func (e *Engine) Orient(ctx context.Context) (*OrientResponse, error) {
	e.tracker.RecordCall("orient")

	orientation, exists, err := e.store.Orientation()
	if err != nil {
		return nil, err
	}

	stats, err := e.store.Stats()
	if err != nil {
		return nil, err
	}

	resp := &OrientResponse{Counts: stats.PerCategory}

	if !exists {
		var cats strings.Builder
		for _, c := range store.Categories() {
			fmt.Fprintf(&cats, "- %s: %s\n", c, c.Description())
		}
		orientation = fmt.Sprintf(starterOrientation, cats.String())
		if err := e.store.WriteOrientation(orientation); err != nil {
			return nil, err
		}
	}
	resp.Orientation = orientation

	if stats.PerCategory[store.CategoryFacts] == 0 {
		resp.Guidance = "no facts recorded yet; write down how things work as you discover them"
	}

	sessions, err := e.store.Entries(store.CategorySessions)
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastModified.After(sessions[j].LastModified)
	})
	for i, s := range sessions {
		if i == 3 {
			break
		}
		content, err := e.store.Read(store.CategorySessions, s.Filename)
		if err != nil {
			continue
		}
		resp.RecentSessions = append(resp.RecentSessions, SearchHit{
			Category: store.CategorySessions,
			Filename: s.Filename,
			Title:    s.Title,
			Snippet:  snippet(content, snippetCompact),
		})
	}

	entries, err := e.store.CategoryEntries()
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-recentWindow)
	for _, entry := range entries {
		if entry.Category == store.CategorySessions {
			continue
		}
		if entry.LastModified.After(cutoff) {
			resp.RecentEntries = append(resp.RecentEntries, entry)
		}
	}
	sort.Slice(resp.RecentEntries, func(i, j int) bool {
		return resp.RecentEntries[i].LastModified.After(resp.RecentEntries[j].LastModified)
	})

	return resp, nil
}
