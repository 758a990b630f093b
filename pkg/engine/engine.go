package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/ingat/pkg/index"
	"github.com/harun/ingat/pkg/session"
	"github.com/harun/ingat/pkg/store"
)

// Sentinel errors re-exported for callers that only import the engine.
var (
	ErrInvalidCategory = store.ErrInvalidCategory
	ErrNotFound        = store.ErrNotFound
)

// Snippet lengths for the two detail levels.
const (
	snippetCompact = 150
	snippetFull    = 800
)

// defaultPurgeThreshold is the fraction of the top observed score above
// which an existing entry counts as a likely duplicate. Heuristic, tuned
// empirically; configurable because score magnitude varies by ranking mode.
const defaultPurgeThreshold = 0.75

// Config holds engine configuration.
type Config struct {
	Store   *store.Store
	Index   *index.Index
	Tracker *session.Tracker
	Logger  zerolog.Logger

	// PurgeThreshold overrides defaultPurgeThreshold when > 0.
	PurgeThreshold float64

	// DefaultLimit caps search results when the request carries no limit.
	// Zero means 10.
	DefaultLimit int
}

// Engine coordinates the store, the index, and the session tracker. The
// host invokes its operations sequentially.
type Engine struct {
	store          *store.Store
	index          *index.Index
	tracker        *session.Tracker
	logger         zerolog.Logger
	purgeThreshold float64
	defaultLimit   int
}

// New wires an engine. Store, Index, and Tracker are required.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("document store is required")
	}
	if cfg.Index == nil {
		return nil, errors.New("search index is required")
	}
	if cfg.Tracker == nil {
		return nil, errors.New("session tracker is required")
	}

	threshold := cfg.PurgeThreshold
	if threshold <= 0 {
		threshold = defaultPurgeThreshold
	}
	limit := cfg.DefaultLimit
	if limit <= 0 {
		limit = 10
	}

	return &Engine{
		store:          cfg.Store,
		index:          cfg.Index,
		tracker:        cfg.Tracker,
		logger:         cfg.Logger,
		purgeThreshold: threshold,
		defaultLimit:   limit,
	}, nil
}

// SearchRequest asks for ranked entries. Category may be empty; the engine
// then auto-routes the query. Detail is "compact" (default) or "full".
type SearchRequest struct {
	Query    string `json:"query"`
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// SearchHit is one ranked entry with a truncated snippet.
type SearchHit struct {
	Category store.Category `json:"category"`
	Filename string         `json:"filename"`
	Title    string         `json:"title"`
	Snippet  string         `json:"snippet"`
	Score    float64        `json:"score"`
}

// SearchResponse carries ranked hits plus routing metadata.
type SearchResponse struct {
	Hits       []SearchHit    `json:"hits"`
	Routed     store.Category `json:"routed_category,omitempty"`
	Unfiltered bool           `json:"unfiltered_retry,omitempty"`
	Guidance   string         `json:"guidance,omitempty"`
}

// Search ranks entries against the query. Empty or whitespace queries are a
// normal negative: empty hits with guidance, no error.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	e.tracker.RecordSearch(req.Query)

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return &SearchResponse{
			Hits:     []SearchHit{},
			Guidance: "empty query; try a few words describing what you are looking for",
		}, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = e.defaultLimit
	}

	var category store.Category
	routed := false
	if req.Category != "" {
		c, err := store.ParseCategory(req.Category)
		if err != nil {
			return nil, err
		}
		category = c
	} else if c, ok := RouteQuery(query); ok {
		category = c
		routed = true
	}

	results, err := e.index.Search(ctx, query, category, limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	resp := &SearchResponse{}
	if routed {
		resp.Routed = category
	}

	// A wrong routing guess must never suppress a match an unfiltered
	// search would find: retry once across all categories.
	if len(results) == 0 && routed {
		results, err = e.index.Search(ctx, query, "", limit)
		if err != nil {
			return nil, fmt.Errorf("unfiltered retry failed: %w", err)
		}
		resp.Unfiltered = true
	}

	resp.Hits = e.toHits(results, req.Detail)
	if len(resp.Hits) == 0 {
		scope := "all categories"
		if category != "" && !resp.Unfiltered {
			scope = "category " + category.String()
		}
		resp.Guidance = fmt.Sprintf("no matches for %q in %s; try broader terms or list a category to browse", query, scope)
	}
	return resp, nil
}

func (e *Engine) toHits(results []index.Result, detail string) []SearchHit {
	max := snippetCompact
	if detail == "full" {
		max = snippetFull
	}

	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, SearchHit{
			Category: r.Category,
			Filename: r.Filename,
			Title:    r.Title,
			Snippet:  snippet(r.Content, max),
			Score:    r.Score,
		})
	}
	return hits
}

func snippet(content string, max int) string {
	s := strings.Join(strings.Fields(content), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// WriteRequest stores content at (category, name).
type WriteRequest struct {
	Category   string `json:"category"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	Append     bool   `json:"append,omitempty"`
	Supersedes string `json:"supersedes,omitempty"`
}

// DuplicateWarning flags an existing entry the new write likely obsoletes.
// Advisory only; nothing is deleted.
type DuplicateWarning struct {
	Category store.Category `json:"category"`
	Filename string         `json:"filename"`
	Title    string         `json:"title"`
	Score    float64        `json:"score"`
}

// WriteResponse reports the stored path plus curation outcomes.
type WriteResponse struct {
	Path              string             `json:"path"`
	SupersededFound   *bool              `json:"superseded_found,omitempty"`
	DuplicateWarnings []DuplicateWarning `json:"duplicate_warnings,omitempty"`
}

// Write validates, stores, and indexes an entry, then runs the curation
// heuristics. The index update completes before Write returns.
func (e *Engine) Write(ctx context.Context, req WriteRequest) (*WriteResponse, error) {
	category, err := store.ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	resp := &WriteResponse{}

	// An explicit supersedes reference deletes that entry unconditionally.
	if req.Supersedes != "" {
		found, err := e.store.Delete(category, req.Supersedes)
		if err != nil {
			return nil, fmt.Errorf("failed to delete superseded entry: %w", err)
		}
		if found {
			if err := e.index.RemoveEntry(category, store.SanitizeName(req.Supersedes)); err != nil {
				return nil, fmt.Errorf("failed to unindex superseded entry: %w", err)
			}
		}
		resp.SupersededFound = &found
	}

	var path string
	if req.Append {
		path, err = e.store.Append(category, req.Name, req.Content)
	} else {
		path, err = e.store.Write(category, req.Name, req.Content)
	}
	if err != nil {
		return nil, err
	}
	resp.Path = path
	e.tracker.RecordWrite(path)

	filename := store.SanitizeName(req.Name)
	content, err := e.store.Read(category, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read back %s: %w", path, err)
	}

	title := store.TitleFromContent(content)
	if title == "" {
		title = store.TitleFromFilename(filename)
	}
	rec := index.Record{Category: category, Filename: filename, Title: title, Content: content}
	if err := e.index.IndexEntry(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", path, err)
	}

	if !req.Append {
		warnings, err := e.detectDuplicates(ctx, category, filename)
		if err != nil {
			// Advisory heuristic only; the write already succeeded.
			e.logger.Warn().Err(err).Str("path", path).Msg("Duplicate detection failed")
		} else {
			resp.DuplicateWarnings = warnings
		}
	}

	return resp, nil
}

// DeleteRequest removes one entry.
type DeleteRequest struct {
	Category string `json:"category"`
	Name     string `json:"name"`
}

// DeleteResponse reports whether the entry existed.
type DeleteResponse struct {
	Found    bool   `json:"found"`
	Guidance string `json:"guidance,omitempty"`
}

// Delete removes an entry from the store and, when it existed, from the
// index. A miss is a normal negative result.
func (e *Engine) Delete(ctx context.Context, req DeleteRequest) (*DeleteResponse, error) {
	category, err := store.ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	filename := store.SanitizeName(req.Name)
	found, err := e.store.Delete(category, req.Name)
	if err != nil {
		return nil, err
	}
	e.tracker.RecordDelete(category.String() + "/" + filename)

	if !found {
		return &DeleteResponse{
			Found:    false,
			Guidance: fmt.Sprintf("no entry %s/%s; list the category to see what exists", category, filename),
		}, nil
	}

	if err := e.index.RemoveEntry(category, filename); err != nil {
		return nil, fmt.Errorf("failed to unindex %s/%s: %w", category, filename, err)
	}
	return &DeleteResponse{Found: true}, nil
}

// ReadRequest fetches one entry's content.
type ReadRequest struct {
	Category string `json:"category"`
	Name     string `json:"name"`
}

// ReadResponse carries the content, or guidance when the entry is missing.
type ReadResponse struct {
	Found    bool   `json:"found"`
	Content  string `json:"content,omitempty"`
	Guidance string `json:"guidance,omitempty"`
}

// Read returns an entry's full content.
func (e *Engine) Read(ctx context.Context, req ReadRequest) (*ReadResponse, error) {
	category, err := store.ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	filename := store.SanitizeName(req.Name)
	e.tracker.RecordRead(category.String() + "/" + filename)

	content, err := e.store.Read(category, req.Name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &ReadResponse{
				Found:    false,
				Guidance: fmt.Sprintf("no entry %s/%s; search for the topic to find the right filename", category, filename),
			}, nil
		}
		return nil, err
	}
	return &ReadResponse{Found: true, Content: content}, nil
}

// ListRequest lists entries, optionally for one category.
type ListRequest struct {
	Category string `json:"category,omitempty"`
}

// ListedEntry is one entry with display metadata.
type ListedEntry struct {
	Filename  string `json:"filename"`
	Title     string `json:"title"`
	SizeBytes int64  `json:"size_bytes"`
	Age       string `json:"age"`
}

// ListGroup is one category's entries.
type ListGroup struct {
	Category    store.Category `json:"category"`
	Description string         `json:"description"`
	Entries     []ListedEntry  `json:"entries"`
}

// ListResponse groups entries by category.
type ListResponse struct {
	Groups []ListGroup `json:"groups"`
}

// List returns grouped entries with title, size, and age.
func (e *Engine) List(ctx context.Context, req ListRequest) (*ListResponse, error) {
	e.tracker.RecordCall("list")

	categories := store.Categories()
	if req.Category != "" {
		c, err := store.ParseCategory(req.Category)
		if err != nil {
			return nil, err
		}
		categories = []store.Category{c}
	}

	now := time.Now()
	resp := &ListResponse{Groups: make([]ListGroup, 0, len(categories))}
	for _, c := range categories {
		entries, err := e.store.Entries(c)
		if err != nil {
			return nil, err
		}
		group := ListGroup{Category: c, Description: c.Description(), Entries: make([]ListedEntry, 0, len(entries))}
		for _, entry := range entries {
			group.Entries = append(group.Entries, ListedEntry{
				Filename:  entry.Filename,
				Title:     entry.Title,
				SizeBytes: entry.SizeBytes,
				Age:       humanAge(now.Sub(entry.LastModified)),
			})
		}
		resp.Groups = append(resp.Groups, group)
	}
	return resp, nil
}

func humanAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// CaptureSession renders the session record and appends it to the sessions
// category, gated by the activity threshold. It runs at most once per
// tracker and returns the stored path, or "" when nothing was captured.
func (e *Engine) CaptureSession(ctx context.Context) (string, error) {
	if e.tracker.Captured() || !e.tracker.ShouldCapture() {
		return "", nil
	}

	name, body := e.tracker.Render(time.Now())
	path, err := e.store.Append(store.CategorySessions, name, body)
	if err != nil {
		return "", fmt.Errorf("failed to store session record: %w", err)
	}

	filename := store.SanitizeName(name)
	content, err := e.store.Read(store.CategorySessions, filename)
	if err != nil {
		return "", fmt.Errorf("failed to read back session record: %w", err)
	}
	rec := index.Record{
		Category: store.CategorySessions,
		Filename: filename,
		Title:    store.TitleFromContent(content),
		Content:  content,
	}
	if err := e.index.IndexEntry(ctx, rec); err != nil {
		return "", fmt.Errorf("failed to index session record: %w", err)
	}

	e.logger.Info().Str("path", path).Msg("Session captured")
	return path, nil
}

// Flush checkpoints the index snapshot.
func (e *Engine) Flush() error {
	return e.index.Flush()
}

// Close flushes and releases the index.
func (e *Engine) Close() error {
	return e.index.Close()
}
