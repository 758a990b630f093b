package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/ingat/pkg/index"
	"github.com/harun/ingat/pkg/session"
	"github.com/harun/ingat/pkg/store"
)

func createTestEngine(t *testing.T) (*Engine, *session.Tracker) {
	t.Helper()

	root := t.TempDir()
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)

	st, err := store.New(root, logger)
	require.NoError(t, err)

	ix, err := index.Open(index.Config{
		Path:   filepath.Join(root, ".index.db"),
		Store:  st,
		Logger: logger,
		Alpha:  1.0,
	})
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })

	tr := session.NewTracker(2)
	// BM25 idf flattens on tiny corpora, so tests use a generous duplicate
	// threshold.
	eng, err := New(Config{Store: st, Index: ix, Tracker: tr, Logger: logger, PurgeThreshold: 0.5})
	require.NoError(t, err)

	return eng, tr
}

func TestWriteThenSearch(t *testing.T) {
	eng, _ := createTestEngine(t)
	ctx := context.Background()

	resp, err := eng.Write(ctx, WriteRequest{
		Category: "facts",
		Name:     "Auth Flow",
		Content:  "# Auth\nJWT-based.",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("facts", "auth-flow.md"), resp.Path)

	// The write is visible to the very next search, no rebuild needed.
	found, err := eng.Search(ctx, SearchRequest{Query: "JWT"})
	require.NoError(t, err)
	require.Len(t, found.Hits, 1)
	assert.Equal(t, store.CategoryFacts, found.Hits[0].Category)
	assert.Equal(t, "auth-flow.md", found.Hits[0].Filename)
}

func TestWrite_InvalidCategory(t *testing.T) {
	eng, _ := createTestEngine(t)

	_, err := eng.Write(context.Background(), WriteRequest{
		Category: "bogus",
		Name:     "note",
		Content:  "text",
	})
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestWriteDeleteSearch(t *testing.T) {
	eng, _ := createTestEngine(t)
	ctx := context.Background()

	_, err := eng.Write(ctx, WriteRequest{
		Category: "regressions",
		Name:     "bug-one",
		Content:  "# Bug One\nbug-one crashes on startup.",
	})
	require.NoError(t, err)

	del, err := eng.Delete(ctx, DeleteRequest{Category: "regressions", Name: "bug-one"})
	require.NoError(t, err)
	assert.True(t, del.Found)

	found, err := eng.Search(ctx, SearchRequest{Query: "bug-one"})
	require.NoError(t, err)
	assert.Empty(t, found.Hits)
}

func TestDelete_NotFound(t *testing.T) {
	eng, _ := createTestEngine(t)

	del, err := eng.Delete(context.Background(), DeleteRequest{Category: "facts", Name: "missing"})
	require.NoError(t, err)
	assert.False(t, del.Found)
	assert.NotEmpty(t, del.Guidance)
}

func TestReadRoundTrip(t *testing.T) {
	eng, _ := createTestEngine(t)
	ctx := context.Background()

	_, err := eng.Write(ctx, WriteRequest{Category: "facts", Name: "note", Content: "exact content"})
	require.NoError(t, err)

	read, err := eng.Read(ctx, ReadRequest{Category: "facts", Name: "note"})
	require.NoError(t, err)
	assert.True(t, read.Found)
	assert.Equal(t, "exact content", read.Content)

	read, err = eng.Read(ctx, ReadRequest{Category: "facts", Name: "missing"})
	require.NoError(t, err)
	assert.False(t, read.Found)
	assert.NotEmpty(t, read.Guidance)
}

func TestSearch_EmptyQueryIsNormalNegative(t *testing.T) {
	eng, _ := createTestEngine(t)

	resp, err := eng.Search(context.Background(), SearchRequest{Query: "   "})
	require.NoError(t, err)
	assert.Empty(t, resp.Hits)
	assert.NotEmpty(t, resp.Guidance)
}

func TestSearch_AutoRouteWithUnfilteredFallback(t *testing.T) {
	eng, _ := createTestEngine(t)
	ctx := context.Background()

	// The only match lives outside the routed category.
	_, err := eng.Write(ctx, WriteRequest{
		Category: "facts",
		Name:     "frobnicator",
		Content:  "# Frobnicator\nWe picked frobnicator for the pipeline.",
	})
	require.NoError(t, err)

	resp, err := eng.Search(ctx, SearchRequest{Query: "why did we choose frobnicator"})
	require.NoError(t, err)
	assert.Equal(t, store.CategoryDecisions, resp.Routed)
	assert.True(t, resp.Unfiltered)
	require.NotEmpty(t, resp.Hits)
	assert.Equal(t, store.CategoryFacts, resp.Hits[0].Category)
}

func TestSearch_RoutedHitStaysFiltered(t *testing.T) {
	eng, _ := createTestEngine(t)
	ctx := context.Background()

	_, err := eng.Write(ctx, WriteRequest{
		Category: "decisions",
		Name:     "choose-sqlite",
		Content:  "# Choose SQLite\nWe decided on sqlite for the index.",
	})
	require.NoError(t, err)

	resp, err := eng.Search(ctx, SearchRequest{Query: "why did we choose sqlite"})
	require.NoError(t, err)
	assert.Equal(t, store.CategoryDecisions, resp.Routed)
	assert.False(t, resp.Unfiltered)
	require.NotEmpty(t, resp.Hits)
}

func TestSearch_SnippetDetail(t *testing.T) {
	eng, _ := createTestEngine(t)
	ctx := context.Background()

	long := "# Long\n"
	for i := 0; i < 100; i++ {
		long += "somewhat repetitive sentence about the gateway timeout budget. "
	}
	_, err := eng.Write(ctx, WriteRequest{Category: "facts", Name: "long", Content: long})
	require.NoError(t, err)

	compact, err := eng.Search(ctx, SearchRequest{Query: "gateway timeout"})
	require.NoError(t, err)
	require.Len(t, compact.Hits, 1)
	assert.LessOrEqual(t, len([]rune(compact.Hits[0].Snippet)), snippetCompact+3)

	full, err := eng.Search(ctx, SearchRequest{Query: "gateway timeout", Detail: "full"})
	require.NoError(t, err)
	require.Len(t, full.Hits, 1)
	assert.Greater(t, len(full.Hits[0].Snippet), snippetCompact)
	assert.LessOrEqual(t, len([]rune(full.Hits[0].Snippet)), snippetFull+3)
}

func TestWrite_DuplicateWarning(t *testing.T) {
	eng, _ := createTestEngine(t)
	ctx := context.Background()

	_, err := eng.Write(ctx, WriteRequest{
		Category: "facts",
		Name:     "auth flow tokens",
		Content:  "# Auth Flow Tokens\nauth flow tokens explained.",
	})
	require.NoError(t, err)

	resp, err := eng.Write(ctx, WriteRequest{
		Category: "facts",
		Name:     "auth flow tokens v2",
		Content:  "# Auth Flow Tokens V2\nauth flow tokens explained again.",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.DuplicateWarnings)
	assert.Equal(t, "auth-flow-tokens.md", resp.DuplicateWarnings[0].Filename)
}

func TestWrite_Supersedes(t *testing.T) {
	eng, _ := createTestEngine(t)
	ctx := context.Background()

	_, err := eng.Write(ctx, WriteRequest{Category: "facts", Name: "old-auth", Content: "# Old Auth\nlegacy notes"})
	require.NoError(t, err)

	resp, err := eng.Write(ctx, WriteRequest{
		Category:   "facts",
		Name:       "new-auth",
		Content:    "# New Auth\ncurrent notes",
		Supersedes: "old-auth",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.SupersededFound)
	assert.True(t, *resp.SupersededFound)

	read, err := eng.Read(ctx, ReadRequest{Category: "facts", Name: "old-auth"})
	require.NoError(t, err)
	assert.False(t, read.Found)

	// Superseding a missing entry reports not-found without failing.
	resp, err = eng.Write(ctx, WriteRequest{
		Category:   "facts",
		Name:       "newer-auth",
		Content:    "# Newer Auth\nmore notes",
		Supersedes: "never-existed",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.SupersededFound)
	assert.False(t, *resp.SupersededFound)
}

func TestList(t *testing.T) {
	eng, _ := createTestEngine(t)
	ctx := context.Background()

	_, err := eng.Write(ctx, WriteRequest{Category: "facts", Name: "one", Content: "# One"})
	require.NoError(t, err)

	resp, err := eng.List(ctx, ListRequest{Category: "facts"})
	require.NoError(t, err)
	require.Len(t, resp.Groups, 1)
	require.Len(t, resp.Groups[0].Entries, 1)
	assert.Equal(t, "one.md", resp.Groups[0].Entries[0].Filename)
	assert.NotEmpty(t, resp.Groups[0].Entries[0].Age)

	all, err := eng.List(ctx, ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Groups, len(store.Categories()))
}

func TestCaptureSession(t *testing.T) {
	eng, tr := createTestEngine(t)
	ctx := context.Background()

	// Four read-only calls clear the threshold.
	for _, q := range []string{"auth", "cache", "gateway", "tokens"} {
		_, err := eng.Search(ctx, SearchRequest{Query: q})
		require.NoError(t, err)
	}
	require.True(t, tr.ShouldCapture())

	path, err := eng.CaptureSession(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	// Capture runs at most once.
	path, err = eng.CaptureSession(ctx)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestCaptureSession_BelowThreshold(t *testing.T) {
	eng, _ := createTestEngine(t)
	ctx := context.Background()

	_, err := eng.Search(ctx, SearchRequest{Query: "auth"})
	require.NoError(t, err)

	path, err := eng.CaptureSession(ctx)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestOrient(t *testing.T) {
	eng, _ := createTestEngine(t)
	ctx := context.Background()

	// Empty store: starter orientation plus empty-state guidance.
	resp, err := eng.Orient(ctx)
	require.NoError(t, err)
	assert.Contains(t, resp.Orientation, "# Memory")
	assert.NotEmpty(t, resp.Guidance)
	assert.Empty(t, resp.RecentEntries)

	_, err = eng.Write(ctx, WriteRequest{Category: "facts", Name: "auth", Content: "# Auth\nnotes"})
	require.NoError(t, err)

	resp, err = eng.Orient(ctx)
	require.NoError(t, err)
	assert.Empty(t, resp.Guidance)
	require.Len(t, resp.RecentEntries, 1)
	assert.Equal(t, "auth.md", resp.RecentEntries[0].Filename)
}
