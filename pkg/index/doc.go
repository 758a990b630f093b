// Package index maintains the persisted, queryable projection of the
// document store: full-text lookup via SQLite FTS5 (with a substring
// fallback) and vector-similarity lookup via sqlite-vec when an embedding
// provider is configured.
//
// Invariants:
// - The index is a cache: it is always fully reconstructable from the store
//   alone and is rebuilt whenever its record count disagrees with the store.
// - Incremental upserts and removals touch only their own record and
//   complete before the triggering mutation returns.
// - A missing search capability (FTS5, embeddings) degrades that signal,
//   never the whole search.
//
// Usage:
//
//	ix, _ := index.Open(index.Config{Path: dbPath, Store: st, Logger: logger})
//	defer ix.Close()
//	results, _ := ix.Search(ctx, "auth flow", "", 10)
//	_ = results
package index
