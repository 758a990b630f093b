// Package store owns the canonical on-disk knowledge entries.
//
// Invariants:
// - Every entry lives under its category's own directory; raw names are
//   sanitized before any path is built, so traversal is impossible by
//   construction.
// - Entry identity is (category, filename); two raw names that sanitize to
//   the same filename collide and the last write wins.
// - The store has no knowledge of the search index; the index reads through
//   the store, never the other way around.
//
// Usage:
//
//	st, _ := store.New("/home/user/.ingat/knowledge", logger)
//	path, _ := st.Write(store.CategoryFacts, "Auth Flow", "# Auth\nJWT-based.")
//	content, _ := st.Read(store.CategoryFacts, "auth-flow.md")
//	_ = path
//	_ = content
package store
