// Package engine is the curation layer over the document store and search
// index: it routes ambiguous queries to a category, flags likely-duplicate
// writes, and keeps the index synchronized with every mutation.
//
// Invariants:
// - A write, append, or delete is visible to the very next search; the
//   incremental index update completes before the mutating call returns.
// - Category validation happens before any side effect.
// - Degradation-capable failures (missing full-text, embedding errors) are
//   absorbed and reflected as reduced-functionality results, never surfaced
//   as call failures.
//
// Usage:
//
//	eng, _ := engine.New(engine.Config{Store: st, Index: ix, Tracker: tr, Logger: logger})
//	resp, _ := eng.Search(ctx, engine.SearchRequest{Query: "why did we choose sqlite"})
//	_ = resp
package engine
