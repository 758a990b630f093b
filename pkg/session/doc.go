// Package session tracks one working session's activity and renders it into
// an append-only knowledge entry at graceful shutdown.
//
// Invariants:
// - The tracker is an explicit object owned by the host's lifecycle, never a
//   module-level singleton.
// - A session record is emitted at most once, and only when a write occurred
//   or more than the configured number of tool calls were made. Duration is
//   never a signal.
//
// Usage:
//
//	tr := session.NewTracker(2)
//	tr.RecordSearch("auth flow")
//	if tr.ShouldCapture() {
//		name, body := tr.Render(time.Now())
//		_ = name
//		_ = body
//	}
package session
