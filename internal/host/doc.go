// Package host serves the engine over a JSON-lines protocol on stdin/stdout.
//
// Invariants:
// - Every request line produces exactly one response line with a matching id.
// - Malformed requests get an error response; they never terminate the loop.
// - Stdin EOF and SIGINT/SIGTERM shut down identically: capture session,
//   flush index, return nil.
//
// Usage:
//
//	h, _ := host.New(host.Config{Engine: eng, Logger: logger})
//	_ = h.Serve(ctx)
package host
