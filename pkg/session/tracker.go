package session

import (
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ToolCall is one entry in the session's ordered tool-call log.
type ToolCall struct {
	Op     string    `json:"op"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// Tracker accumulates a session's activity. It is constructed by the host,
// carried through the session, and consumed exactly once at shutdown.
type Tracker struct {
	id           string
	minToolCalls int

	calls      []ToolCall
	queries    []string
	querySeen  map[string]struct{}
	reads      []string
	writes     []string
	deletes    []string
	wroteOnce  bool
	capturedAt *time.Time
}

// NewTracker creates a tracker. minToolCalls is the capture threshold: a
// session with no writes and at most minToolCalls tool calls leaves no
// record.
func NewTracker(minToolCalls int) *Tracker {
	id, err := gonanoid.New(8)
	if err != nil {
		// gonanoid only fails when the OS entropy source does; fall back to
		// a timestamp so the tracker stays usable.
		id = fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return &Tracker{
		id:           id,
		minToolCalls: minToolCalls,
		querySeen:    make(map[string]struct{}),
	}
}

// ID returns the session's short identifier.
func (t *Tracker) ID() string {
	return t.id
}

func (t *Tracker) record(op, detail string) {
	t.calls = append(t.calls, ToolCall{Op: op, Detail: detail, At: time.Now()})
}

// RecordSearch logs a search tool call and deduplicates the query list.
func (t *Tracker) RecordSearch(query string) {
	t.record("search", query)
	q := strings.TrimSpace(query)
	if q == "" {
		return
	}
	if _, ok := t.querySeen[q]; ok {
		return
	}
	t.querySeen[q] = struct{}{}
	t.queries = append(t.queries, q)
}

// RecordRead logs a read tool call.
func (t *Tracker) RecordRead(path string) {
	t.record("read", path)
	t.reads = append(t.reads, path)
}

// RecordWrite logs a write or append tool call and raises the write flag.
func (t *Tracker) RecordWrite(path string) {
	t.record("write", path)
	t.writes = append(t.writes, path)
	t.wroteOnce = true
}

// RecordDelete logs a delete tool call and raises the write flag.
func (t *Tracker) RecordDelete(path string) {
	t.record("delete", path)
	t.deletes = append(t.deletes, path)
	t.wroteOnce = true
}

// RecordCall logs any other tool call (list, orient).
func (t *Tracker) RecordCall(op string) {
	t.record(op, "")
}

// ToolCalls returns the ordered tool-call log.
func (t *Tracker) ToolCalls() []ToolCall {
	return t.calls
}

// WriteOccurred reports whether any mutating call happened.
func (t *Tracker) WriteOccurred() bool {
	return t.wroteOnce
}

// ShouldCapture reports whether this session clears the activity threshold:
// a write occurred, or more than minToolCalls tool calls were made.
func (t *Tracker) ShouldCapture() bool {
	return t.wroteOnce || len(t.calls) > t.minToolCalls
}

// Captured marks the tracker as consumed, making a second capture a no-op
// for the caller to detect.
func (t *Tracker) Captured() bool {
	return t.capturedAt != nil
}

// Render produces the session record's raw entry name and markdown body.
// It marks the tracker captured.
func (t *Tracker) Render(now time.Time) (string, string) {
	ts := now
	t.capturedAt = &ts

	name := fmt.Sprintf("session-%s-%s", now.Format("2006-01-02"), t.id)

	var b strings.Builder
	fmt.Fprintf(&b, "# Session %s\n\n", now.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Tool calls: %d\n\n", len(t.calls))

	if len(t.queries) > 0 {
		b.WriteString("## Searches\n\n")
		for _, q := range t.queries {
			fmt.Fprintf(&b, "- %s\n", q)
		}
		b.WriteString("\n")
	}
	writeList(&b, "Read", t.reads)
	writeList(&b, "Written", t.writes)
	writeList(&b, "Deleted", t.deletes)

	return name, strings.TrimRight(b.String(), "\n") + "\n"
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}
