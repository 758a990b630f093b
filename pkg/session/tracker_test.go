package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldCapture_Threshold(t *testing.T) {
	tests := []struct {
		name  string
		setup func(tr *Tracker)
		want  bool
	}{
		{
			name:  "no activity",
			setup: func(tr *Tracker) {},
			want:  false,
		},
		{
			name: "one read-only call",
			setup: func(tr *Tracker) {
				tr.RecordSearch("auth")
			},
			want: false,
		},
		{
			name: "two read-only calls stay below threshold",
			setup: func(tr *Tracker) {
				tr.RecordSearch("auth")
				tr.RecordRead("facts/auth.md")
			},
			want: false,
		},
		{
			name: "four read-only calls clear threshold",
			setup: func(tr *Tracker) {
				tr.RecordSearch("auth")
				tr.RecordSearch("cache")
				tr.RecordRead("facts/auth.md")
				tr.RecordCall("list")
			},
			want: true,
		},
		{
			name: "single write is enough",
			setup: func(tr *Tracker) {
				tr.RecordWrite("facts/auth.md")
			},
			want: true,
		},
		{
			name: "single delete is enough",
			setup: func(tr *Tracker) {
				tr.RecordDelete("facts/auth.md")
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(2)
			tt.setup(tr)
			assert.Equal(t, tt.want, tr.ShouldCapture())
		})
	}
}

func TestRecordSearch_Deduplicates(t *testing.T) {
	tr := NewTracker(2)
	tr.RecordSearch("auth flow")
	tr.RecordSearch("auth flow")
	tr.RecordSearch("cache design")

	assert.Len(t, tr.ToolCalls(), 3)
	assert.Equal(t, []string{"auth flow", "cache design"}, tr.queries)
}

func TestRender(t *testing.T) {
	tr := NewTracker(2)
	tr.RecordSearch("auth flow")
	tr.RecordWrite("facts/auth.md")
	tr.RecordRead("decisions/why-sqlite.md")

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	name, body := tr.Render(now)

	assert.Contains(t, name, "session-2026-03-14-")
	assert.Contains(t, body, "# Session 2026-03-14 09:30")
	assert.Contains(t, body, "Tool calls: 3")
	assert.Contains(t, body, "- auth flow")
	assert.Contains(t, body, "- facts/auth.md")
	assert.Contains(t, body, "- decisions/why-sqlite.md")
	assert.True(t, tr.Captured())
}

func TestTracker_UniqueIDs(t *testing.T) {
	a := NewTracker(2)
	b := NewTracker(2)
	require.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}
