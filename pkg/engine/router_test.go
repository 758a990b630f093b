package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harun/ingat/pkg/store"
)

func TestRouteQuery(t *testing.T) {
	tests := []struct {
		query   string
		want    store.Category
		matched bool
	}{
		{query: "why did we choose postgres", want: store.CategoryDecisions, matched: true},
		{query: "rationale for the retry budget", want: store.CategoryDecisions, matched: true},
		{query: "crash when parsing empty config", want: store.CategoryRegressions, matched: true},
		{query: "known regression in the uploader", want: store.CategoryRegressions, matched: true},
		{query: "naming convention for handlers", want: store.CategoryPreferences, matched: true},
		{query: "what happened last session", want: store.CategorySessions, matched: true},
		{query: "how does the gateway flow work", want: store.CategoryFacts, matched: true},
		{query: "miscellaneous unrelated words", matched: false},
		{query: "", matched: false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, ok := RouteQuery(tt.query)
			assert.Equal(t, tt.matched, ok)
			if tt.matched {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRouteQuery_TierOrder(t *testing.T) {
	// Decision signals outrank bug signals when both appear.
	got, ok := RouteQuery("decision about the crash handler")
	assert.True(t, ok)
	assert.Equal(t, store.CategoryDecisions, got)

	// Bug signals outrank style signals.
	got, ok = RouteQuery("regression in the lint step")
	assert.True(t, ok)
	assert.Equal(t, store.CategoryRegressions, got)
}
