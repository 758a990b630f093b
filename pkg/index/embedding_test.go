package index

import (
	"context"
	"errors"
)

// MockProvider generates deterministic embeddings for tests.
type MockProvider struct {
	dimension int
	fail      bool
}

func NewMockProvider(dimension int) *MockProvider {
	return &MockProvider{dimension: dimension}
}

func (p *MockProvider) Dimension() int {
	return p.dimension
}

func (p *MockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.fail {
		return nil, errors.New("mock provider failure")
	}

	embedding := make([]float32, p.dimension)
	hash := 0
	for _, c := range text {
		hash = hash*31 + int(c)
	}
	for i := range embedding {
		embedding[i] = float32((hash+i)%100) / 100.0
	}
	return embedding, nil
}
