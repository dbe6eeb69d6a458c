package vectortest

import (
	"context"
	"errors"
	"sync"
)

// Embedder returns a fixed-size vector derived from the text length
type Embedder struct {
	mu    sync.Mutex
	Dim   int
	Fail  func(text string) bool
	calls int
}

// NewEmbedder returns an Embedder producing dim-sized vectors
func NewEmbedder(dim int) *Embedder {
	return &Embedder{Dim: dim}
}

// Embed implements embedding.Embedder
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls++
	if e.Fail != nil && e.Fail(text) {
		return nil, errors.New("embedding backend rejected input")
	}
	vec := make([]float32, e.Dim)
	for i := range vec {
		vec[i] = float32(len(text)+i) / 100
	}
	return vec, nil
}

// Model implements embedding.Embedder
func (e *Embedder) Model() string {
	return "test-embed"
}

// Calls returns how many times Embed ran
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
