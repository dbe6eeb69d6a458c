// Package embedding vectorizes record text for storage and search.
package embedding

import "context"

// Embedder turns text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Model names the embedding model, so collections can record what produced their vectors
	Model() string
}
