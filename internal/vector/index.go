// Package vector provides nearest-neighbour search over chunk embeddings.
package vector

import "context"

// VectorIndex defines vector storage and similarity search.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	// Search returns at most k hits by decreasing Score. Equal scores keep insertion order.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Metric() Metric
	Size() int
	Close() error
}

// VectorResult is a single vector search hit (ID is the chunk ID).
type VectorResult struct {
	ID string
	// Score is higher for closer vectors: cosine similarity, or negated L2 distance.
	Score float64
	// Ordinal is the insertion position of the vector.
	Ordinal int
}
