// Package keyword provides full-text scoring of chunks for hybrid retrieval.
package keyword

import (
	"context"

	"github.com/hyperjump/tanya/internal/models"
)

// KeywordIndex defines keyword search operations over the chunks of one batch.
type KeywordIndex interface {
	Index(ctx context.Context, chunks []models.Chunk) error
	// Search returns up to limit hits by decreasing score; equal scores are ordered by chunk position.
	Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error)
	// DocCount returns the total number of chunks in the index.
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit (ID is the chunk ID).
type KeywordResult struct {
	ID       string
	Position int
	Score    float64
}
