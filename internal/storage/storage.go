// Package storage persists chunk text per ingestion batch.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/tanya/internal/models"
)

// ErrBatchNotFound is returned for an unknown batch ID.
var ErrBatchNotFound = errors.New("batch not found")

// ChunkStore keeps the text of every chunk of a batch so retrieval hits can be
// resolved from vector IDs back to content.
type ChunkStore interface {
	CreateBatch(ctx context.Context, batch *models.Batch, chunks []models.Chunk) error
	GetBatch(ctx context.Context, id string) (*models.Batch, error)
	// GetChunks returns the chunks with the given IDs, keyed by ID. Unknown IDs are omitted.
	GetChunks(ctx context.Context, ids []string) (map[string]models.Chunk, error)
	ChunksByBatch(ctx context.Context, batchID string) ([]models.Chunk, error)
	DeleteBatch(ctx context.Context, id string) error

	// Stats
	CountBatches(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
