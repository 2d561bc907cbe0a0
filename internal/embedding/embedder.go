// Package embedding turns chunk text into vectors through a pluggable provider.
package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/tanya/internal/errdefs"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// BatchOptions controls EmbedAll.
type BatchOptions struct {
	BatchSize   int
	Concurrency int
	// Progress, when set, is called with the number of texts finished by each batch.
	Progress func(done int)
}

// EmbedAll embeds texts in batches, running up to opts.Concurrency batches at once.
// The result is index-aligned with texts. Any provider failure is returned as an
// *errdefs.EmbeddingServiceError and cancels the remaining batches.
func EmbedAll(ctx context.Context, e Embedder, texts []string, opts BatchOptions) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	size := opts.BatchSize
	if size <= 0 {
		size = len(texts)
	}
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for start := 0; start < len(texts); start += size {
		start := start
		end := min(start+size, len(texts))
		g.Go(func() error {
			vecs, err := e.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return errdefs.Embedding("embed chunks", err)
			}
			if len(vecs) != end-start {
				return errdefs.Embedding("embed chunks", fmt.Errorf("expected %d embeddings, got %d", end-start, len(vecs)))
			}
			copy(out[start:end], vecs)
			if opts.Progress != nil {
				opts.Progress(end - start)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
