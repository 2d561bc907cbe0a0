// Package index builds and queries the embedding index of one ingested corpus.
package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/errdefs"
	"github.com/hyperjump/tanya/internal/keyword"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/search"
	"github.com/hyperjump/tanya/internal/storage"
	"github.com/hyperjump/tanya/internal/vector"
)

// Retriever returns the chunks most relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.ScoredChunk, error)
}

// Progress receives embedding progress while a batch is built.
type Progress interface {
	Start(total int)
	Increment(n int)
	Finish()
}

// Builder creates one Index per ingestion batch. It is safe for concurrent use;
// every Build gets fresh vector and keyword indices.
type Builder struct {
	embedder  embedding.Embedder
	store     storage.ChunkStore
	retrieval config.RetrievalConfig
	batch     embedding.BatchOptions
	logger    *zap.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets a logger for build and retrieval events.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// WithBatching sets the embedding batch size and the number of batches in flight.
func WithBatching(size, concurrency int) BuilderOption {
	return func(b *Builder) {
		b.batch.BatchSize = size
		b.batch.Concurrency = concurrency
	}
}

// NewBuilder returns a Builder that embeds with embedder and keeps chunk text in store.
func NewBuilder(embedder embedding.Embedder, store storage.ChunkStore, retrieval config.RetrievalConfig, opts ...BuilderOption) *Builder {
	b := &Builder{
		embedder:  embedder,
		store:     store,
		retrieval: retrieval,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	return b
}

// Build embeds chunks and indexes them under batch. On any failure everything written
// for the batch is removed before the error is returned. progress may be nil.
func (b *Builder) Build(ctx context.Context, batch *models.Batch, chunks []models.Chunk, progress Progress) (idx *Index, err error) {
	if len(chunks) == 0 {
		return nil, errdefs.ErrNoText
	}
	vidx, err := vector.NewVectorIndex(b.retrieval.Metric, b.embedder.Dimensions())
	if err != nil {
		if errors.Is(err, vector.ErrUnknownMetric) {
			return nil, &errdefs.ConfigurationError{Field: "retrieval.metric", Reason: err.Error()}
		}
		return nil, fmt.Errorf("create vector index: %w", err)
	}
	idx = &Index{
		batch:     batch,
		store:     b.store,
		embedder:  b.embedder,
		vectors:   vidx,
		metric:    vidx.Metric(),
		size:      len(chunks),
		retrieval: b.retrieval,
		logger:    b.logger,
	}
	// From here on the index owns everything written for the batch; Close undoes all of it.
	defer func() {
		if err != nil {
			if cerr := idx.Close(); cerr != nil {
				b.logger.Warn("discard partial batch", zap.String("batch_id", batch.ID), zap.Error(cerr))
			}
			idx = nil
		}
	}()
	start := time.Now()

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	opts := b.batch
	if progress != nil {
		progress.Start(len(texts))
		defer progress.Finish()
		opts.Progress = progress.Increment
	}
	vectors, err := embedding.EmbedAll(ctx, b.embedder, texts, opts)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	if err = vidx.Add(ctx, ids, vectors); err != nil {
		return nil, errdefs.Embedding("index vectors", err)
	}
	if err = b.store.CreateBatch(ctx, batch, chunks); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}
	idx.stored = true
	if b.retrieval.Hybrid {
		kidx, kerr := keyword.NewBleveIndex()
		if kerr != nil {
			return nil, kerr
		}
		idx.keywords = kidx
		if err = kidx.Index(ctx, chunks); err != nil {
			return nil, fmt.Errorf("index keywords: %w", err)
		}
	}
	b.logger.Debug("index built",
		zap.String("batch_id", batch.ID),
		zap.Int("chunks", len(chunks)),
		zap.Bool("hybrid", b.retrieval.Hybrid),
		zap.Duration("elapsed", time.Since(start)))
	return idx, nil
}

// Index is the searchable form of one batch.
type Index struct {
	batch     *models.Batch
	store     storage.ChunkStore
	embedder  embedding.Embedder
	vectors   vector.VectorIndex
	keywords  keyword.KeywordIndex
	metric    vector.Metric
	retrieval config.RetrievalConfig
	size      int
	stored    bool
	logger    *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// Batch returns the ingestion batch the index was built from.
func (idx *Index) Batch() *models.Batch {
	return idx.batch
}

// Size returns the number of indexed chunks.
func (idx *Index) Size() int {
	if idx == nil {
		return 0
	}
	return idx.size
}

// Stored reads the batch record and its chunks, in position order, back from the
// chunk store.
func (idx *Index) Stored(ctx context.Context) (*models.Batch, []models.Chunk, error) {
	if idx == nil || idx.size == 0 {
		return nil, nil, errdefs.ErrIndexNotReady
	}
	batch, err := idx.store.GetBatch(ctx, idx.batch.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load batch: %w", err)
	}
	chunks, err := idx.store.ChunksByBatch(ctx, batch.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load chunks: %w", err)
	}
	return batch, chunks, nil
}

// KeywordChunks returns the number of chunks in the keyword index; 0 without hybrid retrieval.
func (idx *Index) KeywordChunks() uint64 {
	if idx == nil || idx.keywords == nil {
		return 0
	}
	n, err := idx.keywords.DocCount()
	if err != nil {
		idx.logger.Debug("keyword doc count", zap.Error(err))
		return 0
	}
	return n
}

// Retrieve returns at most k chunks by decreasing similarity to query. Equal scores are
// ordered by chunk position. k <= 0 selects the default of 6.
func (idx *Index) Retrieve(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	if idx == nil || idx.size == 0 {
		return nil, errdefs.ErrIndexNotReady
	}
	if k <= 0 {
		k = config.DefaultTopK
	}
	qvec, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errdefs.Embedding("embed query", err)
	}
	// Hybrid fusion can promote a chunk from outside the semantic top k, so look wider.
	limit := k
	if idx.keywords != nil {
		limit = idx.size
	}
	hits, err := idx.vectors.Search(ctx, qvec, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	var ranked []models.ScoredChunk
	if idx.keywords != nil {
		ranked, err = idx.fuse(ctx, query, hits)
		if err != nil {
			return nil, err
		}
	} else {
		ranked = make([]models.ScoredChunk, len(hits))
		for i, h := range hits {
			ranked[i] = models.ScoredChunk{Chunk: models.Chunk{ID: h.ID, Position: h.Ordinal}, Score: h.Score, SemanticScore: h.Score}
		}
	}
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	if err := idx.resolve(ctx, ranked); err != nil {
		return nil, err
	}
	idx.logger.Debug("retrieved chunks", zap.String("batch_id", idx.batch.ID), zap.Int("k", k), zap.Int("hits", len(ranked)))
	return ranked, nil
}

func (idx *Index) fuse(ctx context.Context, query string, hits []*vector.VectorResult) ([]models.ScoredChunk, error) {
	kw, err := idx.keywords.Search(ctx, query, idx.size)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	positions := make(map[string]int, len(hits))
	for _, h := range hits {
		positions[h.ID] = h.Ordinal
	}
	for _, r := range kw {
		positions[r.ID] = r.Position
	}
	fused := search.Fuse(
		search.NormalizeKeywordScores(kw),
		search.NormalizeSemanticScores(hits, idx.metric),
		idx.retrieval.KeywordWeight, idx.retrieval.SemanticWeight, positions)
	out := make([]models.ScoredChunk, len(fused))
	for i, f := range fused {
		out[i] = models.ScoredChunk{
			Chunk:         models.Chunk{ID: f.ChunkID, Position: f.Position},
			Score:         f.Score,
			KeywordScore:  f.KeywordScore,
			SemanticScore: f.SemanticScore,
		}
	}
	return out, nil
}

// resolve fills in chunk text from the store and assigns ranks.
func (idx *Index) resolve(ctx context.Context, ranked []models.ScoredChunk) error {
	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ID
	}
	byID, err := idx.store.GetChunks(ctx, ids)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}
	for i := range ranked {
		ch, ok := byID[ranked[i].ID]
		if !ok {
			return fmt.Errorf("load chunks: %s missing from batch %s", ranked[i].ID, idx.batch.ID)
		}
		ranked[i].Chunk = ch
		ranked[i].Rank = i + 1
	}
	return nil
}

// Close deletes the batch's stored chunks and releases its indices. It is safe to call more than once.
func (idx *Index) Close() error {
	if idx == nil {
		return nil
	}
	idx.closeOnce.Do(func() {
		var errs []error
		if idx.stored {
			// The store outlives any request context.
			if err := idx.store.DeleteBatch(context.Background(), idx.batch.ID); err != nil {
				errs = append(errs, fmt.Errorf("delete batch: %w", err))
			}
		}
		if err := idx.vectors.Close(); err != nil {
			errs = append(errs, err)
		}
		if idx.keywords != nil {
			if err := idx.keywords.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		idx.closeErr = errors.Join(errs...)
	})
	return idx.closeErr
}
