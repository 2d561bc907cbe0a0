// Package session owns the state of one conversation: the current index, its memory
// and the displayed transcript.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/answer"
	"github.com/hyperjump/tanya/internal/errdefs"
	"github.com/hyperjump/tanya/internal/extract"
	"github.com/hyperjump/tanya/internal/index"
	"github.com/hyperjump/tanya/internal/indexer"
	"github.com/hyperjump/tanya/internal/memory"
	"github.com/hyperjump/tanya/internal/models"
)

// Session serializes Process and Ask: a call made while another is running waits
// for it to finish. Readers (Transcript, Ready, Info) never wait on a running call.
type Session struct {
	id        string
	indexer   *indexer.Indexer
	pipeline  *answer.Pipeline
	logger    *zap.Logger
	createdAt time.Time

	op sync.Mutex

	mu         sync.RWMutex
	index      *index.Index
	memory     *memory.Memory
	transcript *memory.Transcript
	last       *models.ProcessResult
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets a logger for session events.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New creates an empty session. Until Process succeeds, Ask fails with errdefs.ErrNotReady.
func New(id string, ix *indexer.Indexer, pipeline *answer.Pipeline, opts ...Option) *Session {
	s := &Session{
		id:         id,
		indexer:    ix,
		pipeline:   pipeline,
		logger:     zap.NewNop(),
		createdAt:  time.Now(),
		memory:     memory.New(),
		transcript: memory.NewTranscript(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("session_id", id))
	return s
}

func (s *Session) ID() string { return s.id }

// Process ingests docs and, on success, replaces the index and starts a fresh
// conversation. On any failure the previous state is kept as it was.
func (s *Session) Process(ctx context.Context, docs []extract.Document) (*models.ProcessResult, error) {
	if len(docs) == 0 {
		return nil, errdefs.ErrNoDocuments
	}
	s.op.Lock()
	defer s.op.Unlock()

	idx, result, err := s.indexer.Ingest(ctx, s.id, docs)
	if err != nil {
		s.logger.Warn("process documents failed", zap.Int("documents", len(docs)), zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	old := s.index
	s.index = idx
	s.memory = memory.New()
	s.transcript = memory.NewTranscript()
	s.last = result
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			s.logger.Warn("release previous index", zap.String("batch_id", old.Batch().ID), zap.Error(err))
		}
	}
	return result, nil
}

// ProcessFiles collects paths (files, directories or "**" globs, see indexer.CollectFiles)
// and processes them as one corpus.
func (s *Session) ProcessFiles(ctx context.Context, paths []string, allowedExts []string) (*models.ProcessResult, error) {
	files, err := indexer.CollectFiles(paths, allowedExts)
	if err != nil {
		return nil, err
	}
	docs, closeAll, err := extract.OpenFiles(files)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeAll() }()
	return s.Process(ctx, docs)
}

// Ask answers question from the current documents and records the exchange.
// A failed call records nothing.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.RLock()
	idx, mem, transcript := s.index, s.memory, s.transcript
	s.mu.RUnlock()
	if idx == nil {
		return "", errdefs.ErrNotReady
	}

	ans, err := s.pipeline.Answer(ctx, idx, mem, question)
	if err != nil {
		s.logger.Warn("answer failed", zap.Error(err))
		return "", err
	}
	turn := models.Turn{Question: question, Answer: ans}
	mem.Append(turn)
	transcript.Append(turn.Entries()...)
	return ans, nil
}

// Transcript returns a copy of the displayed chat log.
func (s *Session) Transcript() []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcript.Entries()
}

// Turns returns a copy of the conversation memory.
func (s *Session) Turns() []models.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.memory.Turns()
}

// Ready reports whether documents have been processed.
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index != nil
}

// Info is a point-in-time summary of a session.
type Info struct {
	ID            string                `json:"id"`
	Ready         bool                  `json:"ready"`
	Turns         int                   `json:"turns"`
	CreatedAt     time.Time             `json:"created_at"`
	LastBatch     *models.ProcessResult `json:"last_batch,omitempty"`
	Chunks        int                   `json:"chunks"`
	KeywordChunks uint64                `json:"keyword_chunks,omitempty"`
}

func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{
		ID:            s.id,
		Ready:         s.index != nil,
		Turns:         s.memory.Len(),
		CreatedAt:     s.createdAt,
		LastBatch:     s.last,
		Chunks:        s.index.Size(),
		KeywordChunks: s.index.KeywordChunks(),
	}
}

// Chunks returns the current batch and its chunks as stored, in position order.
func (s *Session) Chunks(ctx context.Context) (*models.Batch, []models.Chunk, error) {
	s.op.Lock()
	defer s.op.Unlock()
	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()
	if idx == nil {
		return nil, nil, errdefs.ErrNotReady
	}
	return idx.Stored(ctx)
}

// Close releases the current index. It waits for a running call to finish.
func (s *Session) Close() error {
	s.op.Lock()
	defer s.op.Unlock()
	s.mu.Lock()
	idx := s.index
	s.index = nil
	s.mu.Unlock()
	if idx == nil {
		return nil
	}
	return idx.Close()
}
