// Package answer composes grounded answers from retrieved chunks, chat history and
// a language model.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/errdefs"
	"github.com/hyperjump/tanya/internal/index"
	"github.com/hyperjump/tanya/internal/indexer"
	"github.com/hyperjump/tanya/internal/llm"
	"github.com/hyperjump/tanya/internal/memory"
	"github.com/hyperjump/tanya/internal/models"
)

// contextSeparator joins retrieved chunk texts in the prompt.
const contextSeparator = "\n\n"

// Pipeline answers one question at a time against a retriever.
type Pipeline struct {
	model  llm.LanguageModel
	topK   int
	logger *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTopK sets how many chunks are retrieved per question.
func WithTopK(k int) Option {
	return func(p *Pipeline) { p.topK = k }
}

// WithLogger sets a logger for answer events.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a pipeline that completes prompts with model.
func NewPipeline(model llm.LanguageModel, opts ...Option) *Pipeline {
	p := &Pipeline{model: model, topK: config.DefaultTopK, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.topK <= 0 {
		p.topK = config.DefaultTopK
	}
	return p
}

// Answer retrieves context for question (whitespace-normalized), renders the prompt with the history in mem
// and returns the model's trimmed reply. It records nothing; appending the turn is
// the caller's job once an answer exists. A nil idx fails with errdefs.ErrNotReady and
// a model failure with *errdefs.AnswerGenerationError.
func (p *Pipeline) Answer(ctx context.Context, idx index.Retriever, mem *memory.Memory, question string) (string, error) {
	if idx == nil {
		return "", errdefs.ErrNotReady
	}
	chunks, err := idx.Retrieve(ctx, indexer.Preprocess(question), p.topK)
	if err != nil {
		return "", fmt.Errorf("retrieve context: %w", err)
	}
	var history string
	if mem != nil {
		history = mem.History()
	}
	prompt, err := RenderPrompt(history, JoinContext(chunks), question)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	raw, err := p.model.Complete(ctx, prompt)
	if err != nil {
		return "", &errdefs.AnswerGenerationError{Err: err}
	}
	answer := strings.TrimSpace(raw)
	p.logger.Debug("question answered",
		zap.Int("retrieved", len(chunks)),
		zap.Int("prompt_bytes", len(prompt)),
		zap.Bool("refused", answer == RefusalSentence))
	return answer, nil
}

// JoinContext concatenates chunk texts in rank order, separated by a blank line.
func JoinContext(chunks []models.ScoredChunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, contextSeparator)
}
