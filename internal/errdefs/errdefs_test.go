package errdefs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestEmbedding_wrapsOnce(t *testing.T) {
	base := errors.New("401 unauthorized")
	err := Embedding("embed batch", base)
	var ee *EmbeddingServiceError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EmbeddingServiceError, got %T", err)
	}
	again := Embedding("build", fmt.Errorf("outer: %w", err))
	if strings.Count(again.Error(), "embedding service") != 1 {
		t.Errorf("double wrapped: %q", again.Error())
	}
	if !errors.Is(again, base) {
		t.Error("base error lost")
	}
	if Embedding("x", nil) != nil {
		t.Error("nil should stay nil")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not ready", ErrNotReady, "Process documents first."},
		{"index not ready wrapped", fmt.Errorf("retrieve: %w", ErrIndexNotReady), "Process documents first."},
		{"no documents", ErrNoDocuments, "Upload at least one document."},
		{"parse", &DocumentParseError{Index: 1, Name: "b.pdf", Err: errors.New("bad xref")}, "Could not read document b.pdf: bad xref"},
		{"parse unnamed", &DocumentParseError{Index: 0, Err: errors.New("eof")}, "Could not read document #1: eof"},
		{"config", &ConfigurationError{Field: "chunk_overlap", Reason: "must be smaller than chunk_size"}, "invalid configuration: chunk_overlap: must be smaller than chunk_size"},
		{"answer", &AnswerGenerationError{Err: errors.New("quota")}, "Could not generate an answer: quota"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
