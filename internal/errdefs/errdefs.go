// Package errdefs defines the error taxonomy shared by ingestion and answering.
package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexNotReady is returned when retrieval runs against an empty or unset index.
	ErrIndexNotReady = errors.New("index not ready")
	// ErrNotReady is returned when a question is asked before any successful ingestion.
	ErrNotReady = errors.New("process documents first")
	// ErrNoText is returned when a corpus yields no extractable text.
	ErrNoText = errors.New("no extractable text in documents")
	// ErrNoDocuments is returned when ingestion is called with an empty corpus.
	ErrNoDocuments = errors.New("upload at least one document")
)

// DocumentParseError reports the corpus member that could not be parsed.
type DocumentParseError struct {
	Index int
	Name  string
	Err   error
}

func (e *DocumentParseError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("parse document %d (%s): %v", e.Index, e.Name, e.Err)
	}
	return fmt.Sprintf("parse document %d: %v", e.Index, e.Err)
}

func (e *DocumentParseError) Unwrap() error { return e.Err }

// ConfigurationError reports an invalid setting.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// EmbeddingServiceError wraps a failure of the embedding provider.
type EmbeddingServiceError struct {
	Op  string
	Err error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service: %s: %v", e.Op, e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// AnswerGenerationError wraps a failure of the language model.
type AnswerGenerationError struct {
	Err error
}

func (e *AnswerGenerationError) Error() string {
	return fmt.Sprintf("answer generation: %v", e.Err)
}

func (e *AnswerGenerationError) Unwrap() error { return e.Err }

// Embedding wraps err as an EmbeddingServiceError unless it already is one.
func Embedding(op string, err error) error {
	if err == nil {
		return nil
	}
	var ee *EmbeddingServiceError
	if errors.As(err, &ee) {
		return err
	}
	return &EmbeddingServiceError{Op: op, Err: err}
}

// UserMessage renders err as the banner shown to the person using the session.
func UserMessage(err error) string {
	var (
		parseErr  *DocumentParseError
		configErr *ConfigurationError
		embedErr  *EmbeddingServiceError
		answerErr *AnswerGenerationError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoDocuments):
		return "Upload at least one document."
	case errors.Is(err, ErrNotReady), errors.Is(err, ErrIndexNotReady):
		return "Process documents first."
	case errors.Is(err, ErrNoText):
		return "The uploaded documents contain no extractable text."
	case errors.As(err, &parseErr):
		name := parseErr.Name
		if name == "" {
			name = fmt.Sprintf("#%d", parseErr.Index+1)
		}
		return fmt.Sprintf("Could not read document %s: %v", name, parseErr.Err)
	case errors.As(err, &configErr):
		return configErr.Error()
	case errors.As(err, &embedErr):
		return "Embedding service failed: " + embedErr.Err.Error()
	case errors.As(err, &answerErr):
		return "Could not generate an answer: " + answerErr.Err.Error()
	default:
		return err.Error()
	}
}
