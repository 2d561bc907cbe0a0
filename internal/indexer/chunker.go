// Package indexer turns raw corpus text into chunks and feeds them to the embedding index.
package indexer

import (
	"fmt"

	"github.com/hyperjump/tanya/internal/errdefs"
	"github.com/hyperjump/tanya/internal/models"
)

// Splitter cuts text into overlapping windows measured in runes.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

// NewSplitter returns a splitter producing chunks of at most chunkSize runes,
// each sharing chunkOverlap runes with its predecessor.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	switch {
	case chunkSize <= 0:
		return nil, &errdefs.ConfigurationError{Field: "ingest.chunk_size", Reason: fmt.Sprintf("must be positive, got %d", chunkSize)}
	case chunkOverlap < 0:
		return nil, &errdefs.ConfigurationError{Field: "ingest.chunk_overlap", Reason: fmt.Sprintf("must not be negative, got %d", chunkOverlap)}
	case chunkOverlap >= chunkSize:
		return nil, &errdefs.ConfigurationError{
			Field:  "ingest.chunk_overlap",
			Reason: fmt.Sprintf("must be smaller than chunk_size (%d >= %d)", chunkOverlap, chunkSize),
		}
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Size returns the maximum chunk length in runes.
func (s *Splitter) Size() int { return s.chunkSize }

// Overlap returns the number of runes shared by consecutive chunks.
func (s *Splitter) Overlap() int { return s.chunkOverlap }

// Split returns the chunks of text in order. A window that does not reach the end of
// the text is cut just after its last line break, provided that break lies past the
// overlap region; otherwise it is cut at full size.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	var chunks []string
	start := 0
	for {
		end := start + s.chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			return chunks
		}
		for j := end - 1; j > start+s.chunkOverlap; j-- {
			if runes[j] == '\n' {
				end = j + 1
				break
			}
		}
		chunks = append(chunks, string(runes[start:end]))
		start = end - s.chunkOverlap
	}
}

// Chunks splits text and labels the pieces for batchID.
func (s *Splitter) Chunks(batchID, text string) []models.Chunk {
	parts := s.Split(text)
	if len(parts) == 0 {
		return nil
	}
	chunks := make([]models.Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = models.Chunk{
			ID:       fmt.Sprintf("%s_%d", batchID, i),
			Position: i,
			Text:     p,
		}
	}
	return chunks
}
