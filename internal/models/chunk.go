// Package models defines core data structures for chunks, conversations, and ingestion results.
package models

import "time"

// Chunk is one retrievable window of a corpus's raw text.
type Chunk struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Text     string `json:"text"`
}

// ScoredChunk is a retrieval hit. Higher Score is more similar.
type ScoredChunk struct {
	Chunk
	Score         float64 `json:"score"`
	KeywordScore  float64 `json:"keyword_score,omitempty"`
	SemanticScore float64 `json:"semantic_score"`
	Rank          int     `json:"rank"`
}

// Batch records one ingestion: the chunks of a single successful Process call.
type Batch struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Documents int    `json:"documents"`
	// Fingerprint identifies the corpus content the batch was built from.
	Fingerprint string    `json:"fingerprint,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
