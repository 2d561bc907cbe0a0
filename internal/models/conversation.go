package models

import (
	"fmt"
	"time"
)

// Role identifies the speaker of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one question/answer exchange.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Entry is one displayed message in the chat transcript.
type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Entries returns the transcript pair for t, user first.
func (t Turn) Entries() []Entry {
	return []Entry{
		{Role: RoleUser, Content: t.Question},
		{Role: RoleAssistant, Content: t.Answer},
	}
}

// ProcessResult summarizes a successful ingestion.
type ProcessResult struct {
	BatchID   string        `json:"batch_id"`
	Documents int           `json:"documents"`
	Skipped   []string      `json:"skipped,omitempty"`
	Chunks    int           `json:"chunks"`
	TextRunes int           `json:"text_runes"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// Message is the success banner for the ingestion.
func (r *ProcessResult) Message() string {
	return fmt.Sprintf("Documents %d processed successfully", r.Documents)
}
