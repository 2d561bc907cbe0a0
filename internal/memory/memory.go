// Package memory holds the per-session conversation state: the turns fed back to
// the model as history and the transcript shown to the user.
package memory

import (
	"strings"
	"sync"

	"github.com/hyperjump/tanya/internal/models"
)

// Memory is an append-only list of question/answer turns.
type Memory struct {
	mu    sync.RWMutex
	turns []models.Turn
}

// New returns an empty Memory.
func New() *Memory {
	return &Memory{}
}

// Append records a completed turn.
func (m *Memory) Append(turn models.Turn) {
	m.mu.Lock()
	m.turns = append(m.turns, turn)
	m.mu.Unlock()
}

// History renders all turns in order as "Human: q\nAssistant: a\n" lines.
// An empty memory renders as the empty string.
func (m *Memory) History() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var b strings.Builder
	for _, t := range m.turns {
		b.WriteString("Human: ")
		b.WriteString(t.Question)
		b.WriteString("\nAssistant: ")
		b.WriteString(t.Answer)
		b.WriteByte('\n')
	}
	return b.String()
}

// Turns returns a copy of the recorded turns.
func (m *Memory) Turns() []models.Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

// Transcript is the displayed chat log, one entry per message.
type Transcript struct {
	mu      sync.RWMutex
	entries []models.Entry
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds entries in order.
func (t *Transcript) Append(entries ...models.Entry) {
	t.mu.Lock()
	t.entries = append(t.entries, entries...)
	t.mu.Unlock()
}

// Entries returns a copy of the transcript.
func (t *Transcript) Entries() []models.Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
