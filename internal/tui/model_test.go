package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hyperjump/tanya/internal/errdefs"
	"github.com/hyperjump/tanya/internal/models"
)

type fakeChat struct {
	entries []models.Entry
	answer  string
	err     error
	asked   []string
}

func (f *fakeChat) Ask(_ context.Context, q string) (string, error) {
	f.asked = append(f.asked, q)
	if f.err != nil {
		return "", f.err
	}
	f.entries = append(f.entries, models.Turn{Question: q, Answer: f.answer}.Entries()...)
	return f.answer, nil
}

func (f *fakeChat) Transcript() []models.Entry { return f.entries }

func sized(chat ChatPort) Model {
	m := New(context.Background(), chat, "Documents 1 processed successfully")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func TestModel_loadingBeforeSize(t *testing.T) {
	m := New(context.Background(), &fakeChat{}, "")
	if m.View() != "Loading..." {
		t.Errorf("View() = %q", m.View())
	}
}

func TestModel_askFlow(t *testing.T) {
	chat := &fakeChat{answer: "Thirty days."}
	m := sized(chat)
	if !strings.Contains(m.View(), "No messages yet.") || !strings.Contains(m.View(), "Documents 1 processed successfully") {
		t.Fatalf("initial view:\n%s", m.View())
	}

	m.input.SetValue("  refund window?  ")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil || !m.busy || m.input.Value() != "" {
		t.Fatalf("enter should start an ask: busy=%v input=%q", m.busy, m.input.Value())
	}

	// A second Enter while busy is ignored.
	m.input.SetValue("again")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("enter while busy should do nothing")
	}

	msg := m.ask("refund window?")()
	next, _ = m.Update(msg)
	m = next.(Model)
	if m.busy {
		t.Error("should not be busy after answer")
	}
	view := m.View()
	for _, want := range []string{"You", "refund window?", "Assistant", "Thirty days."} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_askError(t *testing.T) {
	chat := &fakeChat{err: errdefs.ErrNotReady}
	m := sized(chat)
	next, _ := m.Update(m.ask("q")())
	m = next.(Model)
	if !strings.Contains(m.status, "Process documents first.") {
		t.Errorf("status = %q", m.status)
	}
}

func TestModel_emptyEnter(t *testing.T) {
	m := sized(&fakeChat{})
	m.input.SetValue("   ")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("blank question should not be asked")
	}
}

func TestModel_processed(t *testing.T) {
	chat := &fakeChat{entries: []models.Entry{{Role: models.RoleUser, Content: "old"}}}
	m := sized(chat)
	next, _ := m.Update(ProcessingMsg{})
	m = next.(Model)
	if m.status != "Processing documents..." {
		t.Errorf("status = %q", m.status)
	}

	chat.entries = nil
	next, _ = m.Update(ProcessedMsg{Result: &models.ProcessResult{Documents: 4}})
	m = next.(Model)
	if m.summary != "Documents 4 processed successfully" || strings.Contains(m.View(), "old") {
		t.Errorf("summary %q view:\n%s", m.summary, m.View())
	}

	next, _ = m.Update(ProcessedMsg{Err: errors.New("disk gone")})
	m = next.(Model)
	if !strings.Contains(m.status, "disk gone") || m.summary != "Documents 4 processed successfully" {
		t.Errorf("status %q summary %q", m.status, m.summary)
	}
}

func TestModel_quit(t *testing.T) {
	for _, k := range []tea.KeyType{tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc} {
		_, cmd := sized(&fakeChat{}).Update(tea.KeyMsg{Type: k})
		if cmd == nil {
			t.Fatalf("key %v: no command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("key %v should quit", k)
		}
	}
}
