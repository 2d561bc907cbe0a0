// Package tui is the terminal chat front-end for a document session.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hyperjump/tanya/internal/errdefs"
	"github.com/hyperjump/tanya/internal/models"
)

// ChatPort is the TUI-facing subset of a session.
type ChatPort interface {
	Ask(ctx context.Context, question string) (string, error)
	Transcript() []models.Entry
}

// ProcessedMsg reports that the documents were processed again outside the TUI,
// e.g. after a watched file changed.
type ProcessedMsg struct {
	Result *models.ProcessResult
	Err    error
}

// ProcessingMsg reports that a re-process has started.
type ProcessingMsg struct{}

// answerMsg reports that an ask finished. The answer itself is read back from
// the transcript.
type answerMsg struct {
	err error
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx      context.Context
	chat     ChatPort
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	summary  string
	status   string
	busy     bool
	ready    bool
}

// New creates a chat model. summary is shown under the header, typically the
// processing banner.
func New(ctx context.Context, chat ChatPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about your documents"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:      ctx,
		chat:     chat,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		summary:  summary,
		status:   "Ready. Type a question and press Enter.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and session events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header and summary, status, input box, input line
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + errdefs.UserMessage(msg.err)
		} else {
			m.status = "Ready."
		}
		m.refresh()
		return m, nil
	case ProcessingMsg:
		m.status = "Processing documents..."
		return m, nil
	case ProcessedMsg:
		if msg.Err != nil {
			m.status = "Error: " + errdefs.UserMessage(msg.Err)
		} else {
			m.summary = msg.Result.Message()
			m.status = "Documents changed; conversation restarted."
		}
		m.refresh()
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "Thinking..."
			m.input.SetValue("")
			return m, tea.Batch(m.ask(q), m.spinner.Tick)
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	ctx, chat := m.ctx, m.chat
	return func() tea.Msg {
		_, err := chat.Ask(ctx, question)
		return answerMsg{err: err}
	}
}

// refresh re-renders the transcript and keeps the newest message in view.
func (m *Model) refresh() {
	m.viewport.SetContent(renderTranscript(m.chat.Transcript(), m.viewport.Width))
	m.viewport.GotoBottom()
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Tanya: ask your documents")
	summary := summaryStyle.Render(m.summary)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + statusStyle.Render(status)
}

func renderTranscript(entries []models.Entry, width int) string {
	if len(entries) == 0 {
		return "No messages yet."
	}
	body := lipgloss.NewStyle().Width(max(10, width-2))
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		label := assistantStyle.Render("Assistant")
		if e.Role == models.RoleUser {
			label = userStyle.Render("You")
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(body.Render(e.Content))
		b.WriteString("\n")
	}
	return b.String()
}

var (
	headerStyle        = lipgloss.NewStyle().Bold(true)
	summaryStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
