package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"curriculum-rag/internal/domain"
)

// ChatPort is the TUI-facing subset of the RAG service.
type ChatPort interface {
	Ask(ctx context.Context, question string) (domain.Answer, error)
	ClearHistory()
}

type entry struct {
	question string
	answer   domain.Answer
	err      error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	service    ChatPort
	input      textinput.Model
	viewport   viewport.Model
	transcript []entry
	summary    string
	status     string
	ready      bool
	waiting    bool
}

type answerMsg struct {
	question string
	answer   domain.Answer
	err      error
}

// New creates a new chat model instance.
func New(service ChatPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "ถามคำถามเกี่ยวกับหลักสูตร แล้วกด Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{service: service, input: ti, viewport: vp, summary: summary, status: "Ready. Type a question, /clear resets the conversation."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := inputBoxStyle.GetFrameSize()
		totalHeaderLines := 2 // header + summary
		totalFooterLines := 1 // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-th)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	case answerMsg:
		m.waiting = false
		m.transcript = append(m.transcript, entry{question: msg.question, answer: msg.answer, err: msg.err})
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else if msg.answer.NoContext {
			m.status = "No relevant context found."
		} else {
			m.status = fmt.Sprintf("Answered from %d fragment(s).", len(msg.answer.Sources))
		}
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.waiting {
				return m, nil
			}
			m.input.SetValue("")
			if q == "/clear" {
				m.service.ClearHistory()
				m.transcript = nil
				m.status = "Conversation cleared."
				m.viewport.SetContent(m.renderTranscript())
				return m, nil
			}
			m.waiting = true
			m.status = "Thinking..."
			return m, m.askCmd(q)
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) askCmd(question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := m.service.Ask(context.Background(), question)
		return answerMsg{question: question, answer: answer, err: err}
	}
}

// View renders the TUI layout and transcript.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Curriculum RAG Chat")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := inputBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, e := range m.transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("คุณ: " + e.question))
		b.WriteString("\n")
		if e.err != nil {
			b.WriteString(errorStyle.Render("error: " + e.err.Error()))
			continue
		}
		b.WriteString(e.answer.Text)
		if len(e.answer.Sources) > 0 {
			b.WriteString("\n")
			b.WriteString(sourceStyle.Render(renderSources(e.answer.Sources)))
		}
	}
	return b.String()
}

func renderSources(frags []domain.Fragment) string {
	parts := make([]string, 0, len(frags))
	seen := make(map[string]struct{}, len(frags))
	for _, fr := range frags {
		label := fr.Source
		if fr.Page > 0 {
			label = fmt.Sprintf("%s p.%d", fr.Source, fr.Page)
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		parts = append(parts, label)
	}
	return "sources: " + strings.Join(parts, ", ")
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
