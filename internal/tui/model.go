// ABOUTME: Bubble Tea chat model for interactive FK-Guiden conversations
// ABOUTME: Keeps the running conversation and sends it as history with each question
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harper/fkguiden/internal/core"
	"github.com/harper/fkguiden/internal/models"
)

// Answerer is the TUI-facing subset of the pipeline
type Answerer interface {
	Answer(ctx context.Context, req core.Request) core.Response
}

// answerMsg carries a finished pipeline response back into Update
type answerMsg struct {
	question string
	resp     core.Response
}

// Model is the Bubble Tea model for the chat application
type Model struct {
	answerer Answerer
	timeout  time.Duration
	input    textinput.Model
	viewport viewport.Model
	history  []models.ConversationTurn
	status   string
	pending  bool
	ready    bool
}

// New creates a chat model. timeout bounds each pipeline call; zero means none.
func New(answerer Answerer, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ställ en fråga om Försäkringskassan"
	ti.Focus()
	ti.CharLimit = 2000
	vp := viewport.New(0, 0)
	return Model{
		answerer: answerer,
		timeout:  timeout,
		input:    ti,
		viewport: vp,
		status:   "Enter skickar, Ctrl+C avslutar.",
	}
}

// History returns the conversation so far
func (m Model) History() []models.ConversationTurn {
	return m.history
}

// Init initializes the model (text input cursor blink)
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := 1 + 1 + ih + 1 // header + status + input frame + input line
		vh := msg.Height - reserved - ch
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, vh)
		m.refresh()
		return m, nil

	case answerMsg:
		m.pending = false
		m.history = append(m.history,
			models.ConversationTurn{Role: models.RoleUser, Content: msg.question},
			models.ConversationTurn{Role: models.RoleAssistant, Content: msg.resp.Answer.Text},
		)
		m.status = statusFor(msg.resp)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.pending = true
			m.status = "Söker svar..."
			m.input.Reset()
			m.refresh()
			return m, m.ask(q)
		}
		if msg.Type == tea.KeyPgUp || msg.Type == tea.KeyPgDown {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask runs the pipeline off the event loop
func (m Model) ask(question string) tea.Cmd {
	history := append([]models.ConversationTurn(nil), m.history...)
	answerer := m.answerer
	timeout := m.timeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		resp := answerer.Answer(ctx, core.Request{Question: question, History: history})
		return answerMsg{question: question, resp: resp}
	}
}

// View renders the transcript, input and status line
func (m Model) View() string {
	if !m.ready {
		return "Laddar..."
	}
	header := headerStyle.Render("FK-Guiden")
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(renderTranscript(m.history, m.viewport.Width))
	m.viewport.GotoBottom()
}

func renderTranscript(history []models.ConversationTurn, width int) string {
	if len(history) == 0 {
		return hintStyle.Render("Inga meddelanden än.")
	}
	wrap := lipgloss.NewStyle().Width(max(10, width-2))
	var b strings.Builder
	for i, turn := range history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if turn.Role == models.RoleUser {
			b.WriteString(userStyle.Render("Du: "))
		} else {
			b.WriteString(assistantStyle.Render("FK-Guiden: "))
		}
		b.WriteString(wrap.Render(turn.Content))
	}
	return b.String()
}

func statusFor(resp core.Response) string {
	if resp.Retrieval == nil {
		return "Svar (" + resp.Kind.String() + ")"
	}
	return fmt.Sprintf("Svar: %s, %d avsnitt", resp.Retrieval.Mode(), len(resp.Retrieval.Chunks))
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	assistantStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
)
