// Package tui implements the interactive chat session behind
// `docqa chat`: a Bubble Tea loop that runs each submitted question
// through the answer service and renders the reply with citations.
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

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	questionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	answerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	citationStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	historyPadding = 1
)

// timeRounding keeps latency readouts short.
const timeRounding = time.Millisecond

// answerMsg delivers one answered question back into the update loop.
type answerMsg struct {
	answer *domain.Answer
	err    error
}

// Model is the Bubble Tea model for the chat session.
type Model struct {
	service  driving.AnswerService
	input    textinput.Model
	viewport viewport.Model
	history  []string
	status   string
	waiting  bool
	ready    bool
}

// New creates a chat model around the answer service.
func New(service driving.AnswerService) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter (Ctrl+C to quit)"
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		service:  service,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Ready.",
	}
}

// Init starts the text input cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + ih + 2 // header, spacer, input frame, status
		height := msg.Height - reserved
		if height < 3 {
			height = 3
		}
		m.viewport.Width = msg.Width
		m.viewport.Height = height
		m.viewport.SetContent(m.renderHistory())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter && !m.waiting {
			question := strings.TrimSpace(m.input.Value())
			if question == "" {
				break
			}
			m.input.Reset()
			m.waiting = true
			m.status = "Thinking..."
			m.history = append(m.history, questionStyle.Render("You: ")+question)
			m.viewport.SetContent(m.renderHistory())
			m.viewport.GotoBottom()
			return m, ask(m.service, question)
		}

	case answerMsg:
		m.waiting = false
		m.history = append(m.history, renderAnswer(msg))
		m.status = "Ready."
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("docqa chat")
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n\n" + m.viewport.View() + "\n" + input + "\n" + status
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return "Ask anything about your indexed documents."
	}
	return strings.Join(m.history, strings.Repeat("\n", historyPadding+1))
}

// ask runs the question off the update loop.
func ask(service driving.AnswerService, question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := service.Ask(context.Background(), question)
		return answerMsg{answer: answer, err: err}
	}
}

// renderAnswer formats one answer block with its citations.
func renderAnswer(msg answerMsg) string {
	if msg.err != nil {
		return errorStyle.Render("Error: " + msg.err.Error())
	}

	answer := msg.answer
	style := answerStyle
	if answer.Failed {
		style = failedStyle
	}
	block := style.Render(answer.Text)

	if len(answer.Citations) > 0 {
		var lines []string
		for _, c := range answer.Citations {
			line := fmt.Sprintf("  %s %s", c.Marker, c.SourceFile)
			if c.PageNumber > 0 {
				line += fmt.Sprintf(", page %d", c.PageNumber)
			}
			lines = append(lines, line)
		}
		block += "\n" + citationStyle.Render("Sources:\n"+strings.Join(lines, "\n"))
	}

	if !answer.Failed && answer.Usage.TotalTokens > 0 {
		block += "\n" + citationStyle.Render(fmt.Sprintf(
			"  (retrieval %s, generation %s, %d tokens)",
			answer.RetrievalTime.Round(timeRounding),
			answer.GenerationTime.Round(timeRounding),
			answer.Usage.TotalTokens,
		))
	}
	return block
}

// Run starts the chat session and blocks until the user quits.
func Run(service driving.AnswerService) error {
	program := tea.NewProgram(New(service), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
