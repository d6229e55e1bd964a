package tui

import (
	"image/color"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/evanschultz/taskdeck/internal/domain"
)

// assistantConnectFailure is shown when the command never produced a payload.
const assistantConnectFailure = "Failed to connect to AI service."

// assistantExamples are the suggested commands listed under the input.
var assistantExamples = []string{
	"Add a task to buy groceries",
	"Show me all completed tasks",
	"Start working on the presentation",
}

// assistantPanel holds the AI command input and its last outcome.
type assistantPanel struct {
	input    textinput.Model
	spinner  spinner.Model
	focused  bool
	busy     bool
	feedback string
	success  bool
}

// newAssistantPanel constructs the panel in its idle state.
func newAssistantPanel() assistantPanel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return assistantPanel{
		input:   newModalInput("› ", "Ask the assistant to create or manage tasks...", "", 500),
		spinner: s,
	}
}

// focus gives the panel keyboard focus.
func (p *assistantPanel) focus() tea.Cmd {
	p.focused = true
	return p.input.Focus()
}

// blur releases keyboard focus.
func (p *assistantPanel) blur() {
	p.focused = false
	p.input.Blur()
}

// begin starts a submission. It returns false when the input is blank or a
// command is already running.
func (p *assistantPanel) begin() (string, bool) {
	command := strings.TrimSpace(p.input.Value())
	if command == "" || p.busy {
		return "", false
	}
	p.busy = true
	p.feedback = ""
	p.success = false
	return command, true
}

// finish records the outcome of a submission and reports whether the task
// list changed.
func (p *assistantPanel) finish(resp domain.AIResponse, err error) bool {
	p.busy = false
	switch {
	case err != nil:
		p.feedback = assistantConnectFailure
		p.success = false
		return false
	case resp.Result != nil:
		p.feedback = resp.Result.Message
		p.success = resp.Result.Success
		if p.success {
			p.input.SetValue("")
			return true
		}
		return false
	default:
		p.feedback = resp.Feedback()
		p.success = false
		return false
	}
}

// view renders the panel.
func (p assistantPanel) view(accent, muted, dim color.Color, width int) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(0, 1)
	if p.focused {
		style = style.BorderForeground(accent)
	}
	if width > 0 {
		style = style.Width(width)
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle := lipgloss.NewStyle().Foreground(muted)
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	lines := []string{titleStyle.Render("AI Assistant"), p.input.View()}
	if p.busy {
		lines = append(lines, p.spinner.View()+" thinking...")
	}
	if p.feedback != "" {
		if p.success {
			lines = append(lines, okStyle.Render(p.feedback))
		} else {
			lines = append(lines, failStyle.Render(p.feedback))
		}
	}
	lines = append(lines, "", hintStyle.Render("Try asking:"))
	for _, example := range assistantExamples {
		lines = append(lines, hintStyle.Render("  • "+example))
	}
	if p.focused {
		lines = append(lines, hintStyle.Render("enter send • esc back to list"))
	} else {
		lines = append(lines, hintStyle.Render("a focus assistant"))
	}
	return style.Render(strings.Join(lines, "\n"))
}
