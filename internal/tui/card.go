package tui

import (
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/evanschultz/taskdeck/internal/domain"
)

// cardHeight is the number of terminal rows one rendered card occupies.
const cardHeight = 5

// cardState describes how a card should be highlighted.
type cardState struct {
	selected   bool
	dragging   bool
	dropTarget bool
	inflight   bool
}

// statusIcon returns the glyph shown before a task title.
func statusIcon(status domain.Status) string {
	switch status {
	case domain.StatusCompleted:
		return "✓"
	case domain.StatusInProgress:
		return "◐"
	default:
		return "○"
	}
}

// statusColor returns the badge color for status.
func statusColor(status domain.Status) color.Color {
	switch status {
	case domain.StatusCompleted:
		return lipgloss.Color("42")
	case domain.StatusInProgress:
		return lipgloss.Color("39")
	default:
		return lipgloss.Color("245")
	}
}

// renderCard renders one task as a fixed-height card.
func renderCard(task domain.Task, state cardState, showDescription bool, width int, accent, muted, dim color.Color) string {
	inner := max(8, width-4)
	border := dim
	switch {
	case state.dragging:
		border = lipgloss.Color("212")
	case state.dropTarget:
		border = lipgloss.Color("214")
	case state.selected:
		border = accent
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(width)

	titleStyle := lipgloss.NewStyle().Bold(state.selected)
	if task.Status == domain.StatusCompleted {
		titleStyle = titleStyle.Foreground(muted).Strikethrough(true)
	}
	grip := "  "
	if state.dragging {
		grip = "⠿ "
	}
	title := grip + statusIcon(task.Status) + " " + titleStyle.Render(truncate(task.Title, inner-4))

	second := ""
	if showDescription && strings.TrimSpace(task.Description) != "" {
		second = lipgloss.NewStyle().Foreground(muted).Render(truncate(firstLine(task.Description), inner))
	}

	badge := lipgloss.NewStyle().Foreground(statusColor(task.Status)).Render("[" + task.DisplayStatus() + "]")
	meta := badge
	if next, ok := domain.NextStatus(task.Status); ok {
		meta += lipgloss.NewStyle().Foreground(accent).Render("  s → " + next.Label())
	}
	if state.inflight {
		meta += lipgloss.NewStyle().Foreground(muted).Render("  working...")
	}
	return box.Render(strings.Join([]string{title, second}, "\n") + "\n" + meta)
}

// firstLine returns the first non-empty line of s.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
