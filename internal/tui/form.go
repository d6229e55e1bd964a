package tui

import (
	"image/color"
	"strings"

	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/evanschultz/taskdeck/internal/domain"
)

// formFieldTitle and related constants index the task form fields.
const (
	formFieldTitle = iota
	formFieldDescription
	formFieldCount
)

// titleCharLimit matches the server-side title column width.
const titleCharLimit = 255

// taskForm holds the create/edit modal drafts.
type taskForm struct {
	taskID      int64
	title       textinput.Model
	description textarea.Model
	focus       int
	submitting  bool
}

// newTaskForm seeds a form from task, or an empty create form when task is nil.
func newTaskForm(task *domain.Task) taskForm {
	title := ""
	description := ""
	var taskID int64
	if task != nil {
		taskID = task.ID
		title = task.Title
		description = task.Description
	}
	desc := textarea.New()
	desc.Placeholder = "Optional details..."
	desc.ShowLineNumbers = false
	desc.CharLimit = 0
	desc.SetHeight(4)
	desc.SetWidth(48)
	if description != "" {
		desc.SetValue(description)
	}
	return taskForm{
		taskID:      taskID,
		title:       newModalInput("", "e.g. Finish report", title, titleCharLimit),
		description: desc,
	}
}

// editing reports whether the form edits an existing task.
func (f taskForm) editing() bool {
	return f.taskID > 0
}

// focusField moves focus to idx, wrapping around the field list.
func (f *taskForm) focusField(idx int) tea.Cmd {
	idx = ((idx % formFieldCount) + formFieldCount) % formFieldCount
	f.focus = idx
	f.title.Blur()
	f.description.Blur()
	if idx == formFieldTitle {
		return f.title.Focus()
	}
	return f.description.Focus()
}

// values returns the trimmed drafts.
func (f taskForm) values() (string, string) {
	return strings.TrimSpace(f.title.Value()), strings.TrimSpace(f.description.Value())
}

// setWidth resizes both inputs to fit inside a modal of width w.
func (f *taskForm) setWidth(w int) {
	inner := max(16, w-4)
	f.title.SetWidth(inner)
	f.description.SetWidth(inner)
}

// update forwards one message to the focused field.
func (f taskForm) update(msg tea.Msg) (taskForm, tea.Cmd) {
	var cmd tea.Cmd
	if f.focus == formFieldTitle {
		f.title, cmd = f.title.Update(msg)
	} else {
		f.description, cmd = f.description.Update(msg)
	}
	return f, cmd
}

// view renders the modal body.
func (f taskForm) view(accent, muted color.Color, maxWidth int) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	if maxWidth > 0 {
		style = style.Width(clamp(maxWidth, 36, 72))
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle := lipgloss.NewStyle().Foreground(muted)
	focusedLabel := lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle := lipgloss.NewStyle().Foreground(muted)

	heading := "New Task"
	submit := "create"
	if f.editing() {
		heading = "Edit Task"
		submit = "save"
	}
	label := func(idx int, text string) string {
		if f.focus == idx {
			return focusedLabel.Render(text)
		}
		return labelStyle.Render(text)
	}
	lines := []string{
		titleStyle.Render(heading),
		label(formFieldTitle, "Title"),
		f.title.View(),
		label(formFieldDescription, "Description"),
		f.description.View(),
	}
	if f.submitting {
		lines = append(lines, hintStyle.Render("saving..."))
	}
	lines = append(lines, hintStyle.Render(strings.Join([]string{
		"tab next field",
		"ctrl+s " + submit,
		"enter " + submit + " (title)",
		"esc cancel",
	}, " • ")))
	return style.Render(strings.Join(lines, "\n"))
}
