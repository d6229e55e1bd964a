package tui

import (
	"context"
	"fmt"
	"image/color"
	"maps"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"
	"github.com/evanschultz/taskdeck/internal/app"
	"github.com/evanschultz/taskdeck/internal/domain"
)

// Service represents service data used by this package.
type Service interface {
	ListTasks(context.Context, domain.Filter) ([]domain.Task, error)
	CreateTask(context.Context, app.CreateTaskInput) (domain.Task, error)
	UpdateTaskFields(context.Context, app.UpdateTaskInput) (domain.Task, error)
	ChangeStatus(context.Context, int64, domain.Status) (domain.Task, error)
	DeleteTask(context.Context, int64) error
	SendCommand(context.Context, string) (domain.AIResponse, error)
}

// User-facing failure messages.
const (
	msgStatusFailed = "Failed to update status. Check transition rules."
	msgDeleteFailed = "Failed to delete task."
	msgCreateFailed = "Failed to create task."
	msgUpdateFailed = "Failed to update task."
	msgNoTasks      = "No tasks found. Create one or ask the assistant!"
)

// defaultRequestTimeout bounds each service call issued from the UI.
const defaultRequestTimeout = 10 * time.Second

// listTop is the first screen row of the task list.
const listTop = 3

// assistantPanelWidth is the side panel width on wide terminals.
const assistantPanelWidth = 40

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeAddTask
	modeEditTask
	modeTaskInfo
	modeConfirmDelete
	modeAssistant
	modeDrag
)

// confirmAction holds the task a confirmation prompt applies to.
type confirmAction struct {
	Label string
	Task  domain.Task
}

// Model is the task list orchestrator.
type Model struct {
	svc Service

	ready  bool
	width  int
	height int
	err    error

	status    string
	statusErr bool

	help help.Model
	keys keyMap

	filter           domain.Filter
	showAssistant    bool
	showDescriptions bool
	timeout          time.Duration
	copyText         ClipboardFunc

	tasks    []domain.Task
	selected int
	loaded   bool
	// loadSeq identifies the latest issued list fetch; older responses are dropped.
	loadSeq  int
	inflight map[int64]struct{}

	mode           inputMode
	form           taskForm
	infoTaskID     int64
	markdown       *markdownRenderer
	pendingConfirm confirmAction
	confirmChoice  int
	drag           dragState
	pressedTaskID  int64
	assistant      assistantPanel
}

// loadedMsg carries one list fetch result.
type loadedMsg struct {
	seq   int
	tasks []domain.Task
	err   error
}

// actionMsg carries message data through update handling.
type actionMsg struct {
	err     error
	status  string
	failure string
	reload  bool
	taskID  int64
}

// formSavedMsg reports the outcome of a create or edit submission.
type formSavedMsg struct {
	editing bool
	err     error
}

// assistantMsg carries one assistant command outcome.
type assistantMsg struct {
	resp domain.AIResponse
	err  error
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:           svc,
		status:        "loading...",
		help:          h,
		keys:          newKeyMap(),
		filter:        domain.FilterAll,
		showAssistant: true,
		timeout:       defaultRequestTimeout,
		copyText:      clipboard.WriteAll,
		loadSeq:       1,
		inflight:      map[int64]struct{}{},
		markdown:      &markdownRenderer{},
		assistant:     newAssistantPanel(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadTasksCmd(m.loadSeq)
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		if m.mode == modeAddTask || m.mode == modeEditTask {
			m.form.setWidth(m.modalWidth())
		}
		return m, nil

	case loadedMsg:
		if msg.seq != m.loadSeq {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.loaded = true
		m.tasks = msg.tasks
		if m.mode == modeDrag {
			m.mode = modeNone
		}
		m.drag = dragState{}
		m.pressedTaskID = 0
		m.selected = clamp(m.selected, 0, len(m.tasks)-1)
		if m.status == "loading..." || m.status == "reloading..." {
			m.setStatus("ready")
		}
		return m, nil

	case actionMsg:
		if msg.taskID > 0 {
			m.inflight = without(m.inflight, msg.taskID)
		}
		if msg.err != nil {
			m.setError(msg.failure)
			return m, nil
		}
		m.setStatus(msg.status)
		if msg.reload {
			cmd := m.fetchTasks()
			return m, cmd
		}
		return m, nil

	case formSavedMsg:
		m.form.submitting = false
		if msg.err != nil {
			if msg.editing {
				m.setError(msgUpdateFailed)
			} else {
				m.setError(msgCreateFailed)
			}
			return m, nil
		}
		if m.mode == modeAddTask || m.mode == modeEditTask {
			m.mode = modeNone
			m.form = taskForm{}
		}
		if msg.editing {
			m.setStatus("task updated")
		} else {
			m.setStatus("task created")
		}
		cmd := m.fetchTasks()
		return m, cmd

	case assistantMsg:
		if m.assistant.finish(msg.resp, msg.err) {
			cmd := m.fetchTasks()
			return m, cmd
		}
		return m, nil

	case spinner.TickMsg:
		if !m.assistant.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.assistant.spinner, cmd = m.assistant.spinner.Update(msg)
		return m, cmd

	case tea.KeyPressMsg:
		if m.err != nil {
			return m.handleErrorKey(msg)
		}
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)
	}

	var cmd tea.Cmd
	switch m.mode {
	case modeAddTask, modeEditTask:
		m.form, cmd = m.form.update(msg)
	case modeAssistant:
		m.assistant.input, cmd = m.assistant.input.Update(msg)
	}
	return m, cmd
}

// View renders the current model state.
func (m Model) View() tea.View {
	if m.err != nil {
		return newView("error: " + m.err.Error() + "\n\npress r to retry • q quit\n")
	}
	if !m.ready {
		return newView("loading...")
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)
	errorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))

	header := titleStyle.Render("taskdeck") + statusStyle.Render("  ["+m.modeLabel()+"]")
	header += statusStyle.Render(fmt.Sprintf("  %d tasks", len(m.tasks)))
	filterBar := m.renderFilterBar(accent, muted)

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	statusLine := statusStyle.Render(m.status)
	if m.statusErr {
		statusLine = errorStyle.Render(m.status)
	}

	listWidth, sidePanel := m.layoutWidths()
	bodyHeight := max(cardHeight, m.height-listTop-lipgloss.Height(helpLine)-1)
	var body string
	switch {
	case !m.showAssistant:
		body = m.renderTaskList(listWidth, bodyHeight, accent, muted, dim)
	case sidePanel:
		panel := m.assistant.view(accent, muted, dim, assistantPanelWidth)
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderTaskList(listWidth, bodyHeight, accent, muted, dim), " ", panel)
	default:
		panel := m.assistant.view(accent, muted, dim, listWidth)
		listHeight := max(cardHeight, bodyHeight-lipgloss.Height(panel))
		body = m.renderTaskList(listWidth, listHeight, accent, muted, dim) + "\n" + panel
	}

	content := strings.Join([]string{header, filterBar, "", body}, "\n")
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)-1))
	}
	fullContent := content + "\n" + statusLine + "\n" + helpLine
	if overlay := m.renderModeOverlay(accent, muted, dim, m.modalWidth()); overlay != "" {
		overlayHeight := lipgloss.Height(fullContent)
		if m.height > 0 {
			overlayHeight = m.height
		}
		fullContent = overlayOnContent(fullContent, overlay, max(1, m.width), max(1, overlayHeight))
	}
	return newView(fullContent)
}

// newView wraps content with the program-wide view settings.
func newView(content string) tea.View {
	v := tea.NewView(content)
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// loadTasksCmd fetches the list for the current filter tagged with seq.
func (m Model) loadTasksCmd(seq int) tea.Cmd {
	svc, filter, timeout := m.svc, m.filter, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		tasks, err := svc.ListTasks(ctx, filter)
		return loadedMsg{seq: seq, tasks: tasks, err: err}
	}
}

// fetchTasks issues a new list fetch, superseding any outstanding one.
func (m *Model) fetchTasks() tea.Cmd {
	m.loadSeq++
	return m.loadTasksCmd(m.loadSeq)
}

// setFilter switches the active filter and refetches.
func (m *Model) setFilter(filter domain.Filter) tea.Cmd {
	m.filter = filter
	m.selected = 0
	m.setStatus("filter: " + filter.Label())
	return m.fetchTasks()
}

// setStatus sets an informational status line.
func (m *Model) setStatus(status string) {
	m.status = status
	m.statusErr = false
}

// setError sets an error status line.
func (m *Model) setError(status string) {
	m.status = status
	m.statusErr = true
}

// newModalInput constructs modal input.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

// handleErrorKey handles keys while the load error screen is shown.
func (m Model) handleErrorKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload):
		m.setStatus("reloading...")
		cmd := m.fetchTasks()
		return m, cmd
	}
	return m, nil
}

// handleNormalModeKey handles list navigation and task actions.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case msg.String() == "esc":
		if m.help.ShowAll {
			m.help.ShowAll = false
		}
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.setStatus("reloading...")
		cmd := m.fetchTasks()
		return m, cmd
	case key.Matches(msg, m.keys.moveDown):
		if m.selected < len(m.tasks)-1 {
			m.selected++
		}
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case key.Matches(msg, m.keys.prevFilter):
		cmd := m.setFilter(m.filter.Shift(-1))
		return m, cmd
	case key.Matches(msg, m.keys.nextFilter):
		cmd := m.setFilter(m.filter.Shift(1))
		return m, cmd
	case key.Matches(msg, m.keys.addTask):
		m.help.ShowAll = false
		cmd := m.startTaskForm(nil)
		return m, cmd
	case key.Matches(msg, m.keys.assistant):
		if !m.showAssistant {
			m.setStatus("assistant hidden")
			return m, nil
		}
		m.mode = modeAssistant
		cmd := m.assistant.focus()
		return m, cmd
	}

	task, ok := m.selectedTask()
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.taskInfo):
		m.mode = modeTaskInfo
		m.infoTaskID = task.ID
		return m, nil
	case key.Matches(msg, m.keys.editTask):
		cmd := m.startTaskForm(&task)
		return m, cmd
	case key.Matches(msg, m.keys.deleteTask):
		if m.isInflight(task.ID) {
			return m, nil
		}
		m.mode = modeConfirmDelete
		m.pendingConfirm = confirmAction{Label: "delete task", Task: task}
		m.confirmChoice = 0
		return m, nil
	case key.Matches(msg, m.keys.advanceStatus):
		next, ok := domain.NextStatus(task.Status)
		if !ok {
			m.setStatus("task is already completed")
			return m, nil
		}
		return m.changeStatus(task, next)
	case key.Matches(msg, m.keys.grabTask):
		m.mode = modeDrag
		m.drag = dragState{active: true, activeID: task.ID, overID: task.ID}
		m.setStatus(fmt.Sprintf("moving %q • j/k move • m/enter drop • esc cancel", truncate(task.Title, 28)))
		return m, nil
	case key.Matches(msg, m.keys.copyTitle):
		return m, m.copyTitleCmd(task)
	}
	return m, nil
}

// handleInputModeKey routes keys to the open modal or panel.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeAddTask, modeEditTask:
		return m.handleFormKey(msg)
	case modeConfirmDelete:
		return m.handleConfirmKey(msg)
	case modeAssistant:
		return m.handleAssistantKey(msg)
	case modeDrag:
		return m.handleDragKey(msg)
	case modeTaskInfo:
		task, ok := m.taskByID(m.infoTaskID)
		switch {
		case msg.String() == "esc" || msg.String() == "q" || key.Matches(msg, m.keys.taskInfo):
			m.mode = modeNone
			m.infoTaskID = 0
			return m, nil
		case ok && key.Matches(msg, m.keys.editTask):
			cmd := m.startTaskForm(&task)
			return m, cmd
		case ok && key.Matches(msg, m.keys.copyTitle):
			return m, m.copyTitleCmd(task)
		}
		return m, nil
	}
	return m, nil
}

// handleFormKey handles keys while the create or edit modal is open.
func (m Model) handleFormKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Code == tea.KeyEscape || msg.String() == "esc":
		m.mode = modeNone
		m.form = taskForm{}
		m.setStatus("cancelled")
		return m, nil
	case msg.Code == tea.KeyTab || msg.String() == "tab":
		cmd := m.form.focusField(m.form.focus + 1)
		return m, cmd
	case msg.String() == "shift+tab" || msg.String() == "backtab":
		cmd := m.form.focusField(m.form.focus - 1)
		return m, cmd
	case msg.String() == "ctrl+s":
		return m.submitForm()
	case (msg.Code == tea.KeyEnter || msg.String() == "enter") && m.form.focus == formFieldTitle:
		return m.submitForm()
	}
	if m.form.submitting {
		return m, nil
	}
	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

// handleConfirmKey handles the delete confirmation prompt.
func (m Model) handleConfirmKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "n":
		m.mode = modeNone
		m.pendingConfirm = confirmAction{}
		m.setStatus("cancelled")
		return m, nil
	case "h", "left", "l", "right":
		if m.confirmChoice == 0 {
			m.confirmChoice = 1
		} else {
			m.confirmChoice = 0
		}
		return m, nil
	case "y":
		m.confirmChoice = 0
		m.mode = modeNone
		action := m.pendingConfirm
		m.pendingConfirm = confirmAction{}
		return m.deleteTask(action.Task)
	case "enter":
		m.mode = modeNone
		action := m.pendingConfirm
		m.pendingConfirm = confirmAction{}
		if m.confirmChoice == 1 {
			m.setStatus("cancelled")
			return m, nil
		}
		return m.deleteTask(action.Task)
	}
	return m, nil
}

// handleAssistantKey handles keys while the assistant input has focus.
func (m Model) handleAssistantKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Code == tea.KeyEscape || msg.String() == "esc":
		m.assistant.blur()
		m.mode = modeNone
		return m, nil
	case msg.Code == tea.KeyEnter || msg.String() == "enter":
		command, ok := m.assistant.begin()
		if !ok {
			return m, nil
		}
		svc, timeout := m.svc, m.timeout
		send := func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			resp, err := svc.SendCommand(ctx, command)
			return assistantMsg{resp: resp, err: err}
		}
		return m, tea.Batch(m.assistant.spinner.Tick, send)
	}
	if m.assistant.busy {
		return m, nil
	}
	var cmd tea.Cmd
	m.assistant.input, cmd = m.assistant.input.Update(msg)
	return m, cmd
}

// handleDragKey moves the drop target and commits or cancels a local reorder.
func (m Model) handleDragKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "esc":
		m.mode = modeNone
		m.drag = dragState{}
		m.setStatus("move cancelled")
		return m, nil
	case key.Matches(msg, m.keys.moveDown), key.Matches(msg, m.keys.moveUp):
		delta := 1
		if key.Matches(msg, m.keys.moveUp) {
			delta = -1
		}
		idx := indexOfTask(m.tasks, m.drag.overID)
		if idx < 0 {
			return m, nil
		}
		idx = clamp(idx+delta, 0, len(m.tasks)-1)
		m.drag.overID = m.tasks[idx].ID
		m.selected = idx
		return m, nil
	case key.Matches(msg, m.keys.grabTask), msg.Code == tea.KeyEnter || msg.String() == "enter":
		m.dropTask(m.drag.activeID, m.drag.overID)
		m.mode = modeNone
		m.drag = dragState{}
		return m, nil
	}
	return m, nil
}

// dropTask applies a local reorder and keeps the moved task selected.
func (m *Model) dropTask(activeID, overID int64) {
	if activeID == overID {
		m.setStatus("order unchanged")
		return
	}
	m.tasks = reorderTasks(m.tasks, activeID, overID)
	if idx := indexOfTask(m.tasks, activeID); idx >= 0 {
		m.selected = idx
	}
	m.setStatus("reordered (local only)")
}

// startTaskForm opens the create modal, or the edit modal seeded from task.
func (m *Model) startTaskForm(task *domain.Task) tea.Cmd {
	m.form = newTaskForm(task)
	m.form.setWidth(m.modalWidth())
	if task != nil {
		m.mode = modeEditTask
	} else {
		m.mode = modeAddTask
	}
	return m.form.focusField(formFieldTitle)
}

// submitForm validates the drafts and issues the create or edit call.
func (m Model) submitForm() (tea.Model, tea.Cmd) {
	if m.form.submitting {
		return m, nil
	}
	title, description := m.form.values()
	if title == "" {
		m.setError("title required")
		return m, nil
	}
	m.form.submitting = true
	svc, timeout := m.svc, m.timeout
	if m.form.editing() {
		in := app.UpdateTaskInput{TaskID: m.form.taskID, Title: title, Description: description}
		m.setStatus("saving task...")
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			_, err := svc.UpdateTaskFields(ctx, in)
			return formSavedMsg{editing: true, err: err}
		}
	}
	in := app.CreateTaskInput{Title: title, Description: description}
	m.setStatus("creating task...")
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, err := svc.CreateTask(ctx, in)
		return formSavedMsg{err: err}
	}
}

// changeStatus requests a status change unless one is already running for task.
func (m Model) changeStatus(task domain.Task, status domain.Status) (tea.Model, tea.Cmd) {
	if m.isInflight(task.ID) {
		return m, nil
	}
	m.inflight = with(m.inflight, task.ID)
	m.setStatus("updating status...")
	svc, timeout := m.svc, m.timeout
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, err := svc.ChangeStatus(ctx, task.ID, status)
		return actionMsg{
			err:     err,
			status:  fmt.Sprintf("%q is now %s", truncate(task.Title, 28), status.Label()),
			failure: msgStatusFailed,
			reload:  true,
			taskID:  task.ID,
		}
	}
}

// deleteTask deletes task unless a request for it is already running.
func (m Model) deleteTask(task domain.Task) (tea.Model, tea.Cmd) {
	if task.ID <= 0 || m.isInflight(task.ID) {
		return m, nil
	}
	m.inflight = with(m.inflight, task.ID)
	m.setStatus("deleting task...")
	svc, timeout := m.svc, m.timeout
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := svc.DeleteTask(ctx, task.ID)
		return actionMsg{
			err:     err,
			status:  fmt.Sprintf("deleted %q", truncate(task.Title, 28)),
			failure: msgDeleteFailed,
			reload:  true,
			taskID:  task.ID,
		}
	}
}

// copyTitleCmd copies the task title to the clipboard.
func (m Model) copyTitleCmd(task domain.Task) tea.Cmd {
	copyText := m.copyText
	return func() tea.Msg {
		return actionMsg{
			err:     copyText(task.Title),
			status:  fmt.Sprintf("copied %q", truncate(task.Title, 28)),
			failure: "Failed to copy title.",
		}
	}
}

// handleMouseWheel handles mouse wheel.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeNone || len(m.tasks) == 0 {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseWheelUp:
		if m.selected > 0 {
			m.selected--
		}
	case tea.MouseWheelDown:
		if m.selected < len(m.tasks)-1 {
			m.selected++
		}
	}
	return m, nil
}

// handleMouseClick selects the card under the pointer and arms a mouse drag.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeNone || msg.Button != tea.MouseLeft {
		return m, nil
	}
	idx, ok := m.taskIndexAt(msg.X, msg.Y)
	if !ok {
		m.pressedTaskID = 0
		return m, nil
	}
	m.selected = idx
	m.pressedTaskID = m.tasks[idx].ID
	return m, nil
}

// handleMouseRelease drops a mouse drag onto the card under the pointer.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	activeID := m.pressedTaskID
	m.pressedTaskID = 0
	if m.mode != modeNone || activeID == 0 {
		return m, nil
	}
	idx, ok := m.taskIndexAt(msg.X, msg.Y)
	if !ok || m.tasks[idx].ID == activeID {
		return m, nil
	}
	m.dropTask(activeID, m.tasks[idx].ID)
	return m, nil
}

// taskIndexAt maps a screen cell to a task index in the visible window.
func (m Model) taskIndexAt(x, y int) (int, bool) {
	listWidth, _ := m.layoutWidths()
	if x < 0 || x >= listWidth || y < listTop || len(m.tasks) == 0 {
		return 0, false
	}
	start, end := windowBounds(len(m.tasks), m.selected, m.visibleCards())
	idx := start + (y-listTop)/cardHeight
	if idx >= end {
		return 0, false
	}
	return idx, true
}

// visibleCards returns how many cards fit in the list area.
func (m Model) visibleCards() int {
	if m.height <= 0 {
		return max(1, len(m.tasks))
	}
	// header, filter bar, spacer, status line, help border, help line.
	return max(1, (m.height-listTop-3)/cardHeight)
}

// layoutWidths returns the list width and whether the assistant sits beside it.
func (m Model) layoutWidths() (int, bool) {
	width := max(m.width, 20)
	if m.showAssistant && width >= 90 {
		return width - assistantPanelWidth - 1, true
	}
	return width, false
}

// modalWidth returns the preferred modal width for the current terminal.
func (m Model) modalWidth() int {
	return max(0, m.width-8)
}

// selectedTask returns the task under the cursor.
func (m Model) selectedTask() (domain.Task, bool) {
	if len(m.tasks) == 0 {
		return domain.Task{}, false
	}
	return m.tasks[clamp(m.selected, 0, len(m.tasks)-1)], true
}

// taskByID finds a loaded task.
func (m Model) taskByID(id int64) (domain.Task, bool) {
	idx := indexOfTask(m.tasks, id)
	if idx < 0 {
		return domain.Task{}, false
	}
	return m.tasks[idx], true
}

// isInflight reports whether a mutation for id is outstanding.
func (m Model) isInflight(id int64) bool {
	_, ok := m.inflight[id]
	return ok
}

// with returns a copy of set containing id.
func with(set map[int64]struct{}, id int64) map[int64]struct{} {
	out := maps.Clone(set)
	if out == nil {
		out = map[int64]struct{}{}
	}
	out[id] = struct{}{}
	return out
}

// without returns a copy of set lacking id.
func without(set map[int64]struct{}, id int64) map[int64]struct{} {
	out := maps.Clone(set)
	delete(out, id)
	return out
}

// renderFilterBar renders the filter tabs.
func (m Model) renderFilterBar(accent, muted color.Color) string {
	active := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")).Background(accent).Padding(0, 1)
	inactive := lipgloss.NewStyle().Foreground(muted).Padding(0, 1)
	parts := make([]string, 0, len(domain.Filters()))
	for _, f := range domain.Filters() {
		label := strings.ToUpper(f.Label())
		if f == m.filter {
			parts = append(parts, active.Render(label))
		} else {
			parts = append(parts, inactive.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

// renderTaskList renders the visible window of cards.
func (m Model) renderTaskList(width, height int, accent, muted, dim color.Color) string {
	if !m.loaded {
		return lipgloss.NewStyle().Foreground(muted).Render("loading tasks...")
	}
	if len(m.tasks) == 0 {
		return lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dim).
			Foreground(muted).
			Padding(1, 2).
			Width(width).
			Align(lipgloss.Center).
			Render(msgNoTasks)
	}
	windowSize := max(1, height/cardHeight)
	start, end := windowBounds(len(m.tasks), m.selected, windowSize)
	cards := make([]string, 0, end-start)
	for idx := start; idx < end; idx++ {
		task := m.tasks[idx]
		state := cardState{
			selected: idx == m.selected,
			inflight: m.isInflight(task.ID),
		}
		if m.drag.active {
			state.dragging = task.ID == m.drag.activeID
			state.dropTarget = task.ID == m.drag.overID && task.ID != m.drag.activeID
		}
		cards = append(cards, renderCard(task, state, m.showDescriptions, width, accent, muted, dim))
	}
	return strings.Join(cards, "\n")
}

// renderModeOverlay renders the modal for the current mode, if any.
func (m Model) renderModeOverlay(accent, muted, dim color.Color, maxWidth int) string {
	switch m.mode {
	case modeAddTask, modeEditTask:
		return m.form.view(accent, muted, maxWidth)

	case modeConfirmDelete:
		style := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)
		if maxWidth > 0 {
			style = style.Width(clamp(maxWidth, 36, 72))
		}
		titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
		hintStyle := lipgloss.NewStyle().Foreground(muted)
		taskTitle := strings.TrimSpace(m.pendingConfirm.Task.Title)
		if taskTitle == "" {
			taskTitle = "(unknown task)"
		}
		confirmStyle := lipgloss.NewStyle().Foreground(muted)
		cancelStyle := lipgloss.NewStyle().Foreground(muted)
		if m.confirmChoice == 0 {
			confirmStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
		} else {
			cancelStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
		}
		lines := []string{
			titleStyle.Render("Are you sure?"),
			fmt.Sprintf("%s: %s", m.pendingConfirm.Label, taskTitle),
			confirmStyle.Render("[delete]") + "  " + cancelStyle.Render("[cancel]"),
			hintStyle.Render("enter apply • esc cancel • h/l switch • y confirm • n cancel"),
		}
		return style.Render(strings.Join(lines, "\n"))

	case modeTaskInfo:
		task, ok := m.taskByID(m.infoTaskID)
		if !ok {
			return ""
		}
		boxWidth := clamp(maxWidth, 24, 76)
		boxStyle := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1).
			Width(boxWidth)
		titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
		hintStyle := lipgloss.NewStyle().Foreground(muted)
		lines := []string{
			titleStyle.Render("Task Info"),
			task.Title,
			hintStyle.Render(fmt.Sprintf("#%d • %s", task.ID, task.DisplayStatus())),
			hintStyle.Render("created " + formatTimestamp(task.CreatedAt) + " • updated " + formatTimestamp(task.UpdatedAt)),
		}
		if next, ok := domain.NextStatus(task.Status); ok {
			lines = append(lines, hintStyle.Render("next: "+next.Label()))
		}
		lines = append(lines, "")
		if description := m.markdown.render(task.Description, boxWidth-4); description != "" {
			lines = append(lines, description)
		} else {
			lines = append(lines, hintStyle.Render("(no description)"))
		}
		lines = append(lines, "", hintStyle.Render("e edit • y copy title • esc close"))
		return boxStyle.Render(strings.Join(lines, "\n"))
	}
	return ""
}

// modeLabel returns the header label for the current mode.
func (m Model) modeLabel() string {
	switch m.mode {
	case modeAddTask:
		return "new task"
	case modeEditTask:
		return "edit task"
	case modeTaskInfo:
		return "task info"
	case modeConfirmDelete:
		return "confirm"
	case modeAssistant:
		return "assistant"
	case modeDrag:
		return "move"
	default:
		return m.filter.Label()
	}
}

// formatTimestamp renders a task timestamp in local time.
func formatTimestamp(at time.Time) string {
	if at.IsZero() {
		return "-"
	}
	return at.Local().Format("2006-01-02 15:04")
}

// windowBounds returns an inclusive-exclusive list window that keeps selected visible.
func windowBounds(total, selected, windowSize int) (int, int) {
	if total <= 0 || windowSize <= 0 {
		return 0, 0
	}
	if total <= windowSize {
		return 0, total
	}
	selected = clamp(selected, 0, total-1)
	start := max(0, selected-windowSize/2)
	end := start + windowSize
	if end > total {
		end = total
		start = max(0, end-windowSize)
	}
	return start, end
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate truncates the requested operation.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
