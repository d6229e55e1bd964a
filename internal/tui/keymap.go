package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit          key.Binding
	reload        key.Binding
	toggleHelp    key.Binding
	prevFilter    key.Binding
	nextFilter    key.Binding
	moveUp        key.Binding
	moveDown      key.Binding
	addTask       key.Binding
	taskInfo      key.Binding
	editTask      key.Binding
	deleteTask    key.Binding
	advanceStatus key.Binding
	grabTask      key.Binding
	copyTitle     key.Binding
	assistant     key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		prevFilter:    key.NewBinding(key.WithKeys("h", "left", "shift+tab"), key.WithHelp("h/←", "prev filter")),
		nextFilter:    key.NewBinding(key.WithKeys("l", "right", "tab"), key.WithHelp("l/→", "next filter")),
		moveUp:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "task up")),
		moveDown:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "task down")),
		addTask:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new task")),
		taskInfo:      key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i/enter", "task info")),
		editTask:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit task")),
		deleteTask:    key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete task")),
		advanceStatus: key.NewBinding(key.WithKeys("s", "space"), key.WithHelp("s", "advance status")),
		grabTask:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "grab/drop task")),
		copyTitle:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy title")),
		assistant:     key.NewBinding(key.WithKeys("a", "/"), key.WithHelp("a", "ask assistant")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.addTask, k.editTask, k.advanceStatus, k.deleteTask, k.prevFilter, k.nextFilter, k.assistant, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.addTask, k.taskInfo, k.editTask, k.deleteTask, k.advanceStatus},
		{k.moveUp, k.moveDown, k.prevFilter, k.nextFilter, k.grabTask},
		{k.copyTitle, k.assistant, k.toggleHelp, k.reload, k.quit},
	}
}
