package tui

import (
	"slices"

	"github.com/evanschultz/taskdeck/internal/domain"
)

// dragState tracks an in-progress local reorder.
type dragState struct {
	active   bool
	activeID int64
	overID   int64
}

// reorderTasks moves activeID to overID's position. It returns tasks unchanged
// when either id is unknown or both resolve to the same position.
func reorderTasks(tasks []domain.Task, activeID, overID int64) []domain.Task {
	from := indexOfTask(tasks, activeID)
	to := indexOfTask(tasks, overID)
	if from < 0 || to < 0 || from == to {
		return tasks
	}
	out := slices.Clone(tasks)
	moved := out[from]
	out = slices.Delete(out, from, from+1)
	out = slices.Insert(out, to, moved)
	return out
}

// indexOfTask returns the position of id, or -1.
func indexOfTask(tasks []domain.Task, id int64) int {
	return slices.IndexFunc(tasks, func(t domain.Task) bool {
		return t.ID == id
	})
}
