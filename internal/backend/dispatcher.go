package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/evanschultz/taskdeck/internal/domain"
)

// maxListedTasks caps the task summaries returned by list_tasks.
const maxListedTasks = 5

// Dispatcher executes interpreted assistant intents against the task service.
type Dispatcher struct {
	tasks *TaskService
}

// NewDispatcher constructs a new value for this package.
func NewDispatcher(tasks *TaskService) *Dispatcher {
	return &Dispatcher{tasks: tasks}
}

// Dispatch runs one intent. Domain failures come back as an unsuccessful
// result; only storage failures are returned as errors.
func (d *Dispatcher) Dispatch(ctx context.Context, intent domain.AIIntent) (domain.AIResult, error) {
	switch intent.Action {
	case domain.ActionCreateTask:
		return d.createTask(ctx, intent)
	case domain.ActionUpdateTaskStatus:
		return d.updateStatus(ctx, intent)
	case domain.ActionListTasks:
		return d.listTasks(ctx, intent)
	case domain.ActionDeleteTask:
		return d.deleteTask(ctx, intent)
	default:
		return failure("Unknown action."), nil
	}
}

func (d *Dispatcher) createTask(ctx context.Context, intent domain.AIIntent) (domain.AIResult, error) {
	title := intent.StringParam("title")
	if title == "" {
		return failure("Title is required for creating a task."), nil
	}
	task, err := d.tasks.CreateTask(ctx, domain.TaskInput{
		Title:       title,
		Description: intent.StringParam("description"),
	})
	if errors.Is(err, ErrTitleTooLong) {
		return failure(fmt.Sprintf("Title must be at most %d characters.", MaxTitleLength)), nil
	}
	if err != nil {
		return domain.AIResult{}, err
	}
	return domain.AIResult{
		Success: true,
		Message: fmt.Sprintf("Task '%s' created successfully.", task.Title),
		Task:    &domain.AITaskRef{ID: task.ID, Title: task.Title},
	}, nil
}

func (d *Dispatcher) updateStatus(ctx context.Context, intent domain.AIIntent) (domain.AIResult, error) {
	task, found, err := d.findTask(ctx, intent)
	if err != nil || !found {
		return failure("Task not found."), err
	}
	status := intent.StringParam("status")
	if _, err := d.tasks.UpdateStatus(ctx, task.ID, status); err != nil {
		var transitionErr *TransitionError
		if errors.As(err, &transitionErr) {
			return failure(transitionErr.Error()), nil
		}
		return domain.AIResult{}, err
	}
	return domain.AIResult{
		Success: true,
		Message: fmt.Sprintf("Task '%s' updated to %s.", task.Title, status),
	}, nil
}

func (d *Dispatcher) listTasks(ctx context.Context, intent domain.AIIntent) (domain.AIResult, error) {
	status := domain.Status(intent.StringParam("status"))
	if status != "" && !status.Valid() {
		return domain.AIResult{Success: true, Message: "Found 0 tasks.", Tasks: []domain.AITaskRef{}}, nil
	}
	tasks, err := d.tasks.ListTasks(ctx, status)
	if err != nil {
		return domain.AIResult{}, err
	}
	refs := make([]domain.AITaskRef, 0, min(len(tasks), maxListedTasks))
	for _, task := range tasks[:min(len(tasks), maxListedTasks)] {
		refs = append(refs, domain.AITaskRef{ID: task.ID, Title: task.Title, Status: task.Status})
	}
	return domain.AIResult{
		Success: true,
		Message: fmt.Sprintf("Found %d tasks.", len(tasks)),
		Tasks:   refs,
	}, nil
}

func (d *Dispatcher) deleteTask(ctx context.Context, intent domain.AIIntent) (domain.AIResult, error) {
	task, found, err := d.findTask(ctx, intent)
	if err != nil || !found {
		return failure("Task not found."), err
	}
	if err := d.tasks.DeleteTask(ctx, task.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return failure("Task not found."), nil
		}
		return domain.AIResult{}, err
	}
	return domain.AIResult{Success: true, Message: fmt.Sprintf("Task '%s' deleted.", task.Title)}, nil
}

// findTask resolves task_id first, then a case-insensitive title fragment.
func (d *Dispatcher) findTask(ctx context.Context, intent domain.AIIntent) (domain.Task, bool, error) {
	id, _ := intent.IDParam("task_id")
	task, err := d.tasks.FindTask(ctx, id, intent.StringParam("title"))
	switch {
	case err == nil:
		return task, true, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, domain.ErrInvalidID):
		return domain.Task{}, false, nil
	default:
		return domain.Task{}, false, err
	}
}

func failure(message string) domain.AIResult {
	return domain.AIResult{Success: false, Message: message}
}
