// Package backend implements the reference task server's business rules.
package backend

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/evanschultz/taskdeck/internal/domain"
)

// MaxTitleLength bounds task titles in runes.
const MaxTitleLength = 255

// allowedTransitions is the forward-only lifecycle. COMPLETED is terminal.
var allowedTransitions = map[domain.Status][]domain.Status{
	domain.StatusNotStarted: {domain.StatusInProgress},
	domain.StatusInProgress: {domain.StatusCompleted},
	domain.StatusCompleted:  nil,
}

// CheckTransition validates moving a task from one status to another.
// Re-sending the current status is allowed and changes nothing.
func CheckTransition(from domain.Status, to string) error {
	if string(from) == to {
		return nil
	}
	for _, next := range allowedTransitions[from] {
		if string(next) == to {
			return nil
		}
	}
	return &TransitionError{From: from, To: to}
}

// TaskPatch holds optional field updates. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *string
}

// Option customizes a TaskService.
type Option func(*TaskService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) {
		if now != nil {
			s.clock = now
		}
	}
}

// TaskService owns task validation and the status state machine.
type TaskService struct {
	repo  Repository
	clock func() time.Time
}

// NewTaskService constructs a new value for this package.
func NewTaskService(repo Repository, opts ...Option) (*TaskService, error) {
	if repo == nil {
		return nil, ErrRepositoryMissing
	}
	s := &TaskService{repo: repo, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// ListTasks lists tasks newest first, optionally filtered by status.
func (s *TaskService) ListTasks(ctx context.Context, status domain.Status) ([]domain.Task, error) {
	if status != "" && !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	tasks, err := s.repo.ListTasks(ctx, status)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i].StatusDisplay = tasks[i].Status.Label()
	}
	return tasks, nil
}

// GetTask returns task.
func (s *TaskService) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	if id <= 0 {
		return domain.Task{}, domain.ErrInvalidID
	}
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	task.StatusDisplay = task.Status.Label()
	return task, nil
}

// CreateTask creates a NOT_STARTED task.
func (s *TaskService) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	task, err := domain.NewTask(in, s.clock())
	if err != nil {
		return domain.Task{}, err
	}
	if utf8.RuneCountInString(task.Title) > MaxTitleLength {
		return domain.Task{}, ErrTitleTooLong
	}
	return s.repo.CreateTask(ctx, task)
}

// UpdateTask applies a patch. Every field is validated before anything is
// saved, so a rejected transition leaves the task untouched.
func (s *TaskService) UpdateTask(ctx context.Context, id int64, patch TaskPatch) (domain.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	now := s.clock()
	changed := false
	if patch.Title != nil {
		if err := task.Rename(*patch.Title, now); err != nil {
			return domain.Task{}, err
		}
		if utf8.RuneCountInString(task.Title) > MaxTitleLength {
			return domain.Task{}, ErrTitleTooLong
		}
		changed = true
	}
	if patch.Description != nil {
		task.Describe(*patch.Description, now)
		changed = true
	}
	if patch.Status != nil {
		if err := CheckTransition(task.Status, *patch.Status); err != nil {
			return domain.Task{}, err
		}
		if next := domain.Status(*patch.Status); next != task.Status {
			if err := task.SetStatus(next, now); err != nil {
				return domain.Task{}, err
			}
			changed = true
		}
	}
	if !changed {
		return task, nil
	}
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// UpdateStatus moves a task to status under the transition rules.
func (s *TaskService) UpdateStatus(ctx context.Context, id int64, status string) (domain.Task, error) {
	return s.UpdateTask(ctx, id, TaskPatch{Status: &status})
}

// DeleteTask deletes task.
func (s *TaskService) DeleteTask(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.ErrInvalidID
	}
	return s.repo.DeleteTask(ctx, id)
}

// FindTask resolves a task by id, or failing that by a title fragment.
// An id that does not exist does not fall back to the title.
func (s *TaskService) FindTask(ctx context.Context, id int64, title string) (domain.Task, error) {
	if id > 0 {
		return s.GetTask(ctx, id)
	}
	if title == "" {
		return domain.Task{}, ErrNotFound
	}
	task, err := s.repo.FindTaskByTitle(ctx, title)
	if err != nil {
		return domain.Task{}, err
	}
	task.StatusDisplay = task.Status.Label()
	return task, nil
}
