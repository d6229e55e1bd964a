package backend

import (
	"context"

	"github.com/evanschultz/taskdeck/internal/domain"
)

// Repository persists tasks for the reference server.
type Repository interface {
	// CreateTask stores t and returns it with its assigned id.
	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	UpdateTask(ctx context.Context, t domain.Task) error
	GetTask(ctx context.Context, id int64) (domain.Task, error)
	// ListTasks returns newest first. An empty status lists everything.
	ListTasks(ctx context.Context, status domain.Status) ([]domain.Task, error)
	// FindTaskByTitle returns the lowest-id task whose title contains
	// fragment, ignoring case.
	FindTaskByTitle(ctx context.Context, fragment string) (domain.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}
