package app

import (
	"context"

	"github.com/evanschultz/taskdeck/internal/domain"
)

// Gateway is the remote task API the client service drives.
type Gateway interface {
	ListTasks(context.Context, domain.Status) ([]domain.Task, error)
	GetTask(context.Context, int64) (domain.Task, error)
	CreateTask(ctx context.Context, title, description string) (domain.Task, error)
	PatchTaskStatus(context.Context, int64, domain.Status) (domain.Task, error)
	PatchTaskFields(ctx context.Context, id int64, title, description string) (domain.Task, error)
	DeleteTask(context.Context, int64) error
	SendAICommand(context.Context, string) (domain.AIResponse, error)
}
