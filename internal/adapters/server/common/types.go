// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"net/http"

	"github.com/evanschultz/taskdeck/internal/backend"
	"github.com/evanschultz/taskdeck/internal/domain"
)

// TaskService is the task surface both transports expose.
type TaskService interface {
	ListTasks(ctx context.Context, status domain.Status) ([]domain.Task, error)
	GetTask(ctx context.Context, id int64) (domain.Task, error)
	CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error)
	UpdateTask(ctx context.Context, id int64, patch backend.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// CommandRunner runs assistant commands.
type CommandRunner interface {
	RunCommand(ctx context.Context, command string) (domain.AIResponse, error)
}

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrorClass is the transport-neutral classification of one failure.
type ErrorClass struct {
	Status int
	Code   string
}

// Classify maps service errors onto HTTP status codes and stable error codes.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ErrorClass{Status: http.StatusInternalServerError, Code: "internal_error"}
	case errors.Is(err, backend.ErrNotFound):
		return ErrorClass{Status: http.StatusNotFound, Code: "not_found"}
	case errors.Is(err, backend.ErrInvalidTransition):
		return ErrorClass{Status: http.StatusBadRequest, Code: "invalid_transition"}
	case errors.Is(err, backend.ErrAssistantUnavailable):
		return ErrorClass{Status: http.StatusServiceUnavailable, Code: "assistant_unavailable"}
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, backend.ErrCommandRequired),
		errors.Is(err, backend.ErrTitleTooLong),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidID):
		return ErrorClass{Status: http.StatusBadRequest, Code: "invalid_request"}
	default:
		return ErrorClass{Status: http.StatusInternalServerError, Code: "internal_error"}
	}
}

// PublicMessage returns the client-facing text for err. Internal failures are
// not echoed verbatim.
func PublicMessage(err error) string {
	var transitionErr *backend.TransitionError
	switch {
	case err == nil:
		return "unknown error"
	case errors.As(err, &transitionErr):
		return transitionErr.Error()
	case errors.Is(err, backend.ErrNotFound):
		return "Not found."
	case errors.Is(err, backend.ErrCommandRequired):
		return backend.ErrCommandRequired.Error()
	case errors.Is(err, domain.ErrInvalidTitle):
		return "title is required"
	case errors.Is(err, backend.ErrTitleTooLong):
		return "title must be at most 255 characters"
	case errors.Is(err, domain.ErrInvalidStatus):
		return "status must be one of NOT_STARTED, IN_PROGRESS, COMPLETED"
	case Classify(err).Status == http.StatusInternalServerError:
		return "internal server error"
	default:
		return err.Error()
	}
}
