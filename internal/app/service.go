package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evanschultz/taskdeck/internal/domain"
)

// Service applies client-side preconditions before delegating to the gateway.
// It keeps no task state; callers refetch after every mutation.
type Service struct {
	gw    Gateway
	clock func() time.Time
}

// NewService constructs a new value for this package.
func NewService(gw Gateway) (*Service, error) {
	if gw == nil {
		return nil, ErrGatewayRequired
	}
	return &Service{gw: gw, clock: time.Now}, nil
}

// CreateTaskInput holds input values for create task operations.
type CreateTaskInput struct {
	Title       string
	Description string
}

// UpdateTaskInput holds input values for field edits.
type UpdateTaskInput struct {
	TaskID      int64
	Title       string
	Description string
}

// ListTasks lists tasks for a filter. ALL issues no status query.
func (s *Service) ListTasks(ctx context.Context, filter domain.Filter) ([]domain.Task, error) {
	if filter == "" {
		filter = domain.FilterAll
	}
	if _, err := domain.ParseFilter(string(filter)); err != nil {
		return nil, err
	}
	status, _ := filter.Status()
	tasks, err := s.gw.ListTasks(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns task.
func (s *Service) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	if id <= 0 {
		return domain.Task{}, domain.ErrInvalidID
	}
	task, err := s.gw.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return task, nil
}

// CreateTask creates a task. A blank title never reaches the gateway.
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (domain.Task, error) {
	title, err := requireTitle(in.Title)
	if err != nil {
		return domain.Task{}, err
	}
	task, err := s.gw.CreateTask(ctx, title, strings.TrimSpace(in.Description))
	if err != nil {
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// UpdateTaskFields saves an edited title and description.
func (s *Service) UpdateTaskFields(ctx context.Context, in UpdateTaskInput) (domain.Task, error) {
	if in.TaskID <= 0 {
		return domain.Task{}, domain.ErrInvalidID
	}
	title, err := requireTitle(in.Title)
	if err != nil {
		return domain.Task{}, err
	}
	task, err := s.gw.PatchTaskFields(ctx, in.TaskID, title, strings.TrimSpace(in.Description))
	if err != nil {
		return domain.Task{}, fmt.Errorf("update task %d: %w", in.TaskID, err)
	}
	return task, nil
}

// ChangeStatus asks the server to move a task to status.
func (s *Service) ChangeStatus(ctx context.Context, id int64, status domain.Status) (domain.Task, error) {
	if id <= 0 {
		return domain.Task{}, domain.ErrInvalidID
	}
	if !status.Valid() {
		return domain.Task{}, domain.ErrInvalidStatus
	}
	task, err := s.gw.PatchTaskStatus(ctx, id, status)
	if err != nil {
		return domain.Task{}, fmt.Errorf("change task %d status: %w", id, err)
	}
	return task, nil
}

// DeleteTask deletes task.
func (s *Service) DeleteTask(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.ErrInvalidID
	}
	if err := s.gw.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return nil
}

// SendCommand forwards a free-text assistant command.
func (s *Service) SendCommand(ctx context.Context, command string) (domain.AIResponse, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return domain.AIResponse{}, ErrCommandRequired
	}
	resp, err := s.gw.SendAICommand(ctx, command)
	if err != nil {
		return domain.AIResponse{}, fmt.Errorf("send assistant command: %w", err)
	}
	return resp, nil
}

// requireTitle trims a title and maps blank input to ErrTitleRequired.
func requireTitle(raw string) (string, error) {
	title, err := domain.NormalizeTitle(raw)
	if err != nil {
		return "", ErrTitleRequired
	}
	return title, nil
}
