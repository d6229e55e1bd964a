package app

import (
	"context"
	"errors"
	"testing"

	"github.com/evanschultz/taskdeck/internal/domain"
)

// fakeGateway records calls and returns canned replies.
type fakeGateway struct {
	calls      []string
	listStatus []domain.Status
	created    []CreateTaskInput
	patched    []UpdateTaskInput
	err        error
	aiResp     domain.AIResponse
}

func (f *fakeGateway) ListTasks(_ context.Context, status domain.Status) ([]domain.Task, error) {
	f.calls = append(f.calls, "list")
	f.listStatus = append(f.listStatus, status)
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Task{{ID: 1, Title: "a", Status: domain.StatusNotStarted}}, nil
}

func (f *fakeGateway) GetTask(_ context.Context, id int64) (domain.Task, error) {
	f.calls = append(f.calls, "get")
	return domain.Task{ID: id}, f.err
}

func (f *fakeGateway) CreateTask(_ context.Context, title, description string) (domain.Task, error) {
	f.calls = append(f.calls, "create")
	f.created = append(f.created, CreateTaskInput{Title: title, Description: description})
	if f.err != nil {
		return domain.Task{}, f.err
	}
	return domain.Task{ID: 2, Title: title, Description: description, Status: domain.StatusNotStarted}, nil
}

func (f *fakeGateway) PatchTaskStatus(_ context.Context, id int64, status domain.Status) (domain.Task, error) {
	f.calls = append(f.calls, "status")
	if f.err != nil {
		return domain.Task{}, f.err
	}
	return domain.Task{ID: id, Status: status}, nil
}

func (f *fakeGateway) PatchTaskFields(_ context.Context, id int64, title, description string) (domain.Task, error) {
	f.calls = append(f.calls, "fields")
	f.patched = append(f.patched, UpdateTaskInput{TaskID: id, Title: title, Description: description})
	if f.err != nil {
		return domain.Task{}, f.err
	}
	return domain.Task{ID: id, Title: title, Description: description}, nil
}

func (f *fakeGateway) DeleteTask(context.Context, int64) error {
	f.calls = append(f.calls, "delete")
	return f.err
}

func (f *fakeGateway) SendAICommand(context.Context, string) (domain.AIResponse, error) {
	f.calls = append(f.calls, "ai")
	return f.aiResp, f.err
}

func newTestService(t *testing.T, gw *fakeGateway) *Service {
	t.Helper()
	svc, err := NewService(gw)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func TestNewServiceRequiresGateway(t *testing.T) {
	if _, err := NewService(nil); !errors.Is(err, ErrGatewayRequired) {
		t.Fatalf("expected ErrGatewayRequired, got %v", err)
	}
}

func TestListTasksMapsFilterToStatusQuery(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestService(t, gw)

	for _, filter := range domain.Filters() {
		if _, err := svc.ListTasks(context.Background(), filter); err != nil {
			t.Fatalf("ListTasks(%q) error = %v", filter, err)
		}
	}
	want := []domain.Status{"", domain.StatusNotStarted, domain.StatusInProgress, domain.StatusCompleted}
	if len(gw.listStatus) != len(want) {
		t.Fatalf("unexpected list calls %#v", gw.listStatus)
	}
	for i := range want {
		if gw.listStatus[i] != want[i] {
			t.Fatalf("list call %d status = %q, want %q", i, gw.listStatus[i], want[i])
		}
	}
	if _, err := svc.ListTasks(context.Background(), "SOMEDAY"); !errors.Is(err, domain.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestCreateTaskBlankTitleNeverCallsGateway(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestService(t, gw)

	for _, title := range []string{"", "   ", "\t\n"} {
		if _, err := svc.CreateTask(context.Background(), CreateTaskInput{Title: title, Description: "anything"}); !errors.Is(err, ErrTitleRequired) {
			t.Fatalf("CreateTask(%q) expected ErrTitleRequired, got %v", title, err)
		}
	}
	if len(gw.calls) != 0 {
		t.Fatalf("expected no gateway calls, got %#v", gw.calls)
	}

	task, err := svc.CreateTask(context.Background(), CreateTaskInput{Title: "  Buy milk ", Description: " 2L "})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if task.Title != "Buy milk" || gw.created[0].Description != "2L" {
		t.Fatalf("expected trimmed input, got %#v", gw.created)
	}
}

func TestUpdateTaskFieldsValidation(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestService(t, gw)

	if _, err := svc.UpdateTaskFields(context.Background(), UpdateTaskInput{TaskID: 1, Title: " "}); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	if _, err := svc.UpdateTaskFields(context.Background(), UpdateTaskInput{TaskID: 0, Title: "x"}); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := svc.UpdateTaskFields(context.Background(), UpdateTaskInput{TaskID: 5, Title: "X", Description: "d"}); err != nil {
		t.Fatalf("UpdateTaskFields() error = %v", err)
	}
	if len(gw.patched) != 1 || gw.patched[0] != (UpdateTaskInput{TaskID: 5, Title: "X", Description: "d"}) {
		t.Fatalf("unexpected patch calls %#v", gw.patched)
	}
}

func TestChangeStatusValidatesEnum(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestService(t, gw)

	if _, err := svc.ChangeStatus(context.Background(), 1, "DONE"); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if len(gw.calls) != 0 {
		t.Fatalf("expected no gateway calls, got %#v", gw.calls)
	}
	task, err := svc.ChangeStatus(context.Background(), 1, domain.StatusInProgress)
	if err != nil || task.Status != domain.StatusInProgress {
		t.Fatalf("ChangeStatus() = %#v, %v", task, err)
	}
}

func TestGatewayErrorsAreWrapped(t *testing.T) {
	sentinel := errors.New("boom")
	gw := &fakeGateway{err: sentinel}
	svc := newTestService(t, gw)

	if _, err := svc.ListTasks(context.Background(), domain.FilterAll); !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
	if err := svc.DeleteTask(context.Background(), 3); !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
	if _, err := svc.SendCommand(context.Background(), "list tasks"); !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
}

func TestSendCommandRejectsBlank(t *testing.T) {
	gw := &fakeGateway{aiResp: domain.AIResponse{Result: &domain.AIResult{Success: true, Message: "Found 0 tasks."}}}
	svc := newTestService(t, gw)

	if _, err := svc.SendCommand(context.Background(), "  "); !errors.Is(err, ErrCommandRequired) {
		t.Fatalf("expected ErrCommandRequired, got %v", err)
	}
	resp, err := svc.SendCommand(context.Background(), "list tasks")
	if err != nil || !resp.Succeeded() {
		t.Fatalf("SendCommand() = %#v, %v", resp, err)
	}
}
