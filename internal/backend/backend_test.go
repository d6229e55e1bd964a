package backend

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/evanschultz/taskdeck/internal/domain"
)

// memRepo is an in-memory Repository for service tests.
type memRepo struct {
	nextID  int64
	tasks   map[int64]domain.Task
	updates int
	failErr error
}

func newMemRepo() *memRepo {
	return &memRepo{tasks: map[int64]domain.Task{}}
}

func (r *memRepo) CreateTask(_ context.Context, t domain.Task) (domain.Task, error) {
	if r.failErr != nil {
		return domain.Task{}, r.failErr
	}
	r.nextID++
	t.ID = r.nextID
	r.tasks[t.ID] = t
	return t, nil
}

func (r *memRepo) UpdateTask(_ context.Context, t domain.Task) error {
	if _, ok := r.tasks[t.ID]; !ok {
		return ErrNotFound
	}
	r.updates++
	r.tasks[t.ID] = t
	return nil
}

func (r *memRepo) GetTask(_ context.Context, id int64) (domain.Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return domain.Task{}, ErrNotFound
	}
	return t, nil
}

func (r *memRepo) ListTasks(_ context.Context, status domain.Status) ([]domain.Task, error) {
	if r.failErr != nil {
		return nil, r.failErr
	}
	out := make([]domain.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b domain.Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return out, nil
}

func (r *memRepo) FindTaskByTitle(_ context.Context, fragment string) (domain.Task, error) {
	ids := make([]int64, 0, len(r.tasks))
	for id := range r.tasks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if strings.Contains(strings.ToLower(r.tasks[id].Title), strings.ToLower(fragment)) {
			return r.tasks[id], nil
		}
	}
	return domain.Task{}, ErrNotFound
}

func (r *memRepo) DeleteTask(_ context.Context, id int64) error {
	if _, ok := r.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

func newTestTaskService(t *testing.T, repo Repository) *TaskService {
	t.Helper()
	tick := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, err := NewTaskService(repo, WithClock(func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}))
	if err != nil {
		t.Fatalf("NewTaskService() error = %v", err)
	}
	return svc
}

func mustCreate(t *testing.T, svc *TaskService, title string) domain.Task {
	t.Helper()
	task, err := svc.CreateTask(context.Background(), domain.TaskInput{Title: title})
	if err != nil {
		t.Fatalf("CreateTask(%q) error = %v", title, err)
	}
	return task
}

func TestCheckTransition(t *testing.T) {
	cases := []struct {
		from domain.Status
		to   string
		ok   bool
	}{
		{domain.StatusNotStarted, "IN_PROGRESS", true},
		{domain.StatusInProgress, "COMPLETED", true},
		{domain.StatusNotStarted, "NOT_STARTED", true},
		{domain.StatusCompleted, "COMPLETED", true},
		{domain.StatusNotStarted, "COMPLETED", false},
		{domain.StatusInProgress, "NOT_STARTED", false},
		{domain.StatusCompleted, "IN_PROGRESS", false},
		{domain.StatusNotStarted, "in_progress", false},
		{domain.StatusNotStarted, "", false},
	}
	for _, tc := range cases {
		err := CheckTransition(tc.from, tc.to)
		if tc.ok && err != nil {
			t.Fatalf("CheckTransition(%s, %s) error = %v", tc.from, tc.to, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("CheckTransition(%s, %s) expected ErrInvalidTransition, got %v", tc.from, tc.to, err)
		}
	}
	err := CheckTransition(domain.StatusCompleted, "IN_PROGRESS")
	if err.Error() != "Invalid state transition from COMPLETED to IN_PROGRESS" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestTaskServiceCreateAndList(t *testing.T) {
	svc := newTestTaskService(t, newMemRepo())
	ctx := context.Background()

	first := mustCreate(t, svc, " first ")
	second := mustCreate(t, svc, "second")
	if first.Title != "first" || first.Status != domain.StatusNotStarted {
		t.Fatalf("unexpected created task %#v", first)
	}
	if _, err := svc.CreateTask(ctx, domain.TaskInput{Title: "  "}); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if _, err := svc.CreateTask(ctx, domain.TaskInput{Title: strings.Repeat("x", MaxTitleLength+1)}); !errors.Is(err, ErrTitleTooLong) {
		t.Fatalf("expected ErrTitleTooLong, got %v", err)
	}

	tasks, err := svc.ListTasks(ctx, "")
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != second.ID || tasks[1].ID != first.ID {
		t.Fatalf("expected newest first, got %#v", tasks)
	}
	if tasks[0].StatusDisplay != "Not Started" {
		t.Fatalf("expected status label, got %q", tasks[0].StatusDisplay)
	}
	if _, err := svc.ListTasks(ctx, "DONE"); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestTaskServiceUpdateIsAtomic(t *testing.T) {
	repo := newMemRepo()
	svc := newTestTaskService(t, repo)
	ctx := context.Background()
	task := mustCreate(t, svc, "draft")

	title := "renamed"
	bad := "COMPLETED"
	if _, err := svc.UpdateTask(ctx, task.ID, TaskPatch{Title: &title, Status: &bad}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	stored, _ := repo.GetTask(ctx, task.ID)
	if stored.Title != "draft" || repo.updates != 0 {
		t.Fatalf("expected rejected patch to leave task untouched, got %#v", stored)
	}

	next := "IN_PROGRESS"
	updated, err := svc.UpdateTask(ctx, task.ID, TaskPatch{Title: &title, Status: &next})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	if updated.Title != "renamed" || updated.Status != domain.StatusInProgress || updated.StatusDisplay != "In Progress" {
		t.Fatalf("unexpected updated task %#v", updated)
	}
	if !updated.UpdatedAt.After(task.UpdatedAt) {
		t.Fatal("expected updated_at to advance")
	}

	if _, err := svc.UpdateStatus(ctx, task.ID, "IN_PROGRESS"); err != nil {
		t.Fatalf("same-status update error = %v", err)
	}
	if repo.updates != 1 {
		t.Fatalf("expected same-status update to skip the write, got %d writes", repo.updates)
	}
	if _, err := svc.UpdateStatus(ctx, 999, "IN_PROGRESS"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTaskServiceDeleteTwice(t *testing.T) {
	svc := newTestTaskService(t, newMemRepo())
	ctx := context.Background()
	task := mustCreate(t, svc, "gone")

	if err := svc.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	if err := svc.DeleteTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDispatcherActions(t *testing.T) {
	repo := newMemRepo()
	svc := newTestTaskService(t, repo)
	d := NewDispatcher(svc)
	ctx := context.Background()

	res, err := d.Dispatch(ctx, domain.AIIntent{Action: domain.ActionCreateTask, Params: map[string]any{"title": "Buy milk"}})
	if err != nil || !res.Success || res.Message != "Task 'Buy milk' created successfully." {
		t.Fatalf("create result = %#v, %v", res, err)
	}
	if res.Task == nil || res.Task.Title != "Buy milk" {
		t.Fatalf("expected task ref, got %#v", res.Task)
	}

	res, _ = d.Dispatch(ctx, domain.AIIntent{Action: domain.ActionCreateTask, Params: map[string]any{}})
	if res.Success || res.Message != "Title is required for creating a task." {
		t.Fatalf("unexpected missing-title result %#v", res)
	}

	res, _ = d.Dispatch(ctx, domain.AIIntent{Action: domain.ActionUpdateTaskStatus, Params: map[string]any{"title": "MILK", "status": "IN_PROGRESS"}})
	if !res.Success || res.Message != "Task 'Buy milk' updated to IN_PROGRESS." {
		t.Fatalf("unexpected update result %#v", res)
	}

	res, _ = d.Dispatch(ctx, domain.AIIntent{Action: domain.ActionUpdateTaskStatus, Params: map[string]any{"task_id": float64(1), "status": "NOT_STARTED"}})
	if res.Success || res.Message != "Invalid state transition from IN_PROGRESS to NOT_STARTED" {
		t.Fatalf("unexpected rejected update %#v", res)
	}

	res, _ = d.Dispatch(ctx, domain.AIIntent{Action: domain.ActionDeleteTask, Params: map[string]any{"task_id": "42", "title": "milk"}})
	if res.Success || res.Message != "Task not found." {
		t.Fatalf("expected id lookup without title fallback, got %#v", res)
	}

	res, _ = d.Dispatch(ctx, domain.AIIntent{Action: domain.ActionDeleteTask, Params: map[string]any{"title": "milk"}})
	if !res.Success || res.Message != "Task 'Buy milk' deleted." {
		t.Fatalf("unexpected delete result %#v", res)
	}

	res, _ = d.Dispatch(ctx, domain.AIIntent{Action: "archive_task"})
	if res.Success || res.Message != "Unknown action." {
		t.Fatalf("unexpected unknown-action result %#v", res)
	}
}

func TestDispatcherListCapsSummaries(t *testing.T) {
	svc := newTestTaskService(t, newMemRepo())
	d := NewDispatcher(svc)
	ctx := context.Background()
	for i := range 7 {
		mustCreate(t, svc, "task "+string(rune('a'+i)))
	}

	res, err := d.Dispatch(ctx, domain.AIIntent{Action: domain.ActionListTasks})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if res.Message != "Found 7 tasks." || len(res.Tasks) != 5 {
		t.Fatalf("unexpected list result %#v", res)
	}
	if res.Tasks[0].Title != "task g" || res.Tasks[0].Status != domain.StatusNotStarted {
		t.Fatalf("expected newest first, got %#v", res.Tasks[0])
	}

	res, _ = d.Dispatch(ctx, domain.AIIntent{Action: domain.ActionListTasks, Params: map[string]any{"status": "COMPLETED"}})
	if res.Message != "Found 0 tasks." || len(res.Tasks) != 0 {
		t.Fatalf("unexpected filtered result %#v", res)
	}
}

func TestDispatcherSurfacesStorageErrors(t *testing.T) {
	repo := newMemRepo()
	svc := newTestTaskService(t, repo)
	d := NewDispatcher(svc)
	repo.failErr = errors.New("disk full")

	if _, err := d.Dispatch(context.Background(), domain.AIIntent{Action: domain.ActionListTasks}); err == nil {
		t.Fatal("expected storage error")
	}
}

// stubInterpreter returns a fixed intent.
type stubInterpreter struct {
	intent domain.AIIntent
}

func (s stubInterpreter) Interpret(context.Context, string) domain.AIIntent {
	return s.intent
}

func TestCommandServiceRouting(t *testing.T) {
	svc := newTestTaskService(t, newMemRepo())
	d := NewDispatcher(svc)
	ctx := context.Background()

	run := func(intent domain.AIIntent, command string) (domain.AIResponse, error) {
		return NewCommandService(stubInterpreter{intent: intent}, d).RunCommand(ctx, command)
	}

	if _, err := run(domain.AIIntent{Action: domain.ActionListTasks}, "  "); !errors.Is(err, ErrCommandRequired) {
		t.Fatalf("expected ErrCommandRequired, got %v", err)
	}

	resp, err := run(domain.AIIntent{Action: domain.ActionError, Message: "Groq API error (500): down"}, "list")
	if !errors.Is(err, ErrAssistantUnavailable) || resp.Error != "Groq API error (500): down" {
		t.Fatalf("unexpected error routing %#v, %v", resp, err)
	}

	resp, err = run(domain.AIIntent{Action: domain.ActionUnknown, Message: "Could not understand command"}, "hum")
	if err != nil || resp.Message != "I didn't understand that command." || resp.UnmatchedIntent == nil || resp.Result != nil {
		t.Fatalf("unexpected not-understood routing %#v, %v", resp, err)
	}

	resp, err = run(domain.AIIntent{Action: domain.ActionCreateTask, Params: map[string]any{"title": "Call mom"}}, "add call mom")
	if err != nil || !resp.Succeeded() || resp.OriginalCommand != "add call mom" || resp.Intent.Action != domain.ActionCreateTask {
		t.Fatalf("unexpected applied routing %#v, %v", resp, err)
	}
}
