package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewTaskDefaults(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	task, err := NewTask(TaskInput{Title: "  Buy groceries ", Description: " milk "}, now)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if task.Title != "Buy groceries" || task.Description != "milk" {
		t.Fatalf("unexpected trimmed fields %#v", task)
	}
	if task.Status != StatusNotStarted {
		t.Fatalf("expected NOT_STARTED, got %q", task.Status)
	}
	if task.StatusDisplay != "Not Started" {
		t.Fatalf("unexpected status display %q", task.StatusDisplay)
	}
	if !task.CreatedAt.Equal(now) || !task.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected timestamps %#v", task)
	}
}

func TestNewTaskValidation(t *testing.T) {
	if _, err := NewTask(TaskInput{Title: "   "}, time.Now()); err != ErrInvalidTitle {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
}

func TestTaskMutators(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	task, _ := NewTask(TaskInput{Title: "a"}, now)
	later := now.Add(time.Minute)
	if err := task.Rename(" ", later); err != ErrInvalidTitle {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if err := task.Rename("b", later); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	task.Describe("  details  ", later)
	if task.Title != "b" || task.Description != "details" || !task.UpdatedAt.Equal(later) {
		t.Fatalf("unexpected task after mutation %#v", task)
	}
	if err := task.SetStatus("DONE", later); err != ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if err := task.SetStatus(StatusInProgress, later); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if task.DisplayStatus() != "In Progress" {
		t.Fatalf("unexpected display status %q", task.DisplayStatus())
	}
}

func TestParseStatusIsCaseSensitive(t *testing.T) {
	for _, raw := range []string{"NOT_STARTED", "IN_PROGRESS", "COMPLETED", " COMPLETED "} {
		if _, err := ParseStatus(raw); err != nil {
			t.Fatalf("ParseStatus(%q) error = %v", raw, err)
		}
	}
	for _, raw := range []string{"", "completed", "DONE", "In Progress"} {
		if _, err := ParseStatus(raw); !errors.Is(err, ErrInvalidStatus) {
			t.Fatalf("ParseStatus(%q) expected ErrInvalidStatus, got %v", raw, err)
		}
	}
}

func TestNextStatusHint(t *testing.T) {
	cases := []struct {
		from Status
		want Status
		ok   bool
	}{
		{StatusNotStarted, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusCompleted, "", false},
	}
	for _, tc := range cases {
		got, ok := NextStatus(tc.from)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("NextStatus(%q) = %q,%t want %q,%t", tc.from, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFilterParsingAndShift(t *testing.T) {
	cases := map[string]Filter{
		"":            FilterAll,
		"all":         FilterAll,
		"in progress": FilterInProgress,
		"not-started": FilterNotStarted,
		"COMPLETED":   FilterCompleted,
	}
	for raw, want := range cases {
		got, err := ParseFilter(raw)
		if err != nil || got != want {
			t.Fatalf("ParseFilter(%q) = %q,%v want %q", raw, got, err, want)
		}
	}
	if _, err := ParseFilter("someday"); err != ErrInvalidFilter {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}

	if _, ok := FilterAll.Status(); ok {
		t.Fatal("expected ALL to carry no status query")
	}
	if status, ok := FilterCompleted.Status(); !ok || status != StatusCompleted {
		t.Fatalf("unexpected status for completed filter %q,%t", status, ok)
	}
	if FilterAll.Shift(-1) != FilterCompleted || FilterCompleted.Shift(1) != FilterAll {
		t.Fatal("expected filter shift to wrap")
	}
	if FilterAll.Label() != "All" || FilterInProgress.Label() != "In Progress" {
		t.Fatalf("unexpected labels %q %q", FilterAll.Label(), FilterInProgress.Label())
	}
}

func TestTaskJSONShape(t *testing.T) {
	raw := `{"id":7,"title":"Ship","description":null,"status":"IN_PROGRESS","status_display":"In Progress","created_at":"2026-02-21T12:00:00.123456Z","updated_at":"2026-02-21T12:00:00Z"}`
	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if task.ID != 7 || task.Description != "" || task.Status != StatusInProgress {
		t.Fatalf("unexpected decoded task %#v", task)
	}
}

func TestAIResponseFeedback(t *testing.T) {
	ok := AIResponse{Result: &AIResult{Success: true, Message: "Task 'x' created successfully."}}
	if !ok.Succeeded() || ok.Feedback() != "Task 'x' created successfully." {
		t.Fatalf("unexpected success handling %#v", ok)
	}
	rejected := AIResponse{Result: &AIResult{Success: false, Message: "Task not found."}}
	if rejected.Succeeded() || rejected.Feedback() != "Task not found." {
		t.Fatalf("unexpected rejection handling %#v", rejected)
	}
	failed := AIResponse{Error: "Could not parse command"}
	if failed.Succeeded() || failed.Feedback() != "Could not parse command" || !failed.HasPayload() {
		t.Fatalf("unexpected error handling %#v", failed)
	}
	if (AIResponse{}).HasPayload() {
		t.Fatal("expected empty response to carry no payload")
	}
}

func TestAIIntentParams(t *testing.T) {
	var intent AIIntent
	raw := `{"action":"update_task_status","params":{"task_id":5,"title":" deck ","status":"COMPLETED","other":"12"}}`
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if id, ok := intent.IDParam("task_id"); !ok || id != 5 {
		t.Fatalf("unexpected task id %d,%t", id, ok)
	}
	if id, ok := intent.IDParam("other"); !ok || id != 12 {
		t.Fatalf("unexpected string id %d,%t", id, ok)
	}
	if _, ok := intent.IDParam("missing"); ok {
		t.Fatal("expected missing id to be absent")
	}
	if intent.StringParam("title") != "deck" {
		t.Fatalf("unexpected title %q", intent.StringParam("title"))
	}
}
