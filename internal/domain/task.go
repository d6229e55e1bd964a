package domain

import (
	"strings"
	"time"
)

// Task is one unit of work as exchanged with the task API.
type Task struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Status        Status    `json:"status"`
	StatusDisplay string    `json:"status_display,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TaskInput holds the caller-supplied fields for a new task.
type TaskInput struct {
	Title       string
	Description string
}

// NewTask validates input and returns an unsaved task in the NOT_STARTED state.
func NewTask(in TaskInput, now time.Time) (Task, error) {
	title, err := NormalizeTitle(in.Title)
	if err != nil {
		return Task{}, err
	}
	now = now.UTC()
	return Task{
		Title:         title,
		Description:   strings.TrimSpace(in.Description),
		Status:        StatusNotStarted,
		StatusDisplay: StatusNotStarted.Label(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// NormalizeTitle trims a title and rejects blank values.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrInvalidTitle
	}
	return title, nil
}

// DisplayStatus returns the server label when present, else the local label.
func (t Task) DisplayStatus() string {
	if label := strings.TrimSpace(t.StatusDisplay); label != "" {
		return label
	}
	return t.Status.Label()
}

// Rename updates the task title.
func (t *Task) Rename(title string, now time.Time) error {
	title, err := NormalizeTitle(title)
	if err != nil {
		return err
	}
	t.Title = title
	t.UpdatedAt = now.UTC()
	return nil
}

// Describe replaces the task description.
func (t *Task) Describe(description string, now time.Time) {
	t.Description = strings.TrimSpace(description)
	t.UpdatedAt = now.UTC()
}

// SetStatus records a status change. Callers validate the transition first.
func (t *Task) SetStatus(status Status, now time.Time) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	t.Status = status
	t.StatusDisplay = status.Label()
	t.UpdatedAt = now.UTC()
	return nil
}
