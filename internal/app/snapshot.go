package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/evanschultz/taskdeck/internal/domain"
)

// SnapshotVersion identifies the snapshot file format.
const SnapshotVersion = "taskdeck.snapshot.v1"

// Snapshot is a portable copy of every task on one backend.
type Snapshot struct {
	Version    string         `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Tasks      []SnapshotTask `json:"tasks"`
}

// SnapshotTask is one exported task. IDs are informational; import assigns new ones.
type SnapshotTask struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      domain.Status `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ImportResult reports what ImportSnapshot created.
type ImportResult struct {
	Created []domain.Task
}

// ExportSnapshot captures every task the backend lists, ordered by id.
func (s *Service) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	tasks, err := s.gw.ListTasks(ctx, "")
	if err != nil {
		return Snapshot{}, fmt.Errorf("export tasks: %w", err)
	}
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Tasks:      make([]SnapshotTask, 0, len(tasks)),
	}
	for _, task := range tasks {
		snap.Tasks = append(snap.Tasks, snapshotTaskFromDomain(task))
	}
	slices.SortFunc(snap.Tasks, func(a, b SnapshotTask) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return snap, nil
}

// ImportSnapshot recreates the snapshot's tasks on the backend. Each task is
// created and then walked forward one status at a time, since the backend
// only accepts single-step transitions. Import stops at the first failure and
// reports the tasks created so far.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) (ImportResult, error) {
	if err := snap.Validate(); err != nil {
		return ImportResult{}, err
	}
	var result ImportResult
	for idx, item := range snap.Tasks {
		task, err := s.gw.CreateTask(ctx, item.Title, item.Description)
		if err != nil {
			return result, fmt.Errorf("import task %d: %w", idx, err)
		}
		for step := 0; task.Status != item.Status; step++ {
			if step >= len(domain.Statuses()) {
				return result, fmt.Errorf("import task %d: %w: still %s", idx, ErrStatusStalled, task.Status)
			}
			next, ok := domain.NextStatus(task.Status)
			if !ok {
				return result, fmt.Errorf("import task %d: cannot reach %s from %s", idx, item.Status, task.Status)
			}
			task, err = s.gw.PatchTaskStatus(ctx, task.ID, next)
			if err != nil {
				return result, fmt.Errorf("import task %d status: %w", idx, err)
			}
		}
		result.Created = append(result.Created, task)
	}
	return result, nil
}

// Validate checks version, titles, and statuses before any request is made.
func (s *Snapshot) Validate() error {
	if s == nil {
		return errors.New("snapshot is required")
	}
	if strings.TrimSpace(s.Version) != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %q", s.Version)
	}
	for idx, task := range s.Tasks {
		if strings.TrimSpace(task.Title) == "" {
			return fmt.Errorf("tasks[%d]: %w", idx, ErrTitleRequired)
		}
		if !task.Status.Valid() {
			return fmt.Errorf("tasks[%d]: %w: %q", idx, domain.ErrInvalidStatus, task.Status)
		}
	}
	return nil
}

func snapshotTaskFromDomain(t domain.Task) SnapshotTask {
	return SnapshotTask{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
}
