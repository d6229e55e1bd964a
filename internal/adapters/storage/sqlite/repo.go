package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanschultz/taskdeck/internal/backend"
	"github.com/evanschultz/taskdeck/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// tsLayout is fixed-width so stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Repository stores tasks in a SQLite database.
type Repository struct {
	db *sql.DB
}

var _ backend.Repository = (*Repository)(nil)

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Each pooled connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'NOT_STARTED',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status_created ON tasks(status, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at DESC, id DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// CreateTask inserts t and returns it with the assigned id.
func (r *Repository) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks(title, description, status, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?)
	`, t.Title, t.Description, string(t.Status), ts(t.CreatedAt), ts(t.UpdatedAt))
	if err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Task{}, fmt.Errorf("task id: %w", err)
	}
	t.ID = id
	return t, nil
}

// UpdateTask writes every mutable column of t.
func (r *Repository) UpdateTask(ctx context.Context, t domain.Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, t.Title, t.Description, string(t.Status), ts(t.UpdatedAt), t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return translateNoRows(res)
}

// GetTask returns task.
func (r *Repository) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, status, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)
	return scanTask(row)
}

// ListTasks returns tasks newest first. An empty status lists all tasks.
func (r *Repository) ListTasks(ctx context.Context, status domain.Status) ([]domain.Task, error) {
	query := `
		SELECT id, title, description, status, created_at, updated_at
		FROM tasks`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

// FindTaskByTitle returns the oldest task whose title contains fragment.
func (r *Repository) FindTaskByTitle(ctx context.Context, fragment string) (domain.Task, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return domain.Task{}, backend.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, status, created_at, updated_at
		FROM tasks
		WHERE instr(lower(title), lower(?)) > 0
		ORDER BY id ASC
		LIMIT 1
	`, fragment)
	return scanTask(row)
}

// DeleteTask deletes task.
func (r *Repository) DeleteTask(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return translateNoRows(res)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTask scans one task row.
func scanTask(s scanner) (domain.Task, error) {
	var (
		task               domain.Task
		status             string
		createdAt, updated string
	)
	if err := s.Scan(&task.ID, &task.Title, &task.Description, &status, &createdAt, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, backend.ErrNotFound
		}
		return domain.Task{}, fmt.Errorf("scan task: %w", err)
	}
	task.Status = domain.Status(status)
	task.CreatedAt = parseTS(createdAt)
	task.UpdatedAt = parseTS(updated)
	return task, nil
}

// translateNoRows maps a zero-row write to ErrNotFound.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return backend.ErrNotFound
	}
	return nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
