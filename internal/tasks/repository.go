package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskkeeper/taskkeeper/internal/shared"
)

// Repository persists tasks. Lookups return shared.ErrNotFound for unknown records.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Task, error)
	Save(ctx context.Context, task *Task) error
	DeleteByID(ctx context.Context, id string) error
	FindAllByUserID(ctx context.Context, userID string) ([]Task, error)
	Count(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	db dbtx
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

const selectTask = `SELECT id::text, user_id::text, title, description, status, created_at, updated_at FROM tasks`

func (r *PGRepository) FindByID(ctx context.Context, id string) (*Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, shared.ErrNotFound
	}
	var t Task
	err := r.db.QueryRow(ctx, selectTask+` WHERE id = $1`, id).
		Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("tasks: find: %w", err)
	}
	return &t, nil
}

// Save inserts the task or updates the existing row with the same id.
func (r *PGRepository) Save(ctx context.Context, task *Task) error {
	if !task.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", shared.ErrValidation, task.Status)
	}
	_, err := r.db.Exec(ctx, `INSERT INTO tasks (id, user_id, title, description, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	status = EXCLUDED.status,
	updated_at = EXCLUDED.updated_at`,
		task.ID, task.UserID, task.Title, task.Description, string(task.Status), task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("tasks: save: %w", err)
	}
	return nil
}

func (r *PGRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return shared.ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("tasks: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindAllByUserID lists a user's tasks oldest first.
func (r *PGRepository) FindAllByUserID(ctx context.Context, userID string) ([]Task, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []Task{}, nil
	}
	rows, err := r.db.Query(ctx, selectTask+` WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("tasks: list: %w", err)
	}
	defer rows.Close()
	out := []Task{}
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("tasks: scan: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tasks: list: %w", err)
	}
	return out, nil
}

func (r *PGRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("tasks: count: %w", err)
	}
	return n, nil
}

func (r *PGRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("tasks: delete all: %w", err)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
