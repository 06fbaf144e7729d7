package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskkeeper/taskkeeper/internal/platform/db"
	"github.com/taskkeeper/taskkeeper/internal/shared"
)

const emailUniqueConstraint = "users_email_key"

// Repository persists users. Lookups return shared.ErrNotFound for unknown records.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
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
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool, pool: pool}
}

// WithTx runs fn against a repository bound to a single transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &PGRepository{db: tx, pool: r.pool})
	})
}

const selectUser = `SELECT id::text, first_name, last_name, email, password_hash, logged_in, created_at, updated_at FROM users`

func (r *PGRepository) FindByID(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, shared.ErrNotFound
	}
	return r.scanOne(r.db.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
}

func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectUser+` WHERE email = $1`, email))
}

// Save inserts the user or updates the existing row with the same id.
func (r *PGRepository) Save(ctx context.Context, user *User) error {
	_, err := r.db.Exec(ctx, `INSERT INTO users (id, first_name, last_name, email, password_hash, logged_in, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	first_name = EXCLUDED.first_name,
	last_name = EXCLUDED.last_name,
	email = EXCLUDED.email,
	password_hash = EXCLUDED.password_hash,
	logged_in = EXCLUDED.logged_in,
	updated_at = EXCLUDED.updated_at`,
		user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash, user.LoggedIn, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == emailUniqueConstraint {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("users: save: %w", err)
	}
	return nil
}

func (r *PGRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("users: count: %w", err)
	}
	return n, nil
}

// DeleteAll removes every user. Tasks must be cleared first because of the owner foreign key.
func (r *PGRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("users: delete all: %w", err)
	}
	return nil
}

func (r *PGRepository) scanOne(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.LoggedIn, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("users: scan: %w", err)
	}
	return &u, nil
}

var _ Repository = (*PGRepository)(nil)
