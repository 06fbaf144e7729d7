package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgconn"
)

// TaskAuditPrune removes audit records past their retention window.
const TaskAuditPrune = "audit:prune"

// AuditPrunePayload configures a prune run.
type AuditPrunePayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewAuditPruneTask builds the task payload.
func NewAuditPruneTask(retentionDays int) (*asynq.Task, error) {
	data, err := json.Marshal(AuditPrunePayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, data), nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditPruneJob deletes old rows from audit_logs.
type AuditPruneJob struct {
	db     execer
	logger *slog.Logger
	clock  func() time.Time
}

// NewAuditPruneJob wires the job to a pgx pool or transaction.
func NewAuditPruneJob(db execer, logger *slog.Logger) *AuditPruneJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditPruneJob{
		db:     db,
		logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the prune.
func (j *AuditPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.db == nil {
		return errors.New("audit prune: handler not configured")
	}
	var payload AuditPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.RetentionDays <= 0 {
		payload.RetentionDays = 90
	}
	cutoff := j.clock().AddDate(0, 0, -payload.RetentionDays)
	tag, err := j.db.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("audit prune: %w", err)
	}
	j.logger.Info("audit prune complete", slog.Int64("deleted", tag.RowsAffected()), slog.Time("cutoff", cutoff))
	return nil
}
