package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeExecer struct {
	sql  string
	args []any
	err  error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = sql
	f.args = args
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag("DELETE 3"), nil
}

func TestAuditPruneUsesRetentionWindow(t *testing.T) {
	db := &fakeExecer{}
	job := NewAuditPruneJob(db, nil)
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	job.clock = func() time.Time { return now }

	task, err := NewAuditPruneTask(30)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Contains(t, db.sql, "DELETE FROM audit_logs")
	require.Equal(t, now.AddDate(0, 0, -30), db.args[0])
}

func TestAuditPruneDefaultsRetention(t *testing.T) {
	db := &fakeExecer{}
	job := NewAuditPruneJob(db, nil)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	job.clock = func() time.Time { return now }

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskAuditPrune, []byte(`{}`))))
	require.Equal(t, now.AddDate(0, 0, -90), db.args[0])
}

func TestAuditPruneErrors(t *testing.T) {
	job := NewAuditPruneJob(&fakeExecer{err: errors.New("db down")}, nil)
	task, _ := NewAuditPruneTask(30)
	require.Error(t, job.Handle(context.Background(), task))

	require.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskAuditPrune, []byte("nope"))), asynq.SkipRetry)

	var nilJob *AuditPruneJob
	require.Error(t, nilJob.Handle(context.Background(), task))
}
