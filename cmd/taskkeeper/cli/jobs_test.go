package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/taskkeeper/taskkeeper/jobs"
)

func newTestCLI(t *testing.T) (*JobsCLI, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewJobsCLI(mr.Addr(), 30)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestNewJobsCLIRequiresAddr(t *testing.T) {
	_, err := NewJobsCLI("", 30)
	require.Error(t, err)
}

func TestTaskForAuditPrune(t *testing.T) {
	task, err := taskFor(jobs.TaskAuditPrune, 30)
	require.NoError(t, err)
	require.Equal(t, jobs.TaskAuditPrune, task.Type())

	var payload map[string]int
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, 30, payload["retention_days"])

	_, err = taskFor("mail:send", 30)
	require.ErrorContains(t, err, "unsupported job")
}

func TestTriggerEnqueuesAuditPrune(t *testing.T) {
	c, mr := newTestCLI(t)
	info, err := c.Trigger(context.Background(), jobs.TaskAuditPrune)
	require.NoError(t, err)
	require.Equal(t, jobs.TaskAuditPrune, info.Type)

	pending, err := mr.List("asynq:{default}:pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestRunRejectsUnknownCommands(t *testing.T) {
	c, _ := newTestCLI(t)
	var stdout, stderr bytes.Buffer

	require.Equal(t, 2, c.Run(context.Background(), nil, &stdout, &stderr))
	require.Equal(t, 2, c.Run(context.Background(), []string{"bogus"}, &stdout, &stderr))
	require.Equal(t, 2, c.Run(context.Background(), []string{"trigger"}, &stdout, &stderr))
	require.Equal(t, 1, c.Run(context.Background(), []string{"trigger", "nope"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "unknown command")
}

func TestRunTriggerPrintsTaskID(t *testing.T) {
	c, _ := newTestCLI(t)
	var stdout, stderr bytes.Buffer
	code := c.Run(context.Background(), []string{"trigger", jobs.TaskAuditPrune}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	require.Contains(t, stdout.String(), "enqueued audit:prune id=")
}
