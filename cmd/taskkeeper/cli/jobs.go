package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hibiken/asynq"

	"github.com/taskkeeper/taskkeeper/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client        *asynq.Client
	inspector     *asynq.Inspector
	retentionDays int
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string, retentionDays int) (*JobsCLI, error) {
	if redisAddr == "" {
		return nil, errors.New("jobs cli: redis address required")
	}
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{
		client:        asynq.NewClient(opts),
		inspector:     asynq.NewInspector(opts),
		retentionDays: retentionDays,
	}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name with default payload.
func (c *JobsCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	task, err := taskFor(name, c.retentionDays)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(3))
}

func taskFor(name string, retentionDays int) (*asynq.Task, error) {
	switch name {
	case jobs.TaskAuditPrune:
		return jobs.NewAuditPruneTask(retentionDays)
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
	}
	return stats, nil
}

// ListScheduled returns scheduled task infos for observability.
func (c *JobsCLI) ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

// Run dispatches a jobs subcommand and returns the process exit code.
func (c *JobsCLI) Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: taskkeeper jobs [inspect|scheduled|trigger <name>]")
		return 2
	}
	switch args[0] {
	case "inspect":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "jobs inspect: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return 0
	case "scheduled":
		infos, err := c.ListScheduled(ctx, 20)
		if err != nil {
			fmt.Fprintf(stderr, "jobs scheduled: %v\n", err)
			return 1
		}
		for _, info := range infos {
			fmt.Fprintf(stdout, "%s %s %s\n", info.ID, info.Type, info.NextProcessAt.Format("2006-01-02T15:04:05Z07:00"))
		}
		return 0
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "jobs trigger: job name required")
			return 2
		}
		info, err := c.Trigger(ctx, args[1])
		if err != nil {
			fmt.Fprintf(stderr, "jobs trigger: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "enqueued %s id=%s\n", info.Type, info.ID)
		return 0
	default:
		fmt.Fprintf(stderr, "jobs: unknown command %q\n", args[0])
		return 2
	}
}
