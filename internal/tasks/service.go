package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskkeeper/taskkeeper/internal/shared"
	"github.com/taskkeeper/taskkeeper/internal/users"
)

// OwnerLookup resolves task owners. users.Service satisfies it.
type OwnerLookup interface {
	GetUser(ctx context.Context, id string) (*users.User, error)
}

// AuditPort records task events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements task CRUD and status transitions.
type Service struct {
	repo   Repository
	owners OwnerLookup
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// SetOwners makes CreateTask reject unknown owners.
func (s *Service) SetOwners(o OwnerLookup) {
	s.owners = o
}

// SetAudit enables audit records.
func (s *Service) SetAudit(a AuditPort) {
	s.audit = a
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateTask stores a new pending task.
func (s *Service) CreateTask(ctx context.Context, req CreateTaskRequest) (*CreateTaskResponse, error) {
	if err := shared.ValidateStruct(req); err != nil {
		return nil, err
	}
	if s.owners != nil {
		if _, err := s.owners.GetUser(ctx, req.UserID); err != nil {
			return nil, err
		}
	}
	now := s.now().UTC()
	task := &Task{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	s.recordAudit(ctx, task, "task.create")
	return &CreateTaskResponse{TaskID: task.ID, Status: task.Status, Message: MsgCreated}, nil
}

// UpdateTask replaces title and description.
func (s *Service) UpdateTask(ctx context.Context, req UpdateTaskRequest) (*UpdateTaskResponse, error) {
	task, err := s.ownedTask(ctx, req.TaskID, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := shared.ValidateStruct(req); err != nil {
		return nil, err
	}
	task.Title = req.Title
	task.Description = req.Description
	task.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	s.recordAudit(ctx, task, "task.update")
	return &UpdateTaskResponse{TaskID: task.ID, Message: MsgUpdated}, nil
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(ctx context.Context, req DeleteTaskRequest) (*DeleteTaskResponse, error) {
	task, err := s.ownedTask(ctx, req.TaskID, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteByID(ctx, task.ID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("delete task: %w", err)
	}
	s.recordAudit(ctx, task, "task.delete")
	return &DeleteTaskResponse{Message: MsgDeleted}, nil
}

// GetTaskByID returns a single task.
func (s *Service) GetTaskByID(ctx context.Context, req FindTaskRequest) (*FindTaskResponse, error) {
	task, err := s.ownedTask(ctx, req.TaskID, req.UserID)
	if err != nil {
		return nil, err
	}
	resp := toFindTaskResponse(task)
	return &resp, nil
}

// GetAllTasks lists a user's tasks in creation order.
func (s *Service) GetAllTasks(ctx context.Context, userID string) ([]Task, error) {
	list, err := s.repo.FindAllByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return list, nil
}

// MarkTaskAsCompleted moves a task to COMPLETED from any status.
func (s *Service) MarkTaskAsCompleted(ctx context.Context, req MarkTaskRequest) (*MarkTaskResponse, error) {
	return s.setStatus(ctx, req, StatusCompleted, MsgCompleted)
}

// MarkTaskAsInProgress moves a task to IN_PROGRESS from any status.
func (s *Service) MarkTaskAsInProgress(ctx context.Context, req MarkTaskRequest) (*MarkTaskResponse, error) {
	return s.setStatus(ctx, req, StatusInProgress, MsgInProgress)
}

func (s *Service) setStatus(ctx context.Context, req MarkTaskRequest, status Status, msg string) (*MarkTaskResponse, error) {
	task, err := s.ownedTask(ctx, req.TaskID, req.UserID)
	if err != nil {
		return nil, err
	}
	task.Status = status
	task.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	s.recordAudit(ctx, task, "task.status")
	return &MarkTaskResponse{TaskID: task.ID, Status: task.Status, Message: msg}, nil
}

// ownedTask loads a task; a non-empty userID must match the owner.
func (s *Service) ownedTask(ctx context.Context, taskID, userID string) (*Task, error) {
	if taskID == "" {
		return nil, ErrTaskNotFound
	}
	task, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	if userID != "" && task.UserID != userID {
		return nil, ErrTaskNotOwned
	}
	return task, nil
}

func (s *Service) recordAudit(ctx context.Context, task *Task, action string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  task.UserID,
		Action:   action,
		Entity:   "task",
		EntityID: task.ID,
		Meta:     map[string]any{"status": string(task.Status)},
		At:       s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.String("task_id", task.ID), slog.Any("error", err))
	}
}
