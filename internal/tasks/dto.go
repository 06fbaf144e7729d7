package tasks

import "time"

const (
	MsgCreated    = "Task created successfully"
	MsgUpdated    = "Task updated successfully"
	MsgDeleted    = "Task deleted successfully"
	MsgCompleted  = "Task marked as completed"
	MsgInProgress = "Task marked as in progress"
)

type CreateTaskRequest struct {
	UserID      string `json:"-" validate:"required"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type CreateTaskResponse struct {
	TaskID  string `json:"task_id"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

type UpdateTaskRequest struct {
	TaskID      string `json:"-"`
	UserID      string `json:"-"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type UpdateTaskResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

type DeleteTaskRequest struct {
	TaskID string
	UserID string
}

type DeleteTaskResponse struct {
	Message string `json:"message"`
}

type FindTaskRequest struct {
	TaskID string
	UserID string
}

type FindTaskResponse struct {
	TaskID      string    `json:"task_id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	StatusLabel string    `json:"status_label"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type MarkTaskRequest struct {
	TaskID string
	UserID string
}

type MarkTaskResponse struct {
	TaskID  string `json:"task_id"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

func toFindTaskResponse(t *Task) FindTaskResponse {
	return FindTaskResponse{
		TaskID:      t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		StatusLabel: t.Status.Label(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
