package tasks

import "time"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Label returns the human readable form shown to users.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending..."
	case StatusInProgress:
		return "In Progress..."
	case StatusCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is a unit of work owned by a user.
type Task struct {
	ID          string    `json:"task_id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
