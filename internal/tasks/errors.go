package tasks

import "errors"

var (
	ErrTaskNotFound = errors.New("Task not found")
	ErrTaskNotOwned = errors.New("Task belongs to another user")
)
