package users

import (
	"errors"

	"github.com/taskkeeper/taskkeeper/internal/shared"
)

var (
	ErrDuplicateEmail       = errors.New("Email already exists")
	ErrInvalidCredentials   = shared.ErrInvalidCredentials
	ErrUserNotLoggedIn      = errors.New("User is not logged in")
	ErrIncorrectOldPassword = errors.New("Old password not correct")
	ErrSamePassword         = errors.New("New password cannot be the same as the old password")
	ErrIncorrectOldEmail    = errors.New("Old email not correct")
	ErrSameEmail            = errors.New("New email cannot be same as old email")
	ErrUserNotFound         = errors.New("User not found")
)
