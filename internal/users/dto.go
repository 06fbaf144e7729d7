package users

import "time"

// Response messages.
const (
	MsgRegistered      = "Registration Successful"
	MsgLoggedOut       = "We hope to see you soon"
	MsgPasswordChanged = "Password changed successfully"
	MsgEmailChanged    = "Email changed successfully"
	welcomeBackPrefix  = "Welcome back "
)

type RegisterUserRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,max=72"`
}

type RegisterUserResponse struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type LogoutRequest struct {
	UserID string `json:"user_id"`
}

type LogoutResponse struct {
	Message string `json:"message"`
}

type ChangePasswordRequest struct {
	UserID      string `json:"-"`
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,max=72"`
}

type ChangePasswordResponse struct {
	Message string `json:"message"`
}

type ChangeEmailRequest struct {
	UserID   string `json:"-"`
	OldEmail string `json:"old_email" validate:"required"`
	NewEmail string `json:"new_email" validate:"required,email"`
}

type ChangeEmailResponse struct {
	Message string `json:"message"`
}

// UserResponse is the public view of a User; the password hash never leaves the service.
type UserResponse struct {
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	LoggedIn  bool      `json:"logged_in"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResponse(u *User) UserResponse {
	return UserResponse{
		UserID:    u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		LoggedIn:  u.LoggedIn,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
