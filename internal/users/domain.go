package users

import "time"

// User is a registered account.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	LoggedIn     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}
