// Package memstore holds in-memory repositories for tests.
package memstore

import (
	"context"
	"sync"

	"github.com/taskkeeper/taskkeeper/internal/shared"
	_ "github.com/taskkeeper/taskkeeper/internal/testing/guard"
	"github.com/taskkeeper/taskkeeper/internal/users"
)

// Users is an in-memory users.Repository.
type Users struct {
	mu      sync.Mutex
	byID    map[string]users.User
	SaveErr error
}

func NewUsers() *Users {
	return &Users{byID: make(map[string]users.User)}
}

func (s *Users) WithTx(ctx context.Context, fn func(context.Context, users.Repository) error) error {
	return fn(ctx, s)
}

func (s *Users) FindByID(_ context.Context, id string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

func (s *Users) FindByEmail(_ context.Context, email string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

// Save enforces email uniqueness like the users_email_key index.
func (s *Users) Save(_ context.Context, user *users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	for id, u := range s.byID {
		if id != user.ID && u.Email == user.Email {
			return users.ErrDuplicateEmail
		}
	}
	s.byID[user.ID] = *user
	return nil
}

func (s *Users) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.byID)), nil
}

func (s *Users) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]users.User)
	return nil
}

var _ users.Repository = (*Users)(nil)
