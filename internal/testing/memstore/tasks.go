package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/taskkeeper/taskkeeper/internal/shared"
	"github.com/taskkeeper/taskkeeper/internal/tasks"
)

// Tasks is an in-memory tasks.Repository.
type Tasks struct {
	mu   sync.Mutex
	byID map[string]tasks.Task
}

func NewTasks() *Tasks {
	return &Tasks{byID: make(map[string]tasks.Task)}
}

func (s *Tasks) FindByID(_ context.Context, id string) (*tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &t, nil
}

// Save rejects unknown statuses like the tasks_status_check constraint.
func (s *Tasks) Save(_ context.Context, task *tasks.Task) error {
	if !task.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", shared.ErrValidation, task.Status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[task.ID] = *task
	return nil
}

func (s *Tasks) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *Tasks) FindAllByUserID(_ context.Context, userID string) ([]tasks.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []tasks.Task{}
	for _, t := range s.byID {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Tasks) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.byID)), nil
}

func (s *Tasks) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]tasks.Task)
	return nil
}

var _ tasks.Repository = (*Tasks)(nil)
