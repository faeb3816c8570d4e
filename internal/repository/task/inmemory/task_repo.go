package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"taskwise/internal/logger"
	"taskwise/internal/models/department"
	"taskwise/internal/models/task"
	"taskwise/internal/models/user"
	repo "taskwise/internal/repository"

	"go.uber.org/zap"
)

// CommitHook runs before a batch is applied; a non-nil error rejects the
// whole batch.
type CommitHook func(repo.Batch) error

type TaskStorage struct {
	tasks       map[string]*task.Task
	ids         []string
	users       map[string]*user.AppUser
	departments map[string]*department.Department
	mtx         *sync.RWMutex
	hook        CommitHook
	clock       func() time.Time
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		tasks:       make(map[string]*task.Task),
		ids:         []string{},
		users:       make(map[string]*user.AppUser),
		departments: make(map[string]*department.Department),
		mtx:         &sync.RWMutex{},
		clock:       time.Now,
	}
}

func (s *TaskStorage) SetCommitHook(hook CommitHook) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.hook = hook
}

func (s *TaskStorage) SetClock(clock func() time.Time) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.clock = clock
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Connection is stable")
	return nil
}

func (s *TaskStorage) Close() error {
	return nil
}

func (s *TaskStorage) ListTasks(ctx context.Context, scope repo.Scope) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, id := range s.ids {
		t := s.tasks[id]
		if scope.Matches(t) {
			res = append(res, t.Clone())
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Order < res[j].Order })
	return res, nil
}

func (s *TaskStorage) GetTask(ctx context.Context, id string) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return t.Clone(), nil
}

// Commit validates the whole batch before touching any task, so a rejected
// batch leaves the storage as it was.
func (s *TaskStorage) Commit(ctx context.Context, batch repo.Batch) (time.Time, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	if s.hook != nil {
		if err := s.hook(batch); err != nil {
			return time.Time{}, err
		}
	}

	creating := make(map[string]bool, len(batch.Creates))
	for _, t := range batch.Creates {
		if _, exists := s.tasks[t.ID]; exists || creating[t.ID] {
			return time.Time{}, fmt.Errorf("create task %s: %w", t.ID, repo.ErrConflict)
		}
		creating[t.ID] = true
	}
	for _, u := range batch.Updates {
		if _, ok := s.tasks[u.ID]; !ok && !creating[u.ID] {
			return time.Time{}, fmt.Errorf("update task %s: %w", u.ID, repo.ErrNotFound)
		}
	}
	for _, id := range batch.Deletes {
		if _, ok := s.tasks[id]; !ok {
			return time.Time{}, fmt.Errorf("delete task %s: %w", id, repo.ErrNotFound)
		}
	}

	now := s.clock()
	for _, t := range batch.Creates {
		c := t.Clone()
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if c.Status == task.StatusDone && c.DoneAt == nil {
			stamp := now
			c.DoneAt = &stamp
		}
		s.tasks[c.ID] = c
		s.ids = append(s.ids, c.ID)
	}
	for _, u := range batch.Updates {
		u.Apply(s.tasks[u.ID], now)
	}
	if len(batch.Deletes) > 0 {
		deleted := make(map[string]bool, len(batch.Deletes))
		for _, id := range batch.Deletes {
			deleted[id] = true
			delete(s.tasks, id)
		}
		kept := s.ids[:0]
		for _, id := range s.ids {
			if !deleted[id] {
				kept = append(kept, id)
			}
		}
		s.ids = kept
	}

	logger.Debug("Repository: Batch applied",
		zap.Int("creates", len(batch.Creates)),
		zap.Int("updates", len(batch.Updates)),
		zap.Int("deletes", len(batch.Deletes)))
	return now, nil
}
