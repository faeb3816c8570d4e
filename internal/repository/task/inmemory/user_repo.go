package inmemory

import (
	"context"
	"sort"

	"taskwise/internal/models/user"
	repo "taskwise/internal/repository"
)

func (s *TaskStorage) GetUser(ctx context.Context, id string) (*user.AppUser, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (s *TaskStorage) ListUsers(ctx context.Context, department string) ([]*user.AppUser, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*user.AppUser{}
	for _, u := range s.users {
		if department != "" && u.Department != department {
			continue
		}
		c := *u
		res = append(res, &c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Email < res[j].Email })
	return res, nil
}

func (s *TaskStorage) SaveUser(ctx context.Context, u *user.AppUser) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	c := *u
	s.users[u.ID] = &c
	return nil
}
