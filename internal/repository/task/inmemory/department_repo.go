package inmemory

import (
	"context"
	"sort"
	"strings"

	"taskwise/internal/models/department"
	repo "taskwise/internal/repository"
)

func (s *TaskStorage) ListDepartments(ctx context.Context) ([]*department.Department, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*department.Department{}
	for _, d := range s.departments {
		c := *d
		res = append(res, &c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res, nil
}

func (s *TaskStorage) GetDepartment(ctx context.Context, id string) (*department.Department, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	d, ok := s.departments[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *d
	return &c, nil
}

func (s *TaskStorage) CreateDepartment(ctx context.Context, d *department.Department) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, exists := s.departments[d.ID]; exists || s.nameTaken(d.Name, "") {
		return repo.ErrConflict
	}
	c := *d
	s.departments[d.ID] = &c
	return nil
}

func (s *TaskStorage) UpdateDepartment(ctx context.Context, d *department.Department) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.departments[d.ID]; !ok {
		return repo.ErrNotFound
	}
	if s.nameTaken(d.Name, d.ID) {
		return repo.ErrConflict
	}
	c := *d
	s.departments[d.ID] = &c
	return nil
}

func (s *TaskStorage) DeleteDepartment(ctx context.Context, id string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.departments[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.departments, id)
	return nil
}

func (s *TaskStorage) nameTaken(name, exceptID string) bool {
	for id, d := range s.departments {
		if id != exceptID && strings.EqualFold(d.Name, name) {
			return true
		}
	}
	return false
}
