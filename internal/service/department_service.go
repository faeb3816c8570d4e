package service

import (
	"context"
	"strings"

	"taskwise/internal/board"
	"taskwise/internal/logger"
	"taskwise/internal/models/department"
	"taskwise/internal/models/task"
	"taskwise/internal/models/user"
	repo "taskwise/internal/repository"

	"go.uber.org/zap"
)

const DefaultDepartmentColor = "#2563eb"

// DepartmentStats counts a department's tasks per status.
type DepartmentStats struct {
	Department *department.Department `json:"department"`
	Counts     map[task.Status]int    `json:"counts"`
	Total      int                    `json:"total"`
}

func (s *Service) ListDepartments(ctx context.Context, actor *user.AppUser) ([]*department.Department, error) {
	if !actor.Approved() {
		return nil, NewPermissionDenied("account is not approved")
	}
	deps, err := s.store.ListDepartments(ctx)
	if err != nil {
		return nil, toBusinessError("department", "", err)
	}
	return deps, nil
}

func validateDepartment(name, color string) (string, string, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < 2 {
		return "", "", NewValidationError("name", "department name must be at least 2 characters")
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = DefaultDepartmentColor
	}
	if !department.ValidColor(color) {
		return "", "", NewValidationError("depcolor", "must be a valid hex color (e.g. #RRGGBB)")
	}
	return name, color, nil
}

func requireSysAdmin(actor *user.AppUser) error {
	if actor.Role != user.RoleSysAdmin || !actor.Approved() {
		return NewPermissionDenied("only system administrators can manage departments")
	}
	return nil
}

func (s *Service) CreateDepartment(ctx context.Context, actor *user.AppUser, name, color string) (*department.Department, error) {
	if err := requireSysAdmin(actor); err != nil {
		return nil, err
	}
	name, color, err := validateDepartment(name, color)
	if err != nil {
		return nil, err
	}

	d := &department.Department{ID: s.newID(), Name: name, Color: color}
	if err := s.store.CreateDepartment(ctx, d); err != nil {
		return nil, toBusinessError("department", name, err)
	}
	logger.Info("Service: Department created", zap.String("department", name))
	return d, nil
}

// UpdateDepartment changes name and colour. Tasks and users refer to a
// department by name, so a referenced department keeps its name.
func (s *Service) UpdateDepartment(ctx context.Context, actor *user.AppUser, id, name, color string) (*department.Department, error) {
	if err := requireSysAdmin(actor); err != nil {
		return nil, err
	}
	name, color, err := validateDepartment(name, color)
	if err != nil {
		return nil, err
	}

	current, err := s.store.GetDepartment(ctx, id)
	if err != nil {
		return nil, toBusinessError("department", id, err)
	}
	if current.Name != name {
		if err := s.ensureUnreferenced(ctx, current.Name); err != nil {
			return nil, err
		}
	}

	d := &department.Department{ID: id, Name: name, Color: color}
	if err := s.store.UpdateDepartment(ctx, d); err != nil {
		return nil, toBusinessError("department", id, err)
	}
	return d, nil
}

func (s *Service) DeleteDepartment(ctx context.Context, actor *user.AppUser, id string) error {
	if err := requireSysAdmin(actor); err != nil {
		return err
	}
	current, err := s.store.GetDepartment(ctx, id)
	if err != nil {
		return toBusinessError("department", id, err)
	}
	if err := s.ensureUnreferenced(ctx, current.Name); err != nil {
		return err
	}
	if err := s.store.DeleteDepartment(ctx, id); err != nil {
		return toBusinessError("department", id, err)
	}
	logger.Info("Service: Department deleted", zap.String("department", current.Name))
	return nil
}

func (s *Service) ensureUnreferenced(ctx context.Context, name string) error {
	tasks, err := s.store.ListTasks(ctx, repo.Scope{Department: name})
	if err != nil {
		return toBusinessError("department", name, err)
	}
	users, err := s.store.ListUsers(ctx, name)
	if err != nil {
		return toBusinessError("department", name, err)
	}
	if len(tasks) > 0 || len(users) > 0 {
		return NewBusinessError(CodeConflict, "department "+name+" is still in use",
			ToDetail("tasks", len(tasks)),
			ToDetail("users", len(users)))
	}
	return nil
}

// DepartmentStats counts tasks per status for every department the
// administrator oversees.
func (s *Service) DepartmentStats(ctx context.Context, actor *user.AppUser) ([]DepartmentStats, error) {
	if !actor.IsAdmin() || !actor.Approved() {
		return nil, NewPermissionDenied("only administrators can view department statistics")
	}
	deps, err := s.store.ListDepartments(ctx)
	if err != nil {
		return nil, toBusinessError("department", "", err)
	}
	tasks, err := s.store.ListTasks(ctx, board.ScopeFor(actor))
	if err != nil {
		return nil, toBusinessError("task", "", err)
	}

	byName := make(map[string]*DepartmentStats, len(deps))
	out := make([]DepartmentStats, 0, len(deps))
	for _, d := range deps {
		if actor.Role != user.RoleSysAdmin && d.Name != actor.Department {
			continue
		}
		counts := make(map[task.Status]int, len(task.Statuses))
		for _, st := range task.Statuses {
			counts[st] = 0
		}
		out = append(out, DepartmentStats{Department: d, Counts: counts})
	}
	for i := range out {
		byName[out[i].Department.Name] = &out[i]
	}
	for _, t := range tasks {
		if st, ok := byName[t.Department]; ok {
			st.Counts[t.Status]++
			st.Total++
		}
	}
	return out, nil
}
