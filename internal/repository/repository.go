package repository

import (
	"context"
	"errors"
	"time"

	"taskwise/internal/models/department"
	"taskwise/internal/models/task"
	"taskwise/internal/models/user"
)

var ErrNotFound = errors.New("not found")
var ErrPermissionDenied = errors.New("permission denied")
var ErrConflict = errors.New("conflict")

// Scope restricts which tasks a query returns. The zero Scope matches nothing.
type Scope struct {
	All        bool
	Department string
	UserID     string
}

func (s Scope) Matches(t *task.Task) bool {
	switch {
	case s.All:
		return true
	case s.Department != "":
		return t.Department == s.Department
	case s.UserID != "":
		return t.UserID == s.UserID
	default:
		return false
	}
}

func (s Scope) Empty() bool {
	return !s.All && s.Department == "" && s.UserID == ""
}

type TaskRepository interface {
	HealthCheck(ctx context.Context) error
	ListTasks(ctx context.Context, scope Scope) ([]*task.Task, error)
	GetTask(ctx context.Context, id string) (*task.Task, error)
	// Commit applies every write of the batch or none of them and returns
	// the server time used for server-stamped fields.
	Commit(ctx context.Context, batch Batch) (time.Time, error)
}

type UserRepository interface {
	GetUser(ctx context.Context, id string) (*user.AppUser, error)
	// ListUsers returns users of one department, or all users for "".
	ListUsers(ctx context.Context, department string) ([]*user.AppUser, error)
	SaveUser(ctx context.Context, u *user.AppUser) error
}

type DepartmentRepository interface {
	ListDepartments(ctx context.Context) ([]*department.Department, error)
	GetDepartment(ctx context.Context, id string) (*department.Department, error)
	CreateDepartment(ctx context.Context, d *department.Department) error
	UpdateDepartment(ctx context.Context, d *department.Department) error
	DeleteDepartment(ctx context.Context, id string) error
}

type Store interface {
	TaskRepository
	UserRepository
	DepartmentRepository
	Close() error
}
