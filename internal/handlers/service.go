package handlers

import (
	"context"

	"taskwise/internal/board"
	"taskwise/internal/models/department"
	"taskwise/internal/models/task"
	"taskwise/internal/models/user"
	"taskwise/internal/service"
)

type Service interface {
	HealthCheck(ctx context.Context) error

	Me(ctx context.Context, id user.Identity) (*user.AppUser, error)
	Register(ctx context.Context, id user.Identity) (*user.AppUser, error)
	Authenticate(ctx context.Context, id user.Identity) (*user.AppUser, error)

	OpenBoard(ctx context.Context, actor *user.AppUser) (*board.Board, error)
	Columns(ctx context.Context, actor *user.AppUser) (board.Columns, error)
	GetTask(ctx context.Context, actor *user.AppUser, id string) (*task.Task, error)
	CreateTask(ctx context.Context, actor *user.AppUser, in service.CreateInput) (*task.Task, error)
	EditTask(ctx context.Context, actor *user.AppUser, id string, edit task.Edit) (*task.Task, error)
	MoveTask(ctx context.Context, actor *user.AppUser, id string, dest task.Status, index int) (board.Columns, error)
	ReopenTask(ctx context.Context, actor *user.AppUser, id string) (*task.Task, error)
	DeleteTask(ctx context.Context, actor *user.AppUser, id string) error
	DeleteAllTasks(ctx context.Context, actor *user.AppUser) (int, error)
	History(ctx context.Context, actor *user.AppUser, id string) ([]task.HistoryEntry, error)
	Transitions(ctx context.Context, actor *user.AppUser, id string) ([]task.Status, error)
	ArchivedTasks(ctx context.Context, actor *user.AppUser) ([]service.ArchivedTask, error)
	SweepAs(ctx context.Context, actor *user.AppUser) (int, error)
	Summarize(ctx context.Context, actor *user.AppUser, text string) (string, error)

	ListUsers(ctx context.Context, actor *user.AppUser) ([]*user.AppUser, error)
	UpdateUser(ctx context.Context, actor *user.AppUser, id string, patch service.UserPatch) (*user.AppUser, error)

	ListDepartments(ctx context.Context, actor *user.AppUser) ([]*department.Department, error)
	CreateDepartment(ctx context.Context, actor *user.AppUser, name, color string) (*department.Department, error)
	UpdateDepartment(ctx context.Context, actor *user.AppUser, id, name, color string) (*department.Department, error)
	DeleteDepartment(ctx context.Context, actor *user.AppUser, id string) error
	DepartmentStats(ctx context.Context, actor *user.AppUser) ([]service.DepartmentStats, error)
}

var _ Service = (*service.Service)(nil)
