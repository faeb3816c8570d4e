package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"taskwise/internal/board"
	"taskwise/internal/logger"
	"taskwise/internal/models/department"
	"taskwise/internal/models/task"
	"taskwise/internal/models/user"
	repo "taskwise/internal/repository"

	"go.uber.org/zap"
)

type CreateInput struct {
	Name       string
	Department string
	Comments   string
	UserID     string
}

// ArchivedTask is an archived task with the time it was archived, taken
// from its history.
type ArchivedTask struct {
	*task.Task
	ArchivedAt *time.Time `json:"archivedAt"`
}

func (s *Service) Columns(ctx context.Context, actor *user.AppUser) (board.Columns, error) {
	var cols board.Columns
	err := s.withBoard(ctx, actor, func(b *board.Board) error {
		cols = b.Columns()
		return nil
	})
	return cols, err
}

func (s *Service) GetTask(ctx context.Context, actor *user.AppUser, id string) (*task.Task, error) {
	var found *task.Task
	err := s.withBoard(ctx, actor, func(b *board.Board) error {
		t, ok := b.Task(id)
		if !ok {
			logger.Info("Service: Task not found", zap.String("task_id", id), zap.String("actor", actor.ID))
			return NewNotFound("task", id)
		}
		found = t
		return nil
	})
	return found, err
}

func (s *Service) CreateTask(ctx context.Context, actor *user.AppUser, in CreateInput) (*task.Task, error) {
	if strings.TrimSpace(in.Department) == "" {
		return nil, NewValidationError("department", "a department is required for a new task")
	}
	if _, err := s.departmentByName(ctx, in.Department); err != nil {
		return nil, err
	}
	if actor.IsAdmin() && in.UserID != "" && in.UserID != actor.ID {
		if err := s.checkAssignee(ctx, in.UserID); err != nil {
			return nil, err
		}
	}

	draft := board.Draft{
		Name:       in.Name,
		Department: in.Department,
		Comments:   s.sanitize(in.Comments),
		UserID:     in.UserID,
	}

	var created *task.Task
	err := s.withBoard(ctx, actor, func(b *board.Board) error {
		t, _, err := b.Create(ctx, draft)
		if err != nil {
			return toBusinessError("task", "", err)
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Service: Task created", zap.String("task_id", created.ID), zap.String("actor", actor.ID))
	return created, nil
}

// EditTask applies the proposed field values and returns the updated task.
func (s *Service) EditTask(ctx context.Context, actor *user.AppUser, id string, edit task.Edit) (*task.Task, error) {
	if edit.Empty() {
		return nil, NewValidationError("body", "no fields to update")
	}
	if edit.Comments != nil {
		clean := s.sanitize(*edit.Comments)
		edit.Comments = &clean
	}

	var updated *task.Task
	err := s.withBoard(ctx, actor, func(b *board.Board) error {
		current, ok := b.Task(id)
		if !ok {
			return NewNotFound("task", id)
		}
		if err := s.checkReassignment(ctx, actor, current, edit); err != nil {
			return err
		}
		if _, err := b.ApplyFieldEdit(ctx, id, edit); err != nil {
			return toBusinessError("task", id, err)
		}
		updated, _ = b.Task(id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// reassigned out of the actor's scope
		t, err := s.store.GetTask(ctx, id)
		return t, toBusinessError("task", id, err)
	}
	return updated, nil
}

// MoveTask places a task at index of the dest column and returns the
// resulting columns.
func (s *Service) MoveTask(ctx context.Context, actor *user.AppUser, id string, dest task.Status, index int) (board.Columns, error) {
	var cols board.Columns
	err := s.withBoard(ctx, actor, func(b *board.Board) error {
		if _, err := b.Reorder(ctx, id, dest, index); err != nil {
			return toBusinessError("task", id, err)
		}
		cols = b.Columns()
		return nil
	})
	return cols, err
}

func (s *Service) ReopenTask(ctx context.Context, actor *user.AppUser, id string) (*task.Task, error) {
	var reopened *task.Task
	err := s.withBoard(ctx, actor, func(b *board.Board) error {
		if _, err := b.Reopen(ctx, id); err != nil {
			return toBusinessError("task", id, err)
		}
		reopened, _ = b.Task(id)
		return nil
	})
	return reopened, err
}

func (s *Service) DeleteTask(ctx context.Context, actor *user.AppUser, id string) error {
	return s.withBoard(ctx, actor, func(b *board.Board) error {
		if _, err := b.Delete(ctx, id); err != nil {
			return toBusinessError("task", id, err)
		}
		logger.Info("Service: Task deleted", zap.String("task_id", id), zap.String("actor", actor.ID))
		return nil
	})
}

// DeleteAllTasks permanently removes every task and reports how many were
// deleted.
func (s *Service) DeleteAllTasks(ctx context.Context, actor *user.AppUser) (int, error) {
	if actor.Role != user.RoleSysAdmin {
		return 0, NewPermissionDenied("only system administrators can delete all tasks")
	}
	deleted := 0
	err := s.withBoard(ctx, actor, func(b *board.Board) error {
		out, err := b.DeleteAll(ctx)
		if errors.Is(err, board.ErrNoChange) {
			return nil
		}
		if err != nil {
			return toBusinessError("task", "", err)
		}
		deleted = out.Writes
		return nil
	})
	if err == nil {
		logger.Warn("Service: All tasks deleted", zap.Int("count", deleted), zap.String("actor", actor.ID))
	}
	return deleted, err
}

func (s *Service) History(ctx context.Context, actor *user.AppUser, id string) ([]task.HistoryEntry, error) {
	t, err := s.GetTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if t.History == nil {
		return []task.HistoryEntry{}, nil
	}
	return t.History, nil
}

// Transitions lists the statuses the actor may pick for the task. Tasks
// the actor cannot edit only offer their current status.
func (s *Service) Transitions(ctx context.Context, actor *user.AppUser, id string) ([]task.Status, error) {
	t, err := s.GetTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !board.CanEdit(actor, t) {
		return []task.Status{t.Status}, nil
	}
	return board.AllowedTransitions(actor.Role, t.Status, false), nil
}

// ArchivedTasks lists the archived tasks visible to actor, most recently
// archived first.
func (s *Service) ArchivedTasks(ctx context.Context, actor *user.AppUser) ([]ArchivedTask, error) {
	var out []ArchivedTask
	err := s.withBoard(ctx, actor, func(b *board.Board) error {
		for _, t := range b.Columns()[task.StatusArchived] {
			out = append(out, ArchivedTask{Task: t, ArchivedAt: t.ArchivedAt()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ArchivedAt, out[j].ArchivedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	if out == nil {
		out = []ArchivedTask{}
	}
	return out, nil
}

// Sweep archives every Done task older than the retention window and
// reports how many were archived.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	b := board.NewSystem(s.store, s.boardOptions()...)
	if err := b.Open(ctx); err != nil {
		return 0, toBusinessError("board", task.SystemActor, err)
	}
	defer b.Close()

	before := len(b.Columns()[task.StatusDone])
	out, err := b.Sweep(ctx)
	if errors.Is(err, board.ErrNoChange) {
		logger.Debug("Service: Sweep found nothing to archive")
		return 0, nil
	}
	if err != nil {
		return 0, toBusinessError("task", "", err)
	}

	archived := before - len(board.BuildColumns(out.Tasks)[task.StatusDone])
	logger.Info("Service: Sweep archived tasks", zap.Int("count", archived))
	return archived, nil
}

// SweepAs runs the sweep on behalf of a system administrator.
func (s *Service) SweepAs(ctx context.Context, actor *user.AppUser) (int, error) {
	if actor.Role != user.RoleSysAdmin || !actor.Approved() {
		return 0, NewPermissionDenied("only system administrators can run the archive sweep")
	}
	return s.Sweep(ctx)
}

func (s *Service) Summarize(ctx context.Context, actor *user.AppUser, text string) (string, error) {
	if !actor.Approved() {
		return "", NewPermissionDenied("account is not approved")
	}
	plain := strings.TrimSpace(text)
	if utf8.RuneCountInString(plain) < s.minSummary {
		return "", NewValidationError("description", "please provide a longer description to summarize")
	}
	if s.summarizer == nil {
		return "", NewBusinessError(CodeOperationFailed, "summarizer is not configured")
	}

	summary, err := s.summarizer.Summarize(ctx, plain)
	if err != nil {
		logger.Error("Service: Summarization failed", err, zap.String("actor", actor.ID))
		return "", &BusinessError{Code: CodeOperationFailed, Message: "could not generate summary", Err: err}
	}
	return summary, nil
}

// checkReassignment enforces who may move a task between departments or
// assignees. Proposed values equal to the current ones are not changes.
func (s *Service) checkReassignment(ctx context.Context, actor *user.AppUser, current *task.Task, edit task.Edit) error {
	if edit.Department != nil && *edit.Department != current.Department {
		if actor.Role != user.RoleSysAdmin && *edit.Department != actor.Department {
			return NewPermissionDenied("tasks can only be moved between departments by a system administrator")
		}
		if _, err := s.departmentByName(ctx, *edit.Department); err != nil {
			return err
		}
	}
	if edit.UserID != nil && *edit.UserID != current.UserID {
		if !actor.IsAdmin() {
			return NewPermissionDenied("only administrators can reassign tasks")
		}
		if err := s.checkAssignee(ctx, *edit.UserID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) departmentByName(ctx context.Context, name string) (*department.Department, error) {
	deps, err := s.store.ListDepartments(ctx)
	if err != nil {
		return nil, toBusinessError("department", name, err)
	}
	for _, d := range deps {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, NewValidationError("department", "unknown department "+name)
}

func (s *Service) checkAssignee(ctx context.Context, id string) error {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return NewValidationError("userId", "unknown user "+id)
	}
	if err != nil {
		return toBusinessError("user", id, err)
	}
	if u.Status == user.StatusSuspended {
		return NewValidationError("userId", "user "+id+" is suspended")
	}
	return nil
}
