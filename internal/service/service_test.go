package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskwise/internal/models/department"
	"taskwise/internal/models/task"
	"taskwise/internal/models/user"
	repo "taskwise/internal/repository"
	"taskwise/internal/repository/task/inmemory"
	"taskwise/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

var _ service.Summarizer = (*MockSummarizer)(nil)

var now = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

var (
	root   = &user.AppUser{ID: "root", Email: "root@x.io", Role: user.RoleSysAdmin, Status: user.StatusApproved}
	boss   = &user.AppUser{ID: "boss", Email: "boss@x.io", Role: user.RoleDepAdmin, Status: user.StatusApproved, Department: "Ops"}
	worker = &user.AppUser{ID: "w1", Email: "w1@x.io", Role: user.RoleUser, Status: user.StatusApproved, Department: "Ops"}
)

func setup(t *testing.T, opts ...service.Option) (*service.Service, *inmemory.TaskStorage) {
	t.Helper()
	ctx := context.Background()
	store := inmemory.NewTaskStorage()
	store.SetClock(func() time.Time { return now })

	require.NoError(t, store.CreateDepartment(ctx, &department.Department{ID: "d-ops", Name: "Ops", Color: "#ff0000"}))
	require.NoError(t, store.CreateDepartment(ctx, &department.Department{ID: "d-hr", Name: "HR", Color: "#00ff00"}))
	for _, u := range []*user.AppUser{root, boss, worker} {
		require.NoError(t, store.SaveUser(ctx, u))
	}

	opts = append([]service.Option{service.WithClock(func() time.Time { return now })}, opts...)
	return service.NewService(store, opts...), store
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var be *service.BusinessError
	require.True(t, errors.As(err, &be), "expected business error, got %v", err)
	assert.Equal(t, code, be.Code)
}

func TestService_HealthCheck(t *testing.T) {
	svc, _ := setup(t)
	assert.NoError(t, svc.HealthCheck(context.Background()))
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name       string
		identity   user.Identity
		wantRole   user.Role
		wantStatus user.AccountStatus
	}{
		{name: "regular sign-in is pending", identity: user.Identity{ID: "n1", Email: "new@x.io"}, wantRole: user.RoleUser, wantStatus: user.StatusPending},
		{name: "bootstrap email is approved sysadmin", identity: user.Identity{ID: "n2", Email: "Owner@X.io"}, wantRole: user.RoleSysAdmin, wantStatus: user.StatusApproved},
		{name: "existing profile is kept", identity: user.Identity{ID: "boss", Email: "boss@x.io", DisplayName: "Boss"}, wantRole: user.RoleDepAdmin, wantStatus: user.StatusApproved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setup(t, service.WithBootstrapSysadmins("owner@x.io"))
			u, err := svc.Register(context.Background(), tt.identity)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, u.Role)
			assert.Equal(t, tt.wantStatus, u.Status)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	require.NoError(t, store.SaveUser(ctx, &user.AppUser{ID: "p", Role: user.RoleUser, Status: user.StatusPending}))

	_, err := svc.Authenticate(ctx, user.Identity{ID: "ghost"})
	assertCode(t, err, service.CodeUnauthenticated)

	_, err = svc.Authenticate(ctx, user.Identity{})
	assertCode(t, err, service.CodeUnauthenticated)

	_, err = svc.Authenticate(ctx, user.Identity{ID: "p"})
	assertCode(t, err, service.CodePermissionDenied)

	u, err := svc.Authenticate(ctx, user.Identity{ID: worker.ID})
	require.NoError(t, err)
	assert.Equal(t, worker.ID, u.ID)
}

func TestCreateTask(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CreateTask(ctx, worker, service.CreateInput{Name: "x", Department: "Nowhere"})
	assertCode(t, err, service.CodeValidation)

	_, err = svc.CreateTask(ctx, worker, service.CreateInput{Name: "  ", Department: "Ops"})
	assertCode(t, err, service.CodeValidation)

	_, err = svc.CreateTask(ctx, worker, service.CreateInput{Name: "x", Department: "HR"})
	assertCode(t, err, service.CodePermissionDenied)

	_, err = svc.CreateTask(ctx, boss, service.CreateInput{Name: "x", Department: "Ops", UserID: "ghost"})
	assertCode(t, err, service.CodeValidation)

	created, err := svc.CreateTask(ctx, boss, service.CreateInput{
		Name:       "Ship it",
		Department: "Ops",
		Comments:   `<p>go <strong>now</strong></p><script>alert(1)</script>`,
		UserID:     worker.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, worker.ID, created.UserID)
	assert.Equal(t, task.StatusInProgress, created.Status)
	assert.Equal(t, "<p>go <strong>now</strong></p>", created.Comments)
	assert.Len(t, created.History, 2)

	cols, err := svc.Columns(ctx, worker)
	require.NoError(t, err)
	require.Len(t, cols[task.StatusInProgress], 1)
	assert.Empty(t, cols[task.StatusInProgress][0].DepColor)

	adminCols, err := svc.Columns(ctx, boss)
	require.NoError(t, err)
	require.Len(t, adminCols[task.StatusInProgress], 1)
	assert.Equal(t, "#ff0000", adminCols[task.StatusInProgress][0].DepColor)
}

func TestEditAndMove(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, worker, service.CreateInput{Name: "Write", Department: "Ops"})
	require.NoError(t, err)

	_, err = svc.EditTask(ctx, worker, created.ID, task.NewEdit(task.WithAssignee(boss.ID)))
	assertCode(t, err, service.CodePermissionDenied)

	_, err = svc.EditTask(ctx, worker, created.ID, task.Edit{})
	assertCode(t, err, service.CodeValidation)

	updated, err := svc.EditTask(ctx, worker, created.ID, task.NewEdit(task.WithName("Write docs"), task.WithComments(`<a href="javascript:x()">bad</a>`)))
	require.NoError(t, err)
	assert.Equal(t, "Write docs", updated.Name)
	assert.NotContains(t, updated.Comments, "javascript")
	assert.Len(t, updated.History, 3)

	_, err = svc.EditTask(ctx, worker, created.ID, task.NewEdit(task.WithName("Write docs")))
	assertCode(t, err, service.CodeNoChange)

	_, err = svc.MoveTask(ctx, worker, created.ID, task.StatusDone, 0)
	assertCode(t, err, service.CodeTransitionDenied)

	_, err = svc.MoveTask(ctx, worker, created.ID, task.StatusToBeReviewed, 3)
	assertCode(t, err, service.CodeValidation)

	cols, err := svc.MoveTask(ctx, worker, created.ID, task.StatusToBeReviewed, 0)
	require.NoError(t, err)
	require.Len(t, cols[task.StatusToBeReviewed], 1)

	statuses, err := svc.Transitions(ctx, worker, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []task.Status{task.StatusToBeReviewed}, statuses)

	statuses, err = svc.Transitions(ctx, boss, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []task.Status{task.StatusInProgress, task.StatusDone, task.StatusDeprecated}, statuses)

	_, err = svc.GetTask(ctx, worker, "ghost")
	assertCode(t, err, service.CodeNotFound)
}

func TestEditTask_RepeatedValuesAreNotReassignments(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	own, err := svc.CreateTask(ctx, worker, service.CreateInput{Name: "a", Department: "Ops"})
	require.NoError(t, err)
	hrTask, err := svc.CreateTask(ctx, root, service.CreateInput{Name: "hr", Department: "HR", UserID: worker.ID})
	require.NoError(t, err)

	tests := []struct {
		name     string
		id       string
		edit     task.Edit
		wantCode string
		wantName string
	}{
		{
			name:     "full form with own assignee and department",
			id:       own.ID,
			edit:     task.NewEdit(task.WithName("b"), task.WithAssignee(worker.ID), task.WithDepartment("Ops")),
			wantName: "b",
		},
		{
			name:     "unchanged foreign department",
			id:       hrTask.ID,
			edit:     task.NewEdit(task.WithName("hr2"), task.WithDepartment("HR"), task.WithAssignee(worker.ID)),
			wantName: "hr2",
		},
		{
			name:     "changed assignee still needs an admin",
			id:       own.ID,
			edit:     task.NewEdit(task.WithName("c"), task.WithAssignee(boss.ID)),
			wantCode: service.CodePermissionDenied,
		},
		{
			name:     "changed department still needs a sysadmin",
			id:       own.ID,
			edit:     task.NewEdit(task.WithDepartment("HR")),
			wantCode: service.CodePermissionDenied,
		},
		{
			name:     "only repeated values",
			id:       own.ID,
			edit:     task.NewEdit(task.WithAssignee(worker.ID), task.WithDepartment("Ops")),
			wantCode: service.CodeNoChange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, err := svc.EditTask(ctx, worker, tt.id, tt.edit)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, updated.Name)
			assert.Equal(t, worker.ID, updated.UserID)
		})
	}

	got, err := svc.GetTask(ctx, worker, own.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ops", got.Department)
	assert.Equal(t, "b", got.Name)
	assert.Len(t, got.History, 2)
}

func TestSweepAndArchive(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()

	stale := now.Add(-49 * time.Hour)
	fresh := now.Add(-10 * time.Hour)
	_, err := store.Commit(ctx, repo.Batch{Creates: []*task.Task{
		{ID: "old", Name: "old", Department: "Ops", UserID: worker.ID, Status: task.StatusDone, Order: 0, DoneAt: &stale},
		{ID: "new", Name: "new", Department: "Ops", UserID: worker.ID, Status: task.StatusDone, Order: 1, DoneAt: &fresh},
	}})
	require.NoError(t, err)

	_, err = svc.SweepAs(ctx, boss)
	assertCode(t, err, service.CodePermissionDenied)

	n, err := svc.SweepAs(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	archived, err := svc.ArchivedTasks(ctx, worker)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "old", archived[0].ID)
	require.NotNil(t, archived[0].ArchivedAt)
	assert.Equal(t, now, *archived[0].ArchivedAt)

	_, err = svc.ReopenTask(ctx, worker, "old")
	assertCode(t, err, service.CodePermissionDenied)

	reopened, err := svc.ReopenTask(ctx, boss, "old")
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, reopened.Status)

	_, err = svc.ReopenTask(ctx, boss, "old")
	assertCode(t, err, service.CodeInvalidState)
}

func TestDeleteTasks(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	a, err := svc.CreateTask(ctx, worker, service.CreateInput{Name: "a", Department: "Ops"})
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, worker, service.CreateInput{Name: "b", Department: "Ops"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(ctx, worker, a.ID))
	_, err = svc.GetTask(ctx, worker, a.ID)
	assertCode(t, err, service.CodeNotFound)

	_, err = svc.DeleteAllTasks(ctx, boss)
	assertCode(t, err, service.CodePermissionDenied)

	n, err := svc.DeleteAllTasks(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.DeleteAllTasks(ctx, root)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFailedCommitSurfacesAsBusinessError(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, worker, service.CreateInput{Name: "a", Department: "Ops"})
	require.NoError(t, err)

	store.SetCommitHook(func(repo.Batch) error { return repo.ErrPermissionDenied })
	_, err = svc.MoveTask(ctx, worker, created.ID, task.StatusToBeReviewed, 0)
	assertCode(t, err, service.CodePermissionDenied)

	store.SetCommitHook(func(repo.Batch) error { return errors.New("disk full") })
	_, err = svc.MoveTask(ctx, worker, created.ID, task.StatusToBeReviewed, 0)
	assertCode(t, err, service.CodeOperationFailed)
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	long := "Investigate the nightly export job failures"

	tests := []struct {
		name      string
		text      string
		setupMock func(*MockSummarizer)
		wantCode  string
		want      string
	}{
		{
			name:      "too short",
			text:      "fix it",
			setupMock: func(m *MockSummarizer) {},
			wantCode:  service.CodeValidation,
		},
		{
			name: "summary",
			text: long,
			setupMock: func(m *MockSummarizer) {
				m.On("Summarize", mock.Anything, long).Return("Fix export.", nil)
			},
			want: "Fix export.",
		},
		{
			name: "upstream failure",
			text: long,
			setupMock: func(m *MockSummarizer) {
				m.On("Summarize", mock.Anything, long).Return("", errors.New("timeout"))
			},
			wantCode: service.CodeOperationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockSummarizer)
			tt.setupMock(m)
			svc, _ := setup(t, service.WithSummarizer(m))

			got, err := svc.Summarize(ctx, worker, tt.text)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			m.AssertExpectations(t)
		})
	}

	svc, _ := setup(t)
	_, err := svc.Summarize(ctx, worker, long)
	assertCode(t, err, service.CodeOperationFailed)
}

func ptr[T any](v T) *T { return &v }

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	pending := &user.AppUser{ID: "p1", Role: user.RoleUser, Status: user.StatusPending}
	hrUser := &user.AppUser{ID: "h1", Role: user.RoleUser, Status: user.StatusApproved, Department: "HR"}

	tests := []struct {
		name     string
		actor    *user.AppUser
		target   string
		patch    service.UserPatch
		wantCode string
	}{
		{name: "approval needs department", actor: root, target: "p1", patch: service.UserPatch{Status: ptr(user.StatusApproved)}, wantCode: service.CodeValidation},
		{name: "approve with department", actor: root, target: "p1", patch: service.UserPatch{Status: ptr(user.StatusApproved), Department: ptr("Ops")}},
		{name: "unknown department", actor: root, target: "p1", patch: service.UserPatch{Department: ptr("Mars")}, wantCode: service.CodeValidation},
		{name: "depadmin cannot grant sysadmin", actor: boss, target: worker.ID, patch: service.UserPatch{Role: ptr(user.RoleSysAdmin)}, wantCode: service.CodePermissionDenied},
		{name: "depadmin cannot move departments", actor: boss, target: worker.ID, patch: service.UserPatch{Department: ptr("HR")}, wantCode: service.CodePermissionDenied},
		{name: "depadmin cannot manage other departments", actor: boss, target: "h1", patch: service.UserPatch{Status: ptr(user.StatusSuspended)}, wantCode: service.CodePermissionDenied},
		{name: "depadmin suspends own member", actor: boss, target: worker.ID, patch: service.UserPatch{Status: ptr(user.StatusSuspended)}},
		{name: "no self demotion", actor: root, target: root.ID, patch: service.UserPatch{Role: ptr(user.RoleUser)}, wantCode: service.CodePermissionDenied},
		{name: "user cannot manage", actor: worker, target: "p1", patch: service.UserPatch{Status: ptr(user.StatusApproved)}, wantCode: service.CodePermissionDenied},
		{name: "empty patch", actor: root, target: "p1", wantCode: service.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := setup(t)
			require.NoError(t, store.SaveUser(ctx, pending))
			require.NoError(t, store.SaveUser(ctx, hrUser))

			u, err := svc.UpdateUser(ctx, tt.actor, tt.target, tt.patch)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			stored, err := store.GetUser(ctx, tt.target)
			require.NoError(t, err)
			assert.Equal(t, u, stored)
		})
	}
}

func TestListUsers(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	require.NoError(t, store.SaveUser(ctx, &user.AppUser{ID: "h1", Department: "HR"}))

	all, err := svc.ListUsers(ctx, root)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	ops, err := svc.ListUsers(ctx, boss)
	require.NoError(t, err)
	assert.Len(t, ops, 2)

	_, err = svc.ListUsers(ctx, worker)
	assertCode(t, err, service.CodePermissionDenied)
}

func TestDepartments(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CreateDepartment(ctx, boss, "Sales", "#123456")
	assertCode(t, err, service.CodePermissionDenied)

	_, err = svc.CreateDepartment(ctx, root, "S", "#123456")
	assertCode(t, err, service.CodeValidation)

	_, err = svc.CreateDepartment(ctx, root, "Sales", "blue")
	assertCode(t, err, service.CodeValidation)

	_, err = svc.CreateDepartment(ctx, root, "ops", "#123456")
	assertCode(t, err, service.CodeConflict)

	sales, err := svc.CreateDepartment(ctx, root, "Sales", "")
	require.NoError(t, err)
	assert.Equal(t, service.DefaultDepartmentColor, sales.Color)

	renamed, err := svc.UpdateDepartment(ctx, root, sales.ID, "Sales EU", "#abcdef")
	require.NoError(t, err)
	assert.Equal(t, "Sales EU", renamed.Name)

	_, err = svc.UpdateDepartment(ctx, root, "d-ops", "Operations", "#ff0000")
	assertCode(t, err, service.CodeConflict)

	assertCode(t, svc.DeleteDepartment(ctx, root, "d-ops"), service.CodeConflict)
	require.NoError(t, svc.DeleteDepartment(ctx, root, sales.ID))
	assertCode(t, svc.DeleteDepartment(ctx, root, sales.ID), service.CodeNotFound)
}

func TestDepartmentStats(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CreateTask(ctx, worker, service.CreateInput{Name: "a", Department: "Ops"})
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, root, service.CreateInput{Name: "b", Department: "HR"})
	require.NoError(t, err)

	stats, err := svc.DepartmentStats(ctx, root)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	for _, st := range stats {
		assert.Equal(t, 1, st.Total)
		assert.Equal(t, 1, st.Counts[task.StatusInProgress])
		assert.Zero(t, st.Counts[task.StatusDone])
	}

	own, err := svc.DepartmentStats(ctx, boss)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "Ops", own[0].Department.Name)

	_, err = svc.DepartmentStats(ctx, worker)
	assertCode(t, err, service.CodePermissionDenied)
}
