// Package board keeps a viewer's task columns ordered and applies moves,
// edits and maintenance as atomic batches with optimistic local updates.
package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskwise/internal/logger"
	"taskwise/internal/models/task"
	"taskwise/internal/models/user"
	"taskwise/internal/pubsub"
	"taskwise/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultRetention = 48 * time.Hour

// Decorator enriches freshly loaded tasks with derived, unstored fields.
type Decorator func(ctx context.Context, tasks []*task.Task)

type Option func(*Board)

func WithErrors(errs *pubsub.Broker[pubsub.ErrorEvent]) Option {
	return func(b *Board) { b.errs = errs }
}

// WithChanges publishes committed batches and, once opened, lets the board
// observe batches committed elsewhere.
func WithChanges(changes *pubsub.Broker[pubsub.Change]) Option {
	return func(b *Board) { b.changes = changes }
}

func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

func WithRetention(retention time.Duration) Option {
	return func(b *Board) {
		if retention > 0 {
			b.retention = retention
		}
	}
}

func WithDecorator(d Decorator) Option {
	return func(b *Board) { b.decorate = d }
}

func WithIDs(newID func() string) Option {
	return func(b *Board) { b.newID = newID }
}

// Board is the task list visible to one actor. It holds the last
// server-confirmed snapshot and a view that includes the in-flight
// optimistic operation, if any. Operations run one at a time.
type Board struct {
	repo      repository.TaskRepository
	actor     *user.AppUser
	scope     repository.Scope
	errs      *pubsub.Broker[pubsub.ErrorEvent]
	changes   *pubsub.Broker[pubsub.Change]
	decorate  Decorator
	now       func() time.Time
	newID     func() string
	retention time.Duration

	opMu sync.Mutex

	mu        sync.RWMutex
	confirmed []*task.Task
	view      []*task.Task
	last      Outcome
	updates   <-chan pubsub.Change
	cancel    func()
	closed    bool
}

func New(repo repository.TaskRepository, actor *user.AppUser, opts ...Option) *Board {
	b := &Board{
		repo:      repo,
		actor:     actor,
		scope:     ScopeFor(actor),
		now:       time.Now,
		newID:     uuid.NewString,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewSystem returns a board over every task acting as the maintenance
// actor; it is what the archival sweep runs on.
func NewSystem(repo repository.TaskRepository, opts ...Option) *Board {
	system := &user.AppUser{ID: task.SystemActor, Role: user.RoleSysAdmin, Status: user.StatusApproved}
	return New(repo, system, opts...)
}

// Open subscribes to change notifications and then loads the first
// snapshot, so a batch committed during the load is still delivered.
func (b *Board) Open(ctx context.Context) error {
	if b.changes != nil {
		updates, cancel := b.changes.Subscribe()
		b.mu.Lock()
		b.updates, b.cancel = updates, cancel
		b.mu.Unlock()
	}
	if err := b.Reload(ctx); err != nil {
		b.mu.Lock()
		if b.cancel != nil {
			b.cancel()
			b.cancel = nil
		}
		b.mu.Unlock()
		return err
	}
	return nil
}

// Close detaches the change subscription. The board keeps its last
// snapshot but rejects further operations.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.closed = true
}

// Updates delivers batches committed by any board sharing the change
// broker. It is nil until Open and closed by Close.
func (b *Board) Updates() <-chan pubsub.Change {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updates
}

// Reload replaces both snapshot and view with a fresh server read.
func (b *Board) Reload(ctx context.Context) error {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	if b.scope.Empty() {
		b.replace(nil)
		return nil
	}
	tasks, err := b.repo.ListTasks(ctx, b.scope)
	if err != nil {
		b.report(pubsub.KindOperationFailed, "tasks", "list", nil, err)
		return fmt.Errorf("board: load tasks: %w", err)
	}
	if b.decorate != nil {
		b.decorate(ctx, tasks)
	}
	if err := CheckContiguous(tasks); err != nil {
		logger.Warn("Board: Column order drifted", zap.String("actor", b.actor.ID), zap.Error(err))
	}
	b.replace(tasks)
	return nil
}

func (b *Board) replace(tasks []*task.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmed = tasks
	b.view = tasks
}

func (b *Board) Actor() *user.AppUser {
	return b.actor
}

// Snapshot returns copies of the tasks currently shown, optimistic
// changes included.
func (b *Board) Snapshot() []*task.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneAll(b.view)
}

func (b *Board) Columns() Columns {
	return BuildColumns(b.Snapshot())
}

func (b *Board) Task(id string) (*task.Task, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t := find(b.view, id)
	if t == nil {
		return nil, false
	}
	return t.Clone(), true
}

// LastOutcome reports the state of the most recent operation.
func (b *Board) LastOutcome() Outcome {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last
}

// Reorder moves a task to index within dest, renumbering the affected
// columns. It returns ErrNoChange when the task already sits there.
func (b *Board) Reorder(ctx context.Context, id string, dest task.Status, index int) (Outcome, error) {
	return b.run(ctx, "reorder", "tasks/"+id, func(view []*task.Task, now time.Time) (repository.Batch, error) {
		return planReorder(view, b.actor, id, dest, index, now)
	})
}

// ApplyFieldEdit writes the proposed fields that differ from the task with
// one history entry each.
func (b *Board) ApplyFieldEdit(ctx context.Context, id string, edit task.Edit) (Outcome, error) {
	return b.run(ctx, "edit", "tasks/"+id, func(view []*task.Task, now time.Time) (repository.Batch, error) {
		return planEdit(view, b.actor, id, edit, now)
	})
}

// Reopen returns an archived task to In Progress.
func (b *Board) Reopen(ctx context.Context, id string) (Outcome, error) {
	return b.run(ctx, "reopen", "tasks/"+id, func(view []*task.Task, now time.Time) (repository.Batch, error) {
		return planReopen(view, b.actor, id, now)
	})
}

// Sweep archives Done tasks completed before the retention window.
func (b *Board) Sweep(ctx context.Context) (Outcome, error) {
	return b.run(ctx, "sweep", "tasks (batch archive)", func(view []*task.Task, now time.Time) (repository.Batch, error) {
		return planSweep(view, now, b.retention)
	})
}

func (b *Board) Create(ctx context.Context, draft Draft) (*task.Task, Outcome, error) {
	id := b.newID()
	out, err := b.run(ctx, "create", "tasks", func(view []*task.Task, now time.Time) (repository.Batch, error) {
		return planCreate(view, b.actor, draft, id, now)
	})
	if err != nil {
		return nil, out, err
	}
	created := find(out.Tasks, id)
	return created.Clone(), out, nil
}

func (b *Board) Delete(ctx context.Context, id string) (Outcome, error) {
	return b.run(ctx, "delete", "tasks/"+id, func(view []*task.Task, _ time.Time) (repository.Batch, error) {
		return planDelete(view, b.actor, id)
	})
}

// DeleteAll removes every task on the board. System administrators only.
func (b *Board) DeleteAll(ctx context.Context) (Outcome, error) {
	return b.run(ctx, "delete-all", "tasks", func(view []*task.Task, _ time.Time) (repository.Batch, error) {
		return planDeleteAll(view, b.actor)
	})
}

type planFunc func(view []*task.Task, now time.Time) (repository.Batch, error)

func (b *Board) run(ctx context.Context, op, path string, plan planFunc) (Outcome, error) {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	b.mu.RLock()
	closed := b.closed
	view := b.view
	b.mu.RUnlock()
	if closed {
		return Outcome{Op: op}, ErrClosed
	}

	now := b.now()
	batch, err := plan(view, now)
	if err != nil {
		return Outcome{Op: op}, err
	}

	guess := batch.ApplyTo(view, now)
	pending := Pending(op, guess, batch.Len())
	b.mu.Lock()
	b.view = guess
	b.last = pending
	b.mu.Unlock()

	serverNow, err := b.repo.Commit(ctx, batch)
	if err != nil {
		b.mu.Lock()
		b.view = b.confirmed
		failed := Failed(op, cloneAll(b.confirmed), err)
		b.last = failed
		b.mu.Unlock()

		kind := pubsub.KindOperationFailed
		if errors.Is(err, repository.ErrPermissionDenied) {
			kind = pubsub.KindPermissionDenied
		}
		b.report(kind, path, op, batch, err)
		logger.Warn("Board: Batch rejected, reverted to snapshot",
			zap.String("op", op),
			zap.String("actor", b.actor.ID),
			zap.Int("writes", batch.Len()),
			zap.Error(err))
		return failed, fmt.Errorf("board: %s: %w", op, err)
	}

	server := batch.ApplyTo(view, serverNow)
	confirmed := Confirmed(op, cloneAll(server), batch.Len())
	b.mu.Lock()
	b.confirmed = server
	b.view = server
	b.last = confirmed
	b.mu.Unlock()

	b.changes.Publish(pubsub.Change{TaskIDs: batch.TaskIDs(), At: serverNow})
	logger.Debug("Board: Batch committed",
		zap.String("op", op),
		zap.String("actor", b.actor.ID),
		zap.Int("writes", batch.Len()))
	return confirmed, nil
}

func (b *Board) report(kind pubsub.Kind, path, op string, payload any, err error) {
	b.errs.Publish(pubsub.ErrorEvent{
		Kind:      kind,
		Path:      path,
		Operation: op,
		Payload:   payload,
		Err:       err.Error(),
		ActorID:   b.actor.ID,
		At:        b.now(),
	})
}

func cloneAll(tasks []*task.Task) []*task.Task {
	out := make([]*task.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
