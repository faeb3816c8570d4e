package board

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"taskwise/internal/models/task"
	"taskwise/internal/models/user"
	"taskwise/internal/repository"
)

// Draft holds the fields of a task being created.
type Draft struct {
	Name       string
	Department string
	Comments   string
	UserID     string
}

// renumber stages an order write for every task in col whose order differs
// from its index, skipping skipID.
func renumber(b *repository.Batch, col []*task.Task, skipID string) {
	for i, t := range col {
		if t.ID == skipID || t.Order == i {
			continue
		}
		order := i
		b.Update(t.ID).Order = &order
	}
}

func doneAtFor(from, to task.Status, hasDoneAt bool) repository.DoneAtOp {
	switch {
	case to == task.StatusDone && (from != task.StatusDone || !hasDoneAt):
		return repository.DoneAtServerNow
	case to != task.StatusDone && (from == task.StatusDone || hasDoneAt):
		return repository.DoneAtClear
	default:
		return repository.DoneAtKeep
	}
}

func statusEntry(from *task.Status, to task.Status, actorID string, at time.Time) task.HistoryEntry {
	return task.HistoryEntry{
		Change:    task.StatusChange{Old: from, New: to},
		Timestamp: at,
		ChangedBy: actorID,
	}
}

func planReorder(view []*task.Task, actor *user.AppUser, id string, dest task.Status, index int, now time.Time) (repository.Batch, error) {
	var b repository.Batch

	if !dest.Valid() {
		return b, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", dest)}
	}
	t := find(view, id)
	if t == nil {
		return b, ErrTaskNotFound
	}
	if !CanEdit(actor, t) {
		return b, ErrForbidden
	}
	if t.Status == dest && t.Order == index {
		return b, ErrNoChange
	}

	count := len(column(view, dest, ""))
	if index < 0 || index > count {
		return b, fmt.Errorf("%w: %d not in [0, %d]", ErrIndexOutOfRange, index, count)
	}

	statusChange := t.Status != dest
	if statusChange && !CanTransition(actor.Role, t.Status, dest) {
		return b, fmt.Errorf("%w: %s -> %s", ErrTransitionDenied, t.Status, dest)
	}

	others := column(view, dest, id)
	pos := min(index, len(others))
	arranged := slices.Insert(slices.Clone(others), pos, t)

	if !statusChange {
		renumber(&b, arranged, "")
		if b.Empty() {
			return b, ErrNoChange
		}
		return b, nil
	}

	renumber(&b, column(view, t.Status, id), "")
	renumber(&b, arranged, id)

	from := t.Status
	status := dest
	order := pos
	u := b.Update(id)
	u.Status = &status
	u.Order = &order
	u.DoneAt = doneAtFor(from, dest, t.DoneAt != nil)
	u.History = []task.HistoryEntry{statusEntry(&from, dest, actor.ID, now)}
	return b, nil
}

// changedText reports the proposed value when it differs from cur. An
// absent proposal is never a change; empty and absent compare equal.
func changedText(cur string, proposed *string) (string, bool) {
	if proposed == nil || *proposed == cur {
		return "", false
	}
	return *proposed, true
}

func planEdit(view []*task.Task, actor *user.AppUser, id string, edit task.Edit, now time.Time) (repository.Batch, error) {
	var b repository.Batch

	t := find(view, id)
	if t == nil {
		return b, ErrTaskNotFound
	}
	if !CanEdit(actor, t) {
		return b, ErrForbidden
	}

	var (
		history []task.HistoryEntry
		staged  repository.TaskUpdate
	)
	record := func(c task.Change) {
		history = append(history, task.HistoryEntry{Change: c, Timestamp: now, ChangedBy: actor.ID})
	}

	if v, ok := changedText(t.Name, edit.Name); ok {
		if strings.TrimSpace(v) == "" {
			return b, &ValidationError{Field: "name", Reason: "task name is required"}
		}
		staged.Name = &v
		record(task.NameChange{Old: t.Name, New: v})
	}
	if v, ok := changedText(t.Department, edit.Department); ok {
		staged.Department = &v
		record(task.DepartmentChange{Old: t.Department, New: v})
	}
	if v, ok := changedText(t.UserID, edit.UserID); ok {
		staged.UserID = &v
		record(task.AssigneeChange{Old: t.UserID, New: v})
	}
	if v, ok := changedText(t.Comments, edit.Comments); ok {
		staged.Comments = &v
		record(task.CommentsChange{Old: t.Comments, New: v})
	}

	if edit.Status != nil && *edit.Status != t.Status {
		dest := *edit.Status
		if !dest.Valid() {
			return b, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", dest)}
		}
		if !CanTransition(actor.Role, t.Status, dest) {
			return b, fmt.Errorf("%w: %s -> %s", ErrTransitionDenied, t.Status, dest)
		}

		renumber(&b, column(view, t.Status, id), "")
		order := len(column(view, dest, id))
		staged.Status = &dest
		staged.Order = &order
		staged.DoneAt = doneAtFor(t.Status, dest, t.DoneAt != nil)

		switch {
		case dest == task.StatusInProgress && actor.IsAdmin():
			reviewed := true
			staged.IsReviewed = &reviewed
		case dest != task.StatusInProgress:
			reviewed := false
			staged.IsReviewed = &reviewed
		}

		from := t.Status
		record(task.StatusChange{Old: &from, New: dest})
	}

	if len(history) == 0 {
		return b, ErrNoChange
	}

	staged.ID = id
	staged.History = history
	*b.Update(id) = staged
	return b, nil
}

func planSweep(view []*task.Task, now time.Time, retention time.Duration) (repository.Batch, error) {
	var b repository.Batch

	cutoff := now.Add(-retention)
	var keep, stale []*task.Task
	for _, t := range column(view, task.StatusDone, "") {
		if t.DoneAt != nil && t.DoneAt.Before(cutoff) {
			stale = append(stale, t)
		} else {
			keep = append(keep, t)
		}
	}
	if len(stale) == 0 {
		return b, ErrNoChange
	}

	renumber(&b, keep, "")
	base := len(column(view, task.StatusArchived, ""))
	for i, t := range stale {
		from := task.StatusDone
		status := task.StatusArchived
		order := base + i
		u := b.Update(t.ID)
		u.Status = &status
		u.Order = &order
		u.DoneAt = repository.DoneAtClear
		u.History = []task.HistoryEntry{statusEntry(&from, status, task.SystemActor, now)}
	}
	return b, nil
}

func planReopen(view []*task.Task, actor *user.AppUser, id string, now time.Time) (repository.Batch, error) {
	var b repository.Batch

	t := find(view, id)
	if t == nil {
		return b, ErrTaskNotFound
	}
	if !actor.IsAdmin() || !CanEdit(actor, t) {
		return b, ErrForbidden
	}
	if t.Status != task.StatusArchived {
		return b, fmt.Errorf("%w: reopen needs %q, task is %q", ErrInvalidState, task.StatusArchived, t.Status)
	}

	renumber(&b, column(view, task.StatusArchived, id), "")

	from := t.Status
	status := task.StatusInProgress
	order := len(column(view, task.StatusInProgress, ""))
	reviewed := true
	u := b.Update(id)
	u.Status = &status
	u.Order = &order
	u.DoneAt = repository.DoneAtClear
	u.IsReviewed = &reviewed
	u.History = []task.HistoryEntry{statusEntry(&from, status, actor.ID, now)}
	return b, nil
}

func planCreate(view []*task.Task, actor *user.AppUser, draft Draft, id string, now time.Time) (repository.Batch, error) {
	var b repository.Batch

	if actor == nil || !actor.Approved() {
		return b, ErrForbidden
	}
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return b, &ValidationError{Field: "name", Reason: "task name is required"}
	}
	if draft.Department == "" {
		return b, &ValidationError{Field: "department", Reason: "a department is required for a new task"}
	}
	if actor.Role != user.RoleSysAdmin && actor.Department != "" && draft.Department != actor.Department {
		return b, ErrForbidden
	}

	owner := actor.ID
	if actor.IsAdmin() && draft.UserID != "" {
		owner = draft.UserID
	}

	t := &task.Task{
		ID:         id,
		Name:       name,
		Department: draft.Department,
		Comments:   draft.Comments,
		Status:     task.StatusInProgress,
		UserID:     owner,
		Order:      len(column(view, task.StatusInProgress, "")),
		CreatedAt:  now,
		History:    []task.HistoryEntry{statusEntry(nil, task.StatusInProgress, actor.ID, now)},
	}
	if owner != actor.ID {
		t.History = append(t.History, task.HistoryEntry{
			Change:    task.AssigneeChange{Old: actor.ID, New: owner},
			Timestamp: now,
			ChangedBy: actor.ID,
		})
	}

	b.Creates = []*task.Task{t}
	return b, nil
}

func planDelete(view []*task.Task, actor *user.AppUser, id string) (repository.Batch, error) {
	var b repository.Batch

	t := find(view, id)
	if t == nil {
		return b, ErrTaskNotFound
	}
	if !CanEdit(actor, t) {
		return b, ErrForbidden
	}
	b.Deletes = []string{id}
	renumber(&b, column(view, t.Status, id), "")
	return b, nil
}

func planDeleteAll(view []*task.Task, actor *user.AppUser) (repository.Batch, error) {
	var b repository.Batch

	if actor == nil || actor.Role != user.RoleSysAdmin || !actor.Approved() {
		return b, ErrForbidden
	}
	for _, t := range view {
		b.Deletes = append(b.Deletes, t.ID)
	}
	if b.Empty() {
		return b, ErrNoChange
	}
	return b, nil
}
