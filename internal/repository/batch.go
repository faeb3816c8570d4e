package repository

import (
	"time"

	"taskwise/internal/models/task"
)

type DoneAtOp int

const (
	DoneAtKeep DoneAtOp = iota
	DoneAtServerNow
	DoneAtClear
)

// TaskUpdate is a partial write to one task. Nil fields are left untouched
// and History is appended to the stored history.
type TaskUpdate struct {
	ID         string
	Name       *string
	Department *string
	UserID     *string
	Comments   *string
	Status     *task.Status
	Order      *int
	DoneAt     DoneAtOp
	IsReviewed *bool
	History    []task.HistoryEntry
}

// Apply writes the update onto t, stamping serverNow where the update asks
// for a server timestamp.
func (u *TaskUpdate) Apply(t *task.Task, serverNow time.Time) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Department != nil {
		t.Department = *u.Department
	}
	if u.UserID != nil {
		t.UserID = *u.UserID
	}
	if u.Comments != nil {
		t.Comments = *u.Comments
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Order != nil {
		t.Order = *u.Order
	}
	switch u.DoneAt {
	case DoneAtServerNow:
		stamp := serverNow
		t.DoneAt = &stamp
	case DoneAtClear:
		t.DoneAt = nil
	}
	if u.IsReviewed != nil {
		t.IsReviewed = *u.IsReviewed
	}
	if len(u.History) > 0 {
		history := make([]task.HistoryEntry, 0, len(t.History)+len(u.History))
		history = append(history, t.History...)
		t.History = append(history, u.History...)
	}
}

// Batch is an atomic set of task writes.
type Batch struct {
	Creates []*task.Task
	Updates []*TaskUpdate
	Deletes []string
}

// Update returns the pending update for id, adding one if needed, so that
// several planning steps touching the same task produce a single write.
func (b *Batch) Update(id string) *TaskUpdate {
	for _, u := range b.Updates {
		if u.ID == id {
			return u
		}
	}
	u := &TaskUpdate{ID: id}
	b.Updates = append(b.Updates, u)
	return u
}

func (b *Batch) Len() int {
	return len(b.Creates) + len(b.Updates) + len(b.Deletes)
}

func (b *Batch) Empty() bool {
	return b.Len() == 0
}

// TaskIDs lists every task the batch writes.
func (b *Batch) TaskIDs() []string {
	ids := make([]string, 0, b.Len())
	for _, t := range b.Creates {
		ids = append(ids, t.ID)
	}
	for _, u := range b.Updates {
		ids = append(ids, u.ID)
	}
	return append(ids, b.Deletes...)
}

// ApplyTo returns copies of tasks with the batch applied. The input is not
// modified.
func (b *Batch) ApplyTo(tasks []*task.Task, serverNow time.Time) []*task.Task {
	deleted := make(map[string]bool, len(b.Deletes))
	for _, id := range b.Deletes {
		deleted[id] = true
	}
	updates := make(map[string]*TaskUpdate, len(b.Updates))
	for _, u := range b.Updates {
		updates[u.ID] = u
	}

	out := make([]*task.Task, 0, len(tasks)+len(b.Creates))
	for _, t := range tasks {
		if deleted[t.ID] {
			continue
		}
		c := t.Clone()
		if u, ok := updates[t.ID]; ok {
			u.Apply(c, serverNow)
		}
		out = append(out, c)
	}
	for _, t := range b.Creates {
		c := t.Clone()
		if c.Status == task.StatusDone && c.DoneAt == nil {
			stamp := serverNow
			c.DoneAt = &stamp
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = serverNow
		}
		out = append(out, c)
	}
	return out
}
