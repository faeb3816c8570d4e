package task

import (
	"fmt"
	"time"
)

type Task struct {
	ID         string         `json:"id" db:"id"`
	Name       string         `json:"name" db:"name"`
	Department string         `json:"department" db:"department"`
	DepColor   string         `json:"depcolor,omitempty" db:"-"`
	Comments   string         `json:"comments" db:"comments"`
	Status     Status         `json:"status" db:"status"`
	UserID     string         `json:"userId" db:"user_id"`
	Order      int            `json:"order" db:"ord"`
	CreatedAt  time.Time      `json:"createdAt" db:"created_at"`
	DoneAt     *time.Time     `json:"doneAt" db:"done_at"`
	IsReviewed bool           `json:"isReviewed" db:"is_reviewed"`
	History    []HistoryEntry `json:"history" db:"history"`
}

type Status string

const StatusInProgress Status = "In Progress"
const StatusToBeReviewed Status = "To Be Reviewed"
const StatusDeprecated Status = "Deprecated"
const StatusDone Status = "Done"
const StatusArchived Status = "Archived"

// Statuses lists every status in board column order.
var Statuses = []Status{
	StatusInProgress,
	StatusToBeReviewed,
	StatusDeprecated,
	StatusDone,
	StatusArchived,
}

var columnIDs = map[Status]string{
	StatusInProgress:   "progress-tasks",
	StatusToBeReviewed: "to-be-reviewed-tasks",
	StatusDeprecated:   "deprecated-tasks",
	StatusDone:         "done-tasks",
	StatusArchived:     "archived-tasks",
}

func (s Status) Valid() bool {
	_, ok := columnIDs[s]
	return ok
}

// ColumnID is the stable identifier board clients use for the status column.
func (s Status) ColumnID() string {
	return columnIDs[s]
}

// ParseStatus accepts either a status name or its column id.
func ParseStatus(raw string) (Status, error) {
	if s := Status(raw); s.Valid() {
		return s, nil
	}
	for s, id := range columnIDs {
		if id == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

// Clone returns a deep copy; history entries are immutable values and are
// shared by copy of the slice only.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.DoneAt != nil {
		doneAt := *t.DoneAt
		c.DoneAt = &doneAt
	}
	if t.History != nil {
		c.History = make([]HistoryEntry, len(t.History))
		copy(c.History, t.History)
	}
	return &c
}

// ArchivedAt returns the time of the most recent transition into Archived.
func (t *Task) ArchivedAt() *time.Time {
	var latest *time.Time
	for i := range t.History {
		sc, ok := t.History[i].Change.(StatusChange)
		if !ok || sc.New != StatusArchived {
			continue
		}
		ts := t.History[i].Timestamp
		if latest == nil || ts.After(*latest) {
			latest = &ts
		}
	}
	return latest
}
