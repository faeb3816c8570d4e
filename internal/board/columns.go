package board

import (
	"fmt"
	"sort"

	"taskwise/internal/models/task"
)

// Columns is the per-status ordering of a set of tasks.
type Columns map[task.Status][]*task.Task

// BuildColumns groups tasks by status, each column sorted by order.
func BuildColumns(tasks []*task.Task) Columns {
	cols := make(Columns, len(task.Statuses))
	for _, s := range task.Statuses {
		cols[s] = column(tasks, s, "")
	}
	return cols
}

// column returns the tasks in status sorted by order, skipping excludeID.
// Ties, which only appear after concurrent writers raced, are broken by
// creation time and id so every client derives the same arrangement.
func column(tasks []*task.Task, status task.Status, excludeID string) []*task.Task {
	var col []*task.Task
	for _, t := range tasks {
		if t.Status == status && t.ID != excludeID {
			col = append(col, t)
		}
	}
	sort.SliceStable(col, func(i, j int) bool {
		if col[i].Order != col[j].Order {
			return col[i].Order < col[j].Order
		}
		if !col[i].CreatedAt.Equal(col[j].CreatedAt) {
			return col[i].CreatedAt.Before(col[j].CreatedAt)
		}
		return col[i].ID < col[j].ID
	})
	return col
}

// CheckContiguous verifies that every column's orders are exactly 0..n-1.
func CheckContiguous(tasks []*task.Task) error {
	for status, col := range BuildColumns(tasks) {
		for i, t := range col {
			if t.Order != i {
				return fmt.Errorf("column %q: task %s has order %d at position %d", status, t.ID, t.Order, i)
			}
		}
	}
	return nil
}

func find(tasks []*task.Task, id string) *task.Task {
	for _, t := range tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}
