package dto

import (
	"time"

	"taskwise/internal/board"
	"taskwise/internal/models/task"
	"taskwise/internal/service"
)

type CreateTaskRequest struct {
	Name       string `json:"name"`
	Department string `json:"department"`
	Comments   string `json:"comments"`
	UserID     string `json:"userId"`
}

type UpdateTaskRequest struct {
	Name       *string `json:"name,omitempty"`
	Department *string `json:"department,omitempty"`
	UserID     *string `json:"userId,omitempty"`
	Comments   *string `json:"comments,omitempty"`
	Status     *string `json:"status,omitempty"`
}

// MoveTaskRequest names the destination column by status or column id.
type MoveTaskRequest struct {
	Status string `json:"status"`
	Index  *int   `json:"index"`
}

type SummarizeRequest struct {
	Text string `json:"text"`
}

type DepartmentRequest struct {
	Name  string `json:"name"`
	Color string `json:"depcolor"`
}

type UpdateUserRequest struct {
	Role       *string `json:"role,omitempty"`
	Status     *string `json:"status,omitempty"`
	Department *string `json:"department,omitempty"`
}

type TaskResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Department string     `json:"department"`
	DepColor   string     `json:"depcolor,omitempty"`
	Comments   string     `json:"comments"`
	Status     string     `json:"status"`
	UserID     string     `json:"userId"`
	Order      int        `json:"order"`
	CreatedAt  time.Time  `json:"createdAt"`
	DoneAt     *time.Time `json:"doneAt"`
	IsReviewed bool       `json:"isReviewed"`
}

type ColumnResponse struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Tasks  []TaskResponse `json:"tasks"`
}

type ArchivedTaskResponse struct {
	TaskResponse
	ArchivedAt *time.Time `json:"archivedAt"`
}

func FromTask(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:         t.ID,
		Name:       t.Name,
		Department: t.Department,
		DepColor:   t.DepColor,
		Comments:   t.Comments,
		Status:     string(t.Status),
		UserID:     t.UserID,
		Order:      t.Order,
		CreatedAt:  t.CreatedAt,
		DoneAt:     t.DoneAt,
		IsReviewed: t.IsReviewed,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}

// FromColumns lists the columns in board order; empty columns are kept.
func FromColumns(cols board.Columns) []ColumnResponse {
	result := make([]ColumnResponse, 0, len(task.Statuses))
	for _, s := range task.Statuses {
		result = append(result, ColumnResponse{
			ID:     s.ColumnID(),
			Status: string(s),
			Tasks:  FromTaskList(cols[s]),
		})
	}
	return result
}

func FromArchived(tasks []service.ArchivedTask) []ArchivedTaskResponse {
	result := make([]ArchivedTaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = ArchivedTaskResponse{TaskResponse: FromTask(t.Task), ArchivedAt: t.ArchivedAt}
	}
	return result
}
