package gormstore

import (
	"strings"
	"time"

	"taskwise/internal/models/department"
	"taskwise/internal/models/task"
	"taskwise/internal/models/user"
)

type taskRow struct {
	ID         string              `gorm:"primaryKey;size:64"`
	Name       string              `gorm:"not null"`
	Department string              `gorm:"size:64;index"`
	Comments   string              `gorm:"type:text"`
	Status     string              `gorm:"size:32;not null;index:idx_tasks_status_ord"`
	UserID     string              `gorm:"size:64;index"`
	Ord        int                 `gorm:"index:idx_tasks_status_ord"`
	CreatedAt  time.Time           `gorm:"precision:6"`
	DoneAt     *time.Time          `gorm:"precision:6"`
	IsReviewed bool                `gorm:"not null;default:false"`
	History    []task.HistoryEntry `gorm:"serializer:json;type:text"`
}

func (taskRow) TableName() string { return "tasks" }

func toTaskRow(t *task.Task) *taskRow {
	history := t.History
	if history == nil {
		history = []task.HistoryEntry{}
	}
	return &taskRow{
		ID:         t.ID,
		Name:       t.Name,
		Department: t.Department,
		Comments:   t.Comments,
		Status:     string(t.Status),
		UserID:     t.UserID,
		Ord:        t.Order,
		CreatedAt:  t.CreatedAt,
		DoneAt:     t.DoneAt,
		IsReviewed: t.IsReviewed,
		History:    history,
	}
}

func (r *taskRow) toTask() *task.Task {
	return &task.Task{
		ID:         r.ID,
		Name:       r.Name,
		Department: r.Department,
		Comments:   r.Comments,
		Status:     task.Status(r.Status),
		UserID:     r.UserID,
		Order:      r.Ord,
		CreatedAt:  r.CreatedAt,
		DoneAt:     r.DoneAt,
		IsReviewed: r.IsReviewed,
		History:    r.History,
	}
}

type userRow struct {
	ID          string `gorm:"primaryKey;size:128"`
	Email       string `gorm:"size:255;index"`
	DisplayName string `gorm:"size:255"`
	PhotoURL    string `gorm:"size:1024"`
	Role        string `gorm:"size:16;not null;default:user"`
	Status      string `gorm:"size:16;not null;default:pending"`
	Department  string `gorm:"size:64;index"`
}

func (userRow) TableName() string { return "users" }

func toUserRow(u *user.AppUser) *userRow {
	return &userRow{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		Role:        string(u.Role),
		Status:      string(u.Status),
		Department:  u.Department,
	}
}

func (r *userRow) toUser() *user.AppUser {
	return &user.AppUser{
		ID:          r.ID,
		Email:       r.Email,
		DisplayName: r.DisplayName,
		PhotoURL:    r.PhotoURL,
		Role:        user.Role(r.Role),
		Status:      user.AccountStatus(r.Status),
		Department:  r.Department,
	}
}

// departmentRow keeps a lower-cased copy of the name so uniqueness is
// case-insensitive on every dialect.
type departmentRow struct {
	ID      string `gorm:"primaryKey;size:64"`
	Name    string `gorm:"size:128;not null"`
	NameKey string `gorm:"size:128;not null;uniqueIndex"`
	Color   string `gorm:"size:16"`
}

func (departmentRow) TableName() string { return "departments" }

func toDepartmentRow(d *department.Department) *departmentRow {
	return &departmentRow{
		ID:      d.ID,
		Name:    d.Name,
		NameKey: strings.ToLower(strings.TrimSpace(d.Name)),
		Color:   d.Color,
	}
}

func (r *departmentRow) toDepartment() *department.Department {
	return &department.Department{ID: r.ID, Name: r.Name, Color: r.Color}
}

// AllModels lists every table the store migrates.
func AllModels() []interface{} {
	return []interface{}{
		&taskRow{},
		&userRow{},
		&departmentRow{},
	}
}
