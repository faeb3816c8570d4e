package task

import "strings"

// Edit is a set of proposed field values. A nil field is not proposed.
type Edit struct {
	Name       *string
	Department *string
	UserID     *string
	Comments   *string
	Status     *Status
}

type EditOption func(*Edit)

func NewEdit(options ...EditOption) Edit {
	var e Edit
	for _, opt := range options {
		if opt != nil {
			opt(&e)
		}
	}
	return e
}

func WithName(name string) EditOption {
	return func(e *Edit) {
		trimmed := strings.TrimSpace(name)
		e.Name = &trimmed
	}
}

func WithDepartment(department string) EditOption {
	return func(e *Edit) {
		e.Department = &department
	}
}

func WithAssignee(userID string) EditOption {
	return func(e *Edit) {
		e.UserID = &userID
	}
}

func WithComments(comments string) EditOption {
	return func(e *Edit) {
		e.Comments = &comments
	}
}

func WithStatus(status Status) EditOption {
	if status == "" {
		return nil
	}
	return func(e *Edit) {
		e.Status = &status
	}
}

// Empty reports whether no field is proposed.
func (e Edit) Empty() bool {
	return e.Name == nil && e.Department == nil && e.UserID == nil && e.Comments == nil && e.Status == nil
}
