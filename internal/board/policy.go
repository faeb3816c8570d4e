package board

import (
	"slices"

	"taskwise/internal/models/task"
	"taskwise/internal/models/user"
	"taskwise/internal/repository"
)

// AllowedTransitions returns the statuses the role may choose for a task
// currently in status. For a task being created pass isNew.
func AllowedTransitions(role user.Role, current task.Status, isNew bool) []task.Status {
	if isNew {
		return []task.Status{task.StatusInProgress}
	}

	if role.IsAdmin() {
		switch current {
		case task.StatusToBeReviewed:
			return []task.Status{task.StatusInProgress, task.StatusDone, task.StatusDeprecated}
		case task.StatusArchived:
			// leaving Archived goes through Reopen
			return []task.Status{task.StatusArchived}
		default:
			out := make([]task.Status, 0, len(task.Statuses)-1)
			for _, s := range task.Statuses {
				if s != task.StatusArchived {
					out = append(out, s)
				}
			}
			return out
		}
	}

	if current == task.StatusInProgress {
		return []task.Status{task.StatusInProgress, task.StatusToBeReviewed}
	}
	return []task.Status{current}
}

// CanTransition reports whether role may move a task from current to dest.
// Staying in the current status is always allowed.
func CanTransition(role user.Role, current, dest task.Status) bool {
	if current == dest {
		return true
	}
	return slices.Contains(AllowedTransitions(role, current, false), dest)
}

// CanEdit reports whether actor may modify t at all.
func CanEdit(actor *user.AppUser, t *task.Task) bool {
	if actor == nil || t == nil || !actor.Approved() {
		return false
	}
	switch actor.Role {
	case user.RoleSysAdmin:
		return true
	case user.RoleDepAdmin:
		return actor.Department != "" && t.Department == actor.Department
	default:
		return t.UserID == actor.ID
	}
}

// ScopeFor shapes the task query for a viewer: system admins see every
// task, department admins their department and users their own tasks.
func ScopeFor(actor *user.AppUser) repository.Scope {
	if actor == nil {
		return repository.Scope{}
	}
	switch actor.Role {
	case user.RoleSysAdmin:
		return repository.Scope{All: true}
	case user.RoleDepAdmin:
		return repository.Scope{Department: actor.Department}
	default:
		return repository.Scope{UserID: actor.ID}
	}
}
