package service

import (
	"context"
	"errors"
	"strings"

	"taskwise/internal/logger"
	"taskwise/internal/models/user"
	repo "taskwise/internal/repository"

	"go.uber.org/zap"
)

// UserPatch carries the administrative changes to a user. Nil fields are
// left as they are.
type UserPatch struct {
	Role       *user.Role
	Status     *user.AccountStatus
	Department *string
}

func (p UserPatch) Empty() bool {
	return p.Role == nil && p.Status == nil && p.Department == nil
}

// Me returns the stored profile of the caller.
func (s *Service) Me(ctx context.Context, id user.Identity) (*user.AppUser, error) {
	if id.ID == "" {
		return nil, NewBusinessError(CodeUnauthenticated, "missing identity")
	}
	u, err := s.store.GetUser(ctx, id.ID)
	if err != nil {
		return nil, toBusinessError("user", id.ID, err)
	}
	return u, nil
}

// Register stores the profile on first sign-in. New accounts are pending
// unless the email is a bootstrap system administrator. An existing profile
// is returned unchanged apart from refreshed display fields.
func (s *Service) Register(ctx context.Context, id user.Identity) (*user.AppUser, error) {
	if id.ID == "" {
		return nil, NewBusinessError(CodeUnauthenticated, "missing identity")
	}

	existing, err := s.store.GetUser(ctx, id.ID)
	switch {
	case err == nil:
		if id.DisplayName != "" {
			existing.DisplayName = id.DisplayName
		}
		if id.PhotoURL != "" {
			existing.PhotoURL = id.PhotoURL
		}
		if err := s.store.SaveUser(ctx, existing); err != nil {
			return nil, toBusinessError("user", id.ID, err)
		}
		return existing, nil
	case !errors.Is(err, repo.ErrNotFound):
		return nil, toBusinessError("user", id.ID, err)
	}

	u := &user.AppUser{
		ID:          id.ID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
		Role:        user.RoleUser,
		Status:      user.StatusPending,
	}
	if s.bootstrap[strings.ToLower(strings.TrimSpace(id.Email))] {
		u.Role = user.RoleSysAdmin
		u.Status = user.StatusApproved
	}
	if err := s.store.SaveUser(ctx, u); err != nil {
		return nil, toBusinessError("user", id.ID, err)
	}

	logger.Info("Service: User registered",
		zap.String("user_id", u.ID),
		zap.String("role", string(u.Role)),
		zap.String("status", string(u.Status)))
	return u, nil
}

// Authenticate resolves the caller to an approved profile.
func (s *Service) Authenticate(ctx context.Context, id user.Identity) (*user.AppUser, error) {
	u, err := s.Me(ctx, id)
	if err != nil {
		var be *BusinessError
		if errors.As(err, &be) && be.Code == CodeNotFound {
			return nil, NewBusinessError(CodeUnauthenticated, "profile not registered")
		}
		return nil, err
	}
	if !u.Approved() {
		return nil, NewBusinessError(CodePermissionDenied, "account is "+string(u.Status),
			ToDetail("status", u.Status))
	}
	return u, nil
}

// ListUsers returns the users an administrator manages: everyone for a
// system administrator, the own department for a department administrator.
func (s *Service) ListUsers(ctx context.Context, actor *user.AppUser) ([]*user.AppUser, error) {
	department := ""
	switch actor.Role {
	case user.RoleSysAdmin:
	case user.RoleDepAdmin:
		department = actor.Department
	default:
		return nil, NewPermissionDenied("only administrators can list users")
	}
	users, err := s.store.ListUsers(ctx, department)
	if err != nil {
		return nil, toBusinessError("user", "", err)
	}
	return users, nil
}

func canManage(actor, target *user.AppUser) bool {
	switch actor.Role {
	case user.RoleSysAdmin:
		return true
	case user.RoleDepAdmin:
		return actor.Department != "" && actor.Department == target.Department && target.Role != user.RoleSysAdmin
	default:
		return false
	}
}

func (s *Service) UpdateUser(ctx context.Context, actor *user.AppUser, id string, patch UserPatch) (*user.AppUser, error) {
	if patch.Empty() {
		return nil, NewValidationError("body", "no fields to update")
	}
	if id == actor.ID && (patch.Role != nil || patch.Status != nil) {
		return nil, NewPermissionDenied("administrators cannot change their own role or status")
	}

	target, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, toBusinessError("user", id, err)
	}
	if !canManage(actor, target) {
		return nil, NewPermissionDenied("you cannot manage this user")
	}

	if patch.Role != nil {
		if !patch.Role.Valid() {
			return nil, NewValidationError("role", "unknown role "+string(*patch.Role))
		}
		if *patch.Role == user.RoleSysAdmin && actor.Role != user.RoleSysAdmin {
			return nil, NewPermissionDenied("only system administrators can grant the sysadmin role")
		}
		target.Role = *patch.Role
	}
	if patch.Department != nil {
		if actor.Role != user.RoleSysAdmin {
			return nil, NewPermissionDenied("only system administrators can change departments")
		}
		if *patch.Department != "" {
			if _, err := s.departmentByName(ctx, *patch.Department); err != nil {
				return nil, err
			}
		}
		target.Department = *patch.Department
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, NewValidationError("status", "unknown status "+string(*patch.Status))
		}
		target.Status = *patch.Status
	}
	if target.Status == user.StatusApproved && target.Department == "" && target.Role != user.RoleSysAdmin {
		return nil, NewValidationError("department", "assign a department before approving the user")
	}

	if err := s.store.SaveUser(ctx, target); err != nil {
		return nil, toBusinessError("user", id, err)
	}
	logger.Info("Service: User updated",
		zap.String("user_id", id),
		zap.String("actor", actor.ID),
		zap.String("role", string(target.Role)),
		zap.String("status", string(target.Status)))
	return target, nil
}
