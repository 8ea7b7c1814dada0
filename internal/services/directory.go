package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/garuda-portal/apiserver/internal/audit"
	"github.com/garuda-portal/apiserver/internal/store"
	"github.com/garuda-portal/apiserver/types"
)

// DirectoryService implements the administrative user-directory
// operations. Role checks beyond the route-level gate live here so the
// rules hold no matter which transport calls in.
type DirectoryService struct {
	store UserStore
	audit *audit.Recorder
}

func NewDirectoryService(userStore UserStore, recorder *audit.Recorder) *DirectoryService {
	return &DirectoryService{store: userStore, audit: recorder}
}

// List returns a page of users plus the total count.
func (s *DirectoryService) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	users, total, err := s.store.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	for i := range users {
		users[i] = sanitize(users[i])
	}
	return users, total, nil
}

// Get returns a single user by ID.
func (s *DirectoryService) Get(ctx context.Context, id int64) (types.User, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return sanitize(user), nil
}

// SetRole changes a user's role. Granting SuperAdmin, or touching an
// existing SuperAdmin, requires the actor to be SuperAdmin.
func (s *DirectoryService) SetRole(ctx context.Context, actor Identity, id int64, role types.Role) (types.User, error) {
	if !role.Valid() {
		return types.User{}, &ValidationError{Field: "role", Reason: "is not a known role"}
	}
	if role == types.RoleSuperAdmin && actor.Role != types.RoleSuperAdmin {
		return types.User{}, ErrForbidden
	}

	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	if user.Role == types.RoleSuperAdmin && actor.Role != types.RoleSuperAdmin {
		return types.User{}, ErrForbidden
	}
	if user.Role == role {
		return sanitize(user), nil
	}

	previous := user.Role
	user.Role = role
	updated, err := s.store.Update(ctx, user)
	if err != nil {
		return types.User{}, err
	}

	s.audit.Record(ctx, types.AuditRoleChanged, actor.UserID, id, map[string]string{
		"from": string(previous),
		"to":   string(role),
	})
	return sanitize(updated), nil
}

// SetStatus activates or deactivates an account. Actors cannot
// deactivate themselves.
func (s *DirectoryService) SetStatus(ctx context.Context, actor Identity, id int64, active bool) (types.User, error) {
	if actor.UserID == id && !active {
		return types.User{}, ErrForbidden
	}

	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	if user.Role == types.RoleSuperAdmin && actor.Role != types.RoleSuperAdmin {
		return types.User{}, ErrForbidden
	}
	if user.IsActive == active {
		return sanitize(user), nil
	}

	user.IsActive = active
	updated, err := s.store.Update(ctx, user)
	if err != nil {
		return types.User{}, err
	}

	s.audit.Record(ctx, types.AuditStatusChanged, actor.UserID, id, map[string]string{
		"is_active": strconv.FormatBool(active),
	})
	return sanitize(updated), nil
}
