package service

import (
	"context"
	"fmt"

	"github.com/sumire/issuedesk/internal/domain"
	"github.com/sumire/issuedesk/internal/policy"
)

// UserService exposes the user directory to admins.
type UserService struct {
	users    UserStore
	sessions SessionDisconnector
}

// NewUserService creates a new UserService. sessions may be nil.
func NewUserService(users UserStore, sessions SessionDisconnector) *UserService {
	return &UserService{users: users, sessions: sessions}
}

// List returns every user.
func (s *UserService) List(ctx context.Context, actor domain.User) ([]domain.User, error) {
	if err := policy.Require(actor, domain.Issue{}, policy.ActionManageUsers); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// UpdateRole changes the role of a user and returns the updated user. The
// user's live event sessions are closed so they reconnect with the new role.
func (s *UserService) UpdateRole(ctx context.Context, actor domain.User, id string, role domain.Role) (*domain.User, error) {
	if err := policy.Require(actor, domain.Issue{}, policy.ActionManageUsers); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, &domain.ValidationError{Field: "role", Message: "must be one of: user technician admin"}
	}
	if id == actor.ID && role != domain.RoleAdmin {
		return nil, &domain.ValidationError{Field: "role", Message: "admins cannot demote themselves"}
	}

	if err := s.users.UpdateRole(ctx, id, role); err != nil {
		return nil, fmt.Errorf("update role of user %s: %w", id, err)
	}
	if s.sessions != nil {
		s.sessions.Disconnect(id)
	}
	return s.users.FindByID(ctx, id)
}
