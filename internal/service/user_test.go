package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/issuedesk/internal/domain"
)

func TestUserService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewUserService(env.users, nil)

	_, err := svc.List(ctx, env.bob)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	users, err := svc.List(ctx, env.admin)
	require.NoError(t, err)
	assert.Len(t, users, 3)

	_, err = svc.UpdateRole(ctx, env.bob, env.alice.ID, domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.UpdateRole(ctx, env.admin, env.alice.ID, "owner")
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = svc.UpdateRole(ctx, env.admin, env.admin.ID, domain.RoleUser)
	assert.ErrorAs(t, err, &ve)

	_, err = svc.UpdateRole(ctx, env.admin, "missing", domain.RoleTechnician)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	promoted, err := svc.UpdateRole(ctx, env.admin, env.alice.ID, domain.RoleTechnician)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTechnician, promoted.Role)
}

type recordingDisconnector struct {
	users []string
}

func (d *recordingDisconnector) Disconnect(userID string) int {
	d.users = append(d.users, userID)
	return 1
}

func TestUserService_RoleChangeEndsSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sessions := &recordingDisconnector{}
	svc := NewUserService(env.users, sessions)

	_, err := svc.UpdateRole(ctx, env.admin, "missing", domain.RoleUser)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, sessions.users)

	demoted, err := svc.UpdateRole(ctx, env.admin, env.bob.ID, domain.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, demoted.Role)
	assert.Equal(t, []string{env.bob.ID}, sessions.users)
}
