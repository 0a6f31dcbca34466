package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/issuedesk/internal/domain"
)

func TestUserUpsert_KeepsRole(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	u := createUser(t, users, "Bob", domain.RoleTechnician)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, domain.RoleTechnician, u.Role)

	again, err := users.Upsert(ctx, domain.User{
		Provider:    domain.AuthProviderLocal,
		ProviderID:  "Bob",
		Email:       "bob@new.example.com",
		DisplayName: "Bobby",
	})
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "Bobby", again.DisplayName)
	assert.Equal(t, domain.RoleTechnician, again.Role)
}

func TestUserFindByDisplayName(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	createUser(t, users, "Alice", "")

	found, err := users.FindByDisplayName(ctx, "Alice")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Alice", found[0].DisplayName)

	none, err := users.FindByDisplayName(ctx, "Nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUserEnsureAdmin(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	admin, created, err := users.EnsureAdmin(ctx, "admin@example.com", "Admin User")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	again, created, err := users.EnsureAdmin(ctx, "admin@example.com", "Admin User")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, admin.ID, again.ID)

	plain := createUser(t, users, "carol", domain.RoleUser)
	promoted, created, err := users.EnsureAdmin(ctx, plain.Email, "ignored")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, domain.RoleAdmin, promoted.Role)
}

func TestUserUpdateRole_NotFound(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)

	err := users.UpdateRole(context.Background(), "missing", domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
