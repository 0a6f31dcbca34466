package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/issuedesk/internal/domain"
)

const userColumns = `id, provider, provider_id, email, display_name, role, avatar_url, created_at, updated_at`

// UserRepository handles user data access operations.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID retrieves a user by their ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user by id %s: %w", id, err)
	}
	return &user, nil
}

// FindByEmail retrieves a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByProviderID retrieves a user by their OAuth provider and provider ID.
func (r *UserRepository) FindByProviderID(ctx context.Context, provider domain.AuthProvider, providerID string) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE provider = ? AND provider_id = ?`), provider, providerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user by provider %s/%s: %w", provider, providerID, err)
	}
	return &user, nil
}

// FindByDisplayName returns every user whose display name matches exactly.
// Display names are not unique, so callers decide what to do with several matches.
func (r *UserRepository) FindByDisplayName(ctx context.Context, name string) ([]domain.User, error) {
	var users []domain.User
	err := r.db.SelectContext(ctx, &users,
		r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE display_name = ? ORDER BY created_at`), name)
	if err != nil {
		return nil, fmt.Errorf("find users by display name: %w", err)
	}
	return users, nil
}

// List returns all users ordered by display name.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users ORDER BY display_name, id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Upsert creates a new user or updates an existing one based on provider + provider_id.
// The role of an existing user is never changed here.
func (r *UserRepository) Upsert(ctx context.Context, user domain.User) (*domain.User, error) {
	role := user.Role
	if role == "" {
		role = domain.RoleUser
	}
	ts := now()

	var result domain.User
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(
		`INSERT INTO users (id, provider, provider_id, email, display_name, role, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (provider, provider_id)
		 DO UPDATE SET email = EXCLUDED.email,
		               display_name = EXCLUDED.display_name,
		               avatar_url = EXCLUDED.avatar_url,
		               updated_at = EXCLUDED.updated_at
		 RETURNING `+userColumns),
		newID(), user.Provider, user.ProviderID, user.Email, user.DisplayName, role, user.AvatarURL, ts, ts,
	).StructScan(&result)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &result, nil
}

// EnsureAdmin creates a local admin with the given email, or promotes the
// existing user with that email to admin.
func (r *UserRepository) EnsureAdmin(ctx context.Context, email, displayName string) (*domain.User, bool, error) {
	existing, err := r.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != domain.RoleAdmin {
			if err := r.UpdateRole(ctx, existing.ID, domain.RoleAdmin); err != nil {
				return nil, false, err
			}
			existing.Role = domain.RoleAdmin
		}
		return existing, false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, err
	}

	created, err := r.Upsert(ctx, domain.User{
		Provider:    domain.AuthProviderLocal,
		ProviderID:  email,
		Email:       email,
		DisplayName: displayName,
		Role:        domain.RoleAdmin,
	})
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// UpdateRole changes the role of a user.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`), role, now(), id)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
