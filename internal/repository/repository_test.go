package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/sumire/issuedesk/internal/domain"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, db))

	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, users *UserRepository, name string, role domain.Role) *domain.User {
	t.Helper()
	u, err := users.Upsert(context.Background(), domain.User{
		Provider:    domain.AuthProviderLocal,
		ProviderID:  name,
		Email:       name + "@example.com",
		DisplayName: name,
		Role:        role,
	})
	require.NoError(t, err)
	return u
}

func createIssue(t *testing.T, issues *IssueRepository, creator *domain.User, title string) *domain.Issue {
	t.Helper()
	issue, err := issues.Create(context.Background(), domain.Issue{
		Title:       title,
		Description: "details",
		Category:    domain.CategoryInfrastructure,
		Priority:    domain.PriorityHigh,
		CreatedBy:   creator.ID,
	})
	require.NoError(t, err)
	return issue
}
