package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sumire/issuedesk/internal/domain"
	"github.com/sumire/issuedesk/internal/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) ofType(t domain.EventType) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	users         *repository.UserRepository
	issues        *repository.IssueRepository
	notifications *repository.NotificationRepository
	publisher     *recordingPublisher
	issueSvc      *IssueService
	inbox         *NotificationService

	alice domain.User // plain user, files issues
	bob   domain.User // technician
	admin domain.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := repository.Open(ctx, repository.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(ctx, db))
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		users:         repository.NewUserRepository(db),
		issues:        repository.NewIssueRepository(db),
		notifications: repository.NewNotificationRepository(db),
		publisher:     &recordingPublisher{},
	}
	notifier := NewNotifier(env.notifications, env.users, nil)
	env.issueSvc = NewIssueService(env.issues, env.users, notifier, env.publisher, nil)
	env.inbox = NewNotificationService(env.notifications)

	env.alice = env.addUser(t, "Alice", domain.RoleUser)
	env.bob = env.addUser(t, "Bob", domain.RoleTechnician)
	env.admin = env.addUser(t, "Admin", domain.RoleAdmin)
	return env
}

func (e *testEnv) addUser(t *testing.T, name string, role domain.Role) domain.User {
	t.Helper()
	u, err := e.users.Upsert(context.Background(), domain.User{
		Provider:    domain.AuthProviderLocal,
		ProviderID:  name,
		Email:       name + "@example.com",
		DisplayName: name,
		Role:        role,
	})
	require.NoError(t, err)
	return *u
}

func (e *testEnv) createIssue(t *testing.T, actor domain.User) *domain.Issue {
	t.Helper()
	issue, err := e.issueSvc.Create(context.Background(), actor, CreateIssueInput{
		Title:       "Printer jam",
		Description: "Room 4 printer is stuck",
		Category:    domain.CategoryInfrastructure,
		Priority:    domain.PriorityHigh,
	})
	require.NoError(t, err)
	return issue
}

func (e *testEnv) inboxOf(t *testing.T, user domain.User) []domain.Notification {
	t.Helper()
	list, err := e.inbox.List(context.Background(), user.ID)
	require.NoError(t, err)
	return list
}
