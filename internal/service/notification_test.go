package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/issuedesk/internal/domain"
)

func TestNotificationService_MarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	issue := env.createIssue(t, env.alice)

	_, err := env.issueSvc.UpdateStatus(ctx, env.admin, issue.ID, domain.IssueStatusInProgress, 0)
	require.NoError(t, err)
	inbox := env.inboxOf(t, env.alice)
	require.Len(t, inbox, 1)
	id := inbox[0].ID

	_, err = env.inbox.MarkRead(ctx, env.bob.ID, id)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.inbox.MarkRead(ctx, env.alice.ID, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	first, err := env.inbox.MarkRead(ctx, env.alice.ID, id)
	require.NoError(t, err)
	assert.True(t, first.IsRead)

	second, err := env.inbox.MarkRead(ctx, env.alice.ID, id)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Text, second.Text)
	assert.True(t, second.IsRead)

	count, err := env.inbox.UnreadCount(ctx, env.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	issue := env.createIssue(t, env.alice)

	for _, status := range []domain.IssueStatus{domain.IssueStatusInProgress, domain.IssueStatusResolved, domain.IssueStatusOpen} {
		_, err := env.issueSvc.UpdateStatus(ctx, env.admin, issue.ID, status, 0)
		require.NoError(t, err)
	}

	count, err := env.inbox.UnreadCount(ctx, env.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	updated, err := env.inbox.MarkAllRead(ctx, env.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	updated, err = env.inbox.MarkAllRead(ctx, env.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated)
}

func TestNotifier_SkipsActorAndDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	issue := env.createIssue(t, env.alice)
	notifier := NewNotifier(env.notifications, env.users, nil)

	notified := notifier.Notify(ctx, env.admin, issue,
		Delivery{To: Recipient{UserID: env.alice.ID}, Text: "first"},
		Delivery{To: Recipient{Name: "Alice"}, Text: "second"},
		Delivery{To: Recipient{UserID: env.admin.ID}, Text: "self"},
		Delivery{To: Recipient{Name: "Ghost"}, Text: "nobody"},
		Delivery{To: Recipient{}, Text: "empty"},
	)
	assert.Equal(t, []string{env.alice.ID}, notified)

	inbox := env.inboxOf(t, env.alice)
	require.Len(t, inbox, 1)
	assert.Equal(t, "first", inbox[0].Text)
	assert.Equal(t, domain.NotificationInfo, inbox[0].Kind)
	assert.Empty(t, env.inboxOf(t, env.admin))
}
