package service

import (
	"context"
	"time"

	"github.com/sumire/issuedesk/internal/domain"
)

// UserStore defines the user data access interface consumed by the services.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByProviderID(ctx context.Context, provider domain.AuthProvider, providerID string) (*domain.User, error)
	FindByDisplayName(ctx context.Context, name string) ([]domain.User, error)
	Upsert(ctx context.Context, user domain.User) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) error
}

// IssueStore defines issue persistence. Writes that take an expected version
// return domain.ErrConflict when the stored issue has moved on.
type IssueStore interface {
	Create(ctx context.Context, issue domain.Issue) (*domain.Issue, error)
	FindByID(ctx context.Context, id string) (*domain.Issue, error)
	ListByCreator(ctx context.Context, userID string) ([]domain.Issue, error)
	ListByAssignee(ctx context.Context, userID, displayName string) ([]domain.Issue, error)
	List(ctx context.Context, offset, limit int) ([]domain.Issue, int, error)
	UpdateStatus(ctx context.Context, id string, status domain.IssueStatus, expectedVersion int64) (*domain.Issue, error)
	UpdateAssignment(ctx context.Context, id, assignedTo, assigneeID string, expectedVersion int64) (*domain.Issue, error)
	AppendComment(ctx context.Context, issueID string, comment domain.Comment) (*domain.Issue, error)
}

// NotificationStore defines the per-recipient inbox.
type NotificationStore interface {
	Create(ctx context.Context, n domain.Notification) (*domain.Notification, error)
	FindByID(ctx context.Context, id string) (*domain.Notification, error)
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

// SessionStore tracks refresh tokens by their token id.
// Lookup returns an empty user id when sessions are not tracked.
type SessionStore interface {
	Save(ctx context.Context, tokenID, userID string, expiresAt time.Time) error
	Lookup(ctx context.Context, tokenID string) (string, error)
	Revoke(ctx context.Context, tokenID string) error
}

// SessionDisconnector ends the live event sessions of a user.
type SessionDisconnector interface {
	Disconnect(userID string) int
}

// Publisher receives events after a mutation has been committed. Publish must not block.
type Publisher interface {
	Publish(event domain.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(domain.Event) {}
