package service

import (
	"context"
	"log/slog"

	"github.com/sumire/issuedesk/internal/domain"
)

// Recipient identifies who should be notified, either by user id or by display name.
type Recipient struct {
	UserID string
	Name   string
}

// Delivery is one notification text addressed to one recipient.
type Delivery struct {
	To   Recipient
	Text string
}

// Notifier turns issue mutations into stored notifications.
type Notifier struct {
	notifications NotificationStore
	users         UserStore
	logger        *slog.Logger
}

// NewNotifier creates a new Notifier.
func NewNotifier(notifications NotificationStore, users UserStore, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{notifications: notifications, users: users, logger: logger}
}

// Notify stores one notification per distinct recipient other than the actor
// and returns the ids of the users that were notified. Unresolvable recipients
// and store failures are logged and skipped; they never fail the mutation.
func (n *Notifier) Notify(ctx context.Context, actor domain.User, issue *domain.Issue, deliveries ...Delivery) []string {
	var notified []string
	seen := make(map[string]struct{}, len(deliveries))

	for _, d := range deliveries {
		userID := n.resolve(ctx, d.To)
		if userID == "" || userID == actor.ID {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		issueID := issue.ID
		_, err := n.notifications.Create(ctx, domain.Notification{
			RecipientID: userID,
			IssueID:     &issueID,
			Kind:        domain.NotificationInfo,
			Text:        d.Text,
		})
		if err != nil {
			n.logger.Warn("failed to create notification", "recipient", userID, "issue_id", issue.ID, "error", err)
			continue
		}
		notified = append(notified, userID)
	}
	return notified
}

func (n *Notifier) resolve(ctx context.Context, to Recipient) string {
	if to.UserID != "" {
		return to.UserID
	}
	if to.Name == "" {
		return ""
	}

	id, err := resolveUserName(ctx, n.users, to.Name)
	if err != nil {
		n.logger.Warn("failed to resolve notification recipient", "name", to.Name, "error", err)
		return ""
	}
	if id == "" {
		n.logger.Debug("notification recipient not resolved", "name", to.Name)
	}
	return id
}

// resolveUserName returns the id of the single user with the given display
// name, or "" when there is no match or the name is ambiguous.
func resolveUserName(ctx context.Context, users UserStore, name string) (string, error) {
	matches, err := users.FindByDisplayName(ctx, name)
	if err != nil {
		return "", err
	}
	if len(matches) != 1 {
		return "", nil
	}
	return matches[0].ID, nil
}
