package service

import (
	"context"
	"fmt"

	"github.com/sumire/issuedesk/internal/domain"
)

// InboxLimit is the number of notifications returned by List.
const InboxLimit = 20

// NotificationService serves a user's own notification inbox.
type NotificationService struct {
	notifications NotificationStore
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(notifications NotificationStore) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// List returns the most recent notifications of the recipient, newest first.
func (s *NotificationService) List(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	return s.notifications.ListByRecipient(ctx, recipientID, InboxLimit)
}

// MarkRead marks one notification as read. Marking an already-read
// notification again is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, id string) (*domain.Notification, error) {
	n, err := s.notifications.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != recipientID {
		return nil, domain.ErrForbidden
	}
	if n.IsRead {
		return n, nil
	}

	if err := s.notifications.MarkRead(ctx, id); err != nil {
		return nil, fmt.Errorf("mark notification %s read: %w", id, err)
	}
	n.IsRead = true
	return n, nil
}

// MarkAllRead marks every notification of the recipient as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return s.notifications.MarkAllRead(ctx, recipientID)
}

// UnreadCount returns the badge count for the recipient.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	return s.notifications.CountUnread(ctx, recipientID)
}
