package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/issuedesk/internal/domain"
)

const notificationColumns = `id, recipient_id, issue_id, kind, body, is_read, created_at`

// NotificationRepository handles the per-recipient notification inbox.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores a new unread notification.
func (r *NotificationRepository) Create(ctx context.Context, n domain.Notification) (*domain.Notification, error) {
	n.ID = newID()
	n.IsRead = false
	n.CreatedAt = now()
	if n.Kind == "" {
		n.Kind = domain.NotificationInfo
	}

	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO notifications (`+notificationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		n.ID, n.RecipientID, n.IssueID, n.Kind, n.Text, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return &n, nil
}

// FindByID retrieves a notification by its ID.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*domain.Notification, error) {
	var n domain.Notification
	err := r.db.GetContext(ctx, &n,
		r.db.Rebind(`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find notification by id %s: %w", id, err)
	}
	return &n, nil
}

// ListByRecipient returns the most recent notifications of a user, newest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error) {
	notifications := []domain.Notification{}
	err := r.db.SelectContext(ctx, &notifications,
		r.db.Rebind(`SELECT `+notificationColumns+` FROM notifications
		 WHERE recipient_id = ? ORDER BY id DESC LIMIT ?`), recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead sets is_read on one notification. Already-read rows are left as they are.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE notifications SET is_read = ? WHERE id = ? AND is_read = ?`), true, id, false)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of a recipient and returns how many changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE notifications SET is_read = ? WHERE recipient_id = ? AND is_read = ?`), true, recipientID, false)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return n, nil
}

// CountUnread returns the number of unread notifications of a recipient.
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		r.db.Rebind(`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = ?`), recipientID, false)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}
