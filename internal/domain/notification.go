package domain

import "time"

// NotificationKind represents the severity of a notification.
type NotificationKind string

const (
	NotificationInfo    NotificationKind = "info"
	NotificationSuccess NotificationKind = "success"
	NotificationWarning NotificationKind = "warning"
	NotificationError   NotificationKind = "error"
)

// Notification represents an in-app notification for a user.
// Only IsRead ever changes after creation, and only from false to true.
type Notification struct {
	ID          string           `json:"id" db:"id"`
	RecipientID string           `json:"recipient" db:"recipient_id"`
	IssueID     *string          `json:"issue_id,omitempty" db:"issue_id"`
	Kind        NotificationKind `json:"kind" db:"kind"`
	Text        string           `json:"text" db:"body"`
	IsRead      bool             `json:"is_read" db:"is_read"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}
