package domain

// EventType names a real-time event pushed to connected clients.
type EventType string

const (
	EventIssueUpdated EventType = "issueUpdated"
	EventNotification EventType = "notification"
)

// Audience is the set of users entitled to see an event.
type Audience struct {
	UserIDs []string
	Admins  bool
}

// Includes reports whether a user with the given id and role is in the audience.
func (a Audience) Includes(userID string, role Role) bool {
	if a.Admins && role == RoleAdmin {
		return true
	}
	for _, id := range a.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Event is a mutation outcome published to the real-time channel.
type Event struct {
	Type     EventType      `json:"type"`
	Issue    *Issue         `json:"issue,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Audience Audience       `json:"-"`
}
