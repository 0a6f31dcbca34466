// Package policy decides whether an actor may perform an action on an issue.
package policy

import "github.com/sumire/issuedesk/internal/domain"

type Action string

const (
	ActionCreateIssue   Action = "createIssue"
	ActionUpdateStatus  Action = "updateStatus"
	ActionAssignIssue   Action = "assignIssue"
	ActionAddComment    Action = "addComment"
	ActionViewIssue     Action = "viewIssue"
	ActionViewAllIssues Action = "viewAllIssues"
	ActionManageUsers   Action = "manageUsers"
)

type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

// CanTransition is a pure decision over actor, issue and action. The issue may
// be the zero value for actions that are not issue-scoped.
func CanTransition(actor domain.User, issue domain.Issue, action Action) Decision {
	if actor.ID == "" {
		return Deny
	}

	switch action {
	case ActionCreateIssue, ActionAddComment, ActionViewIssue:
		return Allow
	case ActionUpdateStatus:
		if actor.IsAdmin() || IsAssignee(actor, issue) {
			return Allow
		}
		return Deny
	case ActionAssignIssue, ActionViewAllIssues, ActionManageUsers:
		return Decision(actor.IsAdmin())
	default:
		return Deny
	}
}

// IsAssignee reports whether actor is the current assignee of issue. A resolved
// assignee id is authoritative; unresolved assignments fall back to comparing
// display names.
func IsAssignee(actor domain.User, issue domain.Issue) bool {
	if issue.AssigneeID != "" {
		return issue.AssigneeID == actor.ID
	}
	return issue.AssignedTo != "" && issue.AssignedTo == actor.DisplayName
}

// Require returns domain.ErrForbidden when the decision is Deny.
func Require(actor domain.User, issue domain.Issue, action Action) error {
	if CanTransition(actor, issue, action) == Deny {
		return domain.ErrForbidden
	}
	return nil
}
