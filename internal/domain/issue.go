package domain

import "time"

// IssueStatus is the board column an issue sits in.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "Open"
	IssueStatusInProgress IssueStatus = "In Progress"
	IssueStatusResolved   IssueStatus = "Resolved"
)

// IssueStatuses lists every status in board column order.
var IssueStatuses = []IssueStatus{IssueStatusOpen, IssueStatusInProgress, IssueStatusResolved}

// Valid reports whether s is one of the fixed statuses.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusOpen, IssueStatusInProgress, IssueStatusResolved:
		return true
	}
	return false
}

// Category classifies what an issue is about.
type Category string

const (
	CategoryBug            Category = "Bug"
	CategoryInfrastructure Category = "Infrastructure"
	CategoryAcademic       Category = "Academic"
	CategoryOther          Category = "Other"
)

var Categories = []Category{CategoryBug, CategoryInfrastructure, CategoryAcademic, CategoryOther}

// Priority is the urgency of an issue.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Priorities lists priorities from most to least urgent.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Comment is a single entry in an issue's discussion thread.
type Comment struct {
	ID        string    `json:"id" db:"id"`
	IssueID   string    `json:"-" db:"issue_id"`
	User      string    `json:"user" db:"author_name"`
	UserID    string    `json:"user_id" db:"author_id"`
	Text      string    `json:"text" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Issue represents a ticket filed by a user.
//
// AssignedTo is the display name shown to clients. AssigneeID is set only when
// that name resolved to exactly one user at assignment time; when present it is
// authoritative and AssignedTo follows the user's current display name.
type Issue struct {
	ID          string      `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	Category    Category    `json:"category" db:"category"`
	Priority    Priority    `json:"priority" db:"priority"`
	Status      IssueStatus `json:"status" db:"status"`
	CreatedBy   string      `json:"created_by" db:"created_by"`
	AssignedTo  string      `json:"assigned_to" db:"assigned_to"`
	AssigneeID  string      `json:"assignee_id,omitempty" db:"assignee_id"`
	Version     int64       `json:"version" db:"version"`
	Comments    []Comment   `json:"comments" db:"-"`
	Creator     *UserRef    `json:"creator,omitempty" db:"-"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// WithStatus returns a copy of the issue with the given status.
// The version is left untouched; only the store advances it.
func (i Issue) WithStatus(status IssueStatus) Issue {
	i.Comments = append([]Comment(nil), i.Comments...)
	i.Status = status
	return i
}

// IssuePage is one page of the admin issue listing.
type IssuePage struct {
	Issues []Issue `json:"issues"`
	Page   int     `json:"page"`
	Pages  int     `json:"pages"`
	Total  int     `json:"total"`
}
