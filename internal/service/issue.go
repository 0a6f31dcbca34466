package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sumire/issuedesk/internal/domain"
	"github.com/sumire/issuedesk/internal/policy"
	"github.com/sumire/issuedesk/internal/validation"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 100
)

// CreateIssueInput holds the fields a user supplies when filing an issue.
type CreateIssueInput struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Category    domain.Category `json:"category" validate:"required,oneof=Bug Infrastructure Academic Other"`
	Priority    domain.Priority `json:"priority" validate:"required,oneof=Low Medium High"`
}

// IssueService applies authorized mutations to issues and fans the outcome
// out to notifications and the real-time channel.
type IssueService struct {
	issues    IssueStore
	users     UserStore
	notifier  *Notifier
	publisher Publisher
	validate  *validation.Validator
	locks     stripedLocks
	logger    *slog.Logger
}

// NewIssueService creates a new IssueService. A nil publisher disables real-time events.
func NewIssueService(issues IssueStore, users UserStore, notifier *Notifier, publisher Publisher, logger *slog.Logger) *IssueService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IssueService{
		issues:    issues,
		users:     users,
		notifier:  notifier,
		publisher: publisher,
		validate:  validation.New(),
		logger:    logger,
	}
}

// Create files a new open, unassigned issue on behalf of actor.
func (s *IssueService) Create(ctx context.Context, actor domain.User, in CreateIssueInput) (*domain.Issue, error) {
	if err := policy.Require(actor, domain.Issue{}, policy.ActionCreateIssue); err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	issue, err := s.issues.Create(ctx, domain.Issue{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Priority:    in.Priority,
		Status:      domain.IssueStatusOpen,
		CreatedBy:   actor.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}

	s.logger.Info("issue created", "issue_id", issue.ID, "created_by", actor.ID)
	return issue, nil
}

// Get returns one issue with its creator populated.
func (s *IssueService) Get(ctx context.Context, actor domain.User, id string) (*domain.Issue, error) {
	issue, err := s.issues.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Require(actor, *issue, policy.ActionViewIssue); err != nil {
		return nil, err
	}
	return issue, nil
}

// ListMine returns the issues filed by actor, newest first.
func (s *IssueService) ListMine(ctx context.Context, actor domain.User) ([]domain.Issue, error) {
	if err := policy.Require(actor, domain.Issue{}, policy.ActionViewIssue); err != nil {
		return nil, err
	}
	issues, err := s.issues.ListByCreator(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if issues == nil {
		issues = []domain.Issue{}
	}
	return issues, nil
}

// ListAssigned returns the issues assigned to actor, newest first.
func (s *IssueService) ListAssigned(ctx context.Context, actor domain.User) ([]domain.Issue, error) {
	if err := policy.Require(actor, domain.Issue{}, policy.ActionViewIssue); err != nil {
		return nil, err
	}
	issues, err := s.issues.ListByAssignee(ctx, actor.ID, actor.DisplayName)
	if err != nil {
		return nil, err
	}
	if issues == nil {
		issues = []domain.Issue{}
	}
	return issues, nil
}

// ListAll returns one page of every issue. Out-of-range page and limit values
// fall back to the defaults.
func (s *IssueService) ListAll(ctx context.Context, actor domain.User, page, limit int) (*domain.IssuePage, error) {
	if err := policy.Require(actor, domain.Issue{}, policy.ActionViewAllIssues); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	issues, total, err := s.issues.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	if issues == nil {
		issues = []domain.Issue{}
	}
	return &domain.IssuePage{
		Issues: issues,
		Page:   page,
		Pages:  (total + limit - 1) / limit,
		Total:  total,
	}, nil
}

// UpdateStatus moves an issue to another board column. expectedVersion 0 means
// "the version just loaded". The creator is notified unless they made the change.
func (s *IssueService) UpdateStatus(ctx context.Context, actor domain.User, id string, status domain.IssueStatus, expectedVersion int64) (*domain.Issue, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	issue, err := s.issues.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Require(actor, *issue, policy.ActionUpdateStatus); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, &domain.ValidationError{Field: "status", Message: "must be one of: Open, In Progress, Resolved"}
	}

	updated, err := s.issues.UpdateStatus(ctx, id, status, versionOr(expectedVersion, issue.Version))
	if err != nil {
		return nil, fmt.Errorf("update status of issue %s: %w", id, err)
	}

	s.notifier.Notify(ctx, actor, updated, Delivery{
		To:   Recipient{UserID: updated.CreatedBy},
		Text: fmt.Sprintf("Status updated to %s: %s", status, updated.Title),
	})
	s.publishIssue(actor, updated)

	s.logger.Info("issue status updated", "issue_id", id, "status", status, "actor", actor.ID, "version", updated.Version)
	return updated, nil
}

// Assign sets the assignee by display name. An empty name clears the
// assignment. Names that match exactly one user are linked to that user, who
// is notified; other names are stored as given.
func (s *IssueService) Assign(ctx context.Context, actor domain.User, id, assignedTo string, expectedVersion int64) (*domain.Issue, error) {
	if err := policy.Require(actor, domain.Issue{}, policy.ActionAssignIssue); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	issue, err := s.issues.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(assignedTo)
	var assigneeID string
	if name != "" {
		assigneeID, err = resolveUserName(ctx, s.users, name)
		if err != nil {
			// The name is stored unlinked; the assignment itself still goes through.
			s.logger.Warn("failed to resolve assignee", "issue_id", id, "name", name, "error", err)
			assigneeID = ""
		} else if assigneeID == "" {
			s.logger.Debug("assignee name not resolved", "issue_id", id, "name", name)
		}
	}

	updated, err := s.issues.UpdateAssignment(ctx, id, name, assigneeID, versionOr(expectedVersion, issue.Version))
	if err != nil {
		return nil, fmt.Errorf("assign issue %s: %w", id, err)
	}

	var notified []string
	if assigneeID != "" {
		notified = s.notifier.Notify(ctx, actor, updated, Delivery{
			To:   Recipient{UserID: assigneeID},
			Text: "You have been assigned to issue: " + updated.Title,
		})
	}
	s.publishIssue(actor, updated)
	if len(notified) > 0 {
		s.publisher.Publish(domain.Event{
			Type:     domain.EventNotification,
			Data:     map[string]any{"user_id": assigneeID},
			Audience: domain.Audience{UserIDs: notified},
		})
	}

	s.logger.Info("issue assigned", "issue_id", id, "assigned_to", name, "assignee_id", assigneeID, "actor", actor.ID)
	return updated, nil
}

// AddComment appends a comment to an issue and notifies its creator and assignee.
func (s *IssueService) AddComment(ctx context.Context, actor domain.User, id, text string) (*domain.Issue, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &domain.ValidationError{Field: "text", Message: "is required"}
	}

	unlock := s.locks.lock(id)
	defer unlock()

	issue, err := s.issues.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Require(actor, *issue, policy.ActionAddComment); err != nil {
		return nil, err
	}

	updated, err := s.issues.AppendComment(ctx, id, domain.Comment{
		UserID: actor.ID,
		User:   actor.DisplayName,
		Text:   text,
	})
	if err != nil {
		return nil, fmt.Errorf("comment on issue %s: %w", id, err)
	}

	deliveries := []Delivery{{
		To:   Recipient{UserID: updated.CreatedBy},
		Text: "New comment on your issue: " + updated.Title,
	}}
	// An unlinked assignee is looked up by name now; the user may exist by then.
	switch {
	case updated.AssigneeID != "":
		deliveries = append(deliveries, Delivery{
			To:   Recipient{UserID: updated.AssigneeID},
			Text: "New comment on assigned issue: " + updated.Title,
		})
	case updated.AssignedTo != "":
		deliveries = append(deliveries, Delivery{
			To:   Recipient{Name: updated.AssignedTo},
			Text: "New comment on assigned issue: " + updated.Title,
		})
	}
	notified := s.notifier.Notify(ctx, actor, updated, deliveries...)

	s.publishIssue(actor, updated)
	s.publisher.Publish(domain.Event{
		Type:     domain.EventNotification,
		Data:     map[string]any{"type": "comment", "issue_id": updated.ID},
		Audience: domain.Audience{UserIDs: notified},
	})

	s.logger.Info("comment added", "issue_id", id, "actor", actor.ID, "version", updated.Version)
	return updated, nil
}

// publishIssue announces a committed issue to admins, its creator, its
// assignee and the actor whose change produced it.
func (s *IssueService) publishIssue(actor domain.User, issue *domain.Issue) {
	audience := domain.Audience{Admins: true, UserIDs: []string{issue.CreatedBy, actor.ID}}
	if issue.AssigneeID != "" {
		audience.UserIDs = append(audience.UserIDs, issue.AssigneeID)
	}
	s.publisher.Publish(domain.Event{
		Type:     domain.EventIssueUpdated,
		Issue:    issue,
		Audience: audience,
	})
}

func versionOr(expected, loaded int64) int64 {
	if expected > 0 {
		return expected
	}
	return loaded
}
