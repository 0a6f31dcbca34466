package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/issuedesk/internal/domain"
)

// The displayed assignee follows the linked user when the assignment resolved
// to one; otherwise the stored name is shown as entered.
const issueSelect = `SELECT i.id, i.title, i.description, i.category, i.priority, i.status, i.created_by,
	COALESCE(a.display_name, i.assigned_to) AS assigned_to,
	COALESCE(i.assignee_id, '') AS assignee_id,
	i.version, i.created_at, i.updated_at
	FROM issues i LEFT JOIN users a ON a.id = i.assignee_id`

const commentColumns = `id, issue_id, author_id, author_name, body, created_at`

// IssueRepository handles issue and comment persistence.
type IssueRepository struct {
	db *sqlx.DB
}

// NewIssueRepository creates a new IssueRepository.
func NewIssueRepository(db *sqlx.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

// Create inserts a new issue. ID, version and timestamps are assigned here.
func (r *IssueRepository) Create(ctx context.Context, issue domain.Issue) (*domain.Issue, error) {
	ts := now()
	issue.ID = newID()
	issue.Version = 1
	issue.CreatedAt = ts
	issue.UpdatedAt = ts
	if issue.Status == "" {
		issue.Status = domain.IssueStatusOpen
	}

	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO issues (id, title, description, category, priority, status, created_by, assigned_to, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		issue.ID, issue.Title, issue.Description, issue.Category, issue.Priority, issue.Status,
		issue.CreatedBy, issue.AssignedTo, issue.Version, issue.CreatedAt, issue.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert issue: %w", err)
	}

	issue.Comments = []domain.Comment{}
	return &issue, nil
}

// FindByID retrieves an issue with its comments and populated creator.
func (r *IssueRepository) FindByID(ctx context.Context, id string) (*domain.Issue, error) {
	return findIssue(ctx, r.db, id)
}

// ListByCreator returns the issues filed by a user, newest first. IDs are
// ULIDs, so id order is creation order.
func (r *IssueRepository) ListByCreator(ctx context.Context, userID string) ([]domain.Issue, error) {
	var issues []domain.Issue
	err := r.db.SelectContext(ctx, &issues,
		r.db.Rebind(issueSelect+` WHERE i.created_by = ? ORDER BY i.id DESC`), userID)
	if err != nil {
		return nil, fmt.Errorf("list issues by creator: %w", err)
	}
	if err := attachComments(ctx, r.db, issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// ListByAssignee returns the issues assigned to a user, newest first. Issues
// linked to the user by id match, as do unlinked issues whose stored name
// equals the user's display name.
func (r *IssueRepository) ListByAssignee(ctx context.Context, userID, displayName string) ([]domain.Issue, error) {
	var issues []domain.Issue
	err := r.db.SelectContext(ctx, &issues, r.db.Rebind(issueSelect+
		` WHERE i.assignee_id = ? OR (i.assignee_id IS NULL AND i.assigned_to <> '' AND i.assigned_to = ?)
		ORDER BY i.id DESC`), userID, displayName)
	if err != nil {
		return nil, fmt.Errorf("list issues by assignee: %w", err)
	}
	if err := attachComments(ctx, r.db, issues); err != nil {
		return nil, err
	}
	if err := attachCreators(ctx, r.db, issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// List returns one page of all issues, newest first, and the total count.
func (r *IssueRepository) List(ctx context.Context, offset, limit int) ([]domain.Issue, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM issues`); err != nil {
		return nil, 0, fmt.Errorf("count issues: %w", err)
	}

	var issues []domain.Issue
	err := r.db.SelectContext(ctx, &issues,
		r.db.Rebind(issueSelect+` ORDER BY i.id DESC LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list issues: %w", err)
	}
	if err := attachComments(ctx, r.db, issues); err != nil {
		return nil, 0, err
	}
	if err := attachCreators(ctx, r.db, issues); err != nil {
		return nil, 0, err
	}
	return issues, total, nil
}

// UpdateStatus sets the status of an issue if it is still at expectedVersion.
// It returns domain.ErrConflict when the issue moved on in the meantime.
func (r *IssueRepository) UpdateStatus(ctx context.Context, id string, status domain.IssueStatus, expectedVersion int64) (*domain.Issue, error) {
	return r.update(ctx, id, expectedVersion,
		`UPDATE issues SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		status, now(), id, expectedVersion)
}

// UpdateAssignment sets the assignee name and, when resolved, the assignee's user id.
func (r *IssueRepository) UpdateAssignment(ctx context.Context, id, assignedTo, assigneeID string, expectedVersion int64) (*domain.Issue, error) {
	var linked *string
	if assigneeID != "" {
		linked = &assigneeID
	}
	return r.update(ctx, id, expectedVersion,
		`UPDATE issues SET assigned_to = ?, assignee_id = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		assignedTo, linked, now(), id, expectedVersion)
}

// AppendComment adds a comment to an issue. The insert and the version bump
// share a transaction, so concurrent appends never overwrite each other.
func (r *IssueRepository) AppendComment(ctx context.Context, issueID string, comment domain.Comment) (*domain.Issue, error) {
	var updated *domain.Issue
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		ts := now()
		res, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE issues SET version = version + 1, updated_at = ? WHERE id = ?`), ts, issueID)
		if err != nil {
			return fmt.Errorf("touch issue: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("touch issue: %w", err)
		} else if n == 0 {
			return domain.ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO issue_comments (`+commentColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
			newID(), issueID, comment.UserID, comment.User, comment.Text, ts,
		); err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}

		updated, err = findIssue(ctx, tx, issueID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *IssueRepository) update(ctx context.Context, id string, expectedVersion int64, query string, args ...any) (*domain.Issue, error) {
	var updated *domain.Issue
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
		if err != nil {
			return fmt.Errorf("update issue %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update issue %s: %w", id, err)
		}
		if n == 0 {
			var current int64
			err := tx.GetContext(ctx, &current, tx.Rebind(`SELECT version FROM issues WHERE id = ?`), id)
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("read issue version: %w", err)
			}
			return fmt.Errorf("%w: issue %s is at version %d, not %d", domain.ErrConflict, id, current, expectedVersion)
		}

		updated, err = findIssue(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *IssueRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func findIssue(ctx context.Context, q sqlx.ExtContext, id string) (*domain.Issue, error) {
	var issue domain.Issue
	err := sqlx.GetContext(ctx, q, &issue, q.Rebind(issueSelect+` WHERE i.id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find issue by id %s: %w", id, err)
	}

	issues := []domain.Issue{issue}
	if err := attachComments(ctx, q, issues); err != nil {
		return nil, err
	}
	if err := attachCreators(ctx, q, issues); err != nil {
		return nil, err
	}
	return &issues[0], nil
}

// attachComments loads the comments of every issue in one query. Comment ids
// are monotonic ULIDs, so ordering by id is insertion order.
func attachComments(ctx context.Context, q sqlx.ExtContext, issues []domain.Issue) error {
	if len(issues) == 0 {
		return nil
	}

	ids := make([]string, len(issues))
	byID := make(map[string]int, len(issues))
	for i := range issues {
		ids[i] = issues[i].ID
		byID[issues[i].ID] = i
		issues[i].Comments = []domain.Comment{}
	}

	query, args, err := sqlx.In(`SELECT `+commentColumns+` FROM issue_comments WHERE issue_id IN (?) ORDER BY issue_id, id`, ids)
	if err != nil {
		return fmt.Errorf("build comments query: %w", err)
	}

	var comments []domain.Comment
	if err := sqlx.SelectContext(ctx, q, &comments, q.Rebind(query), args...); err != nil {
		return fmt.Errorf("list comments: %w", err)
	}
	for _, c := range comments {
		idx := byID[c.IssueID]
		issues[idx].Comments = append(issues[idx].Comments, c)
	}
	return nil
}

func attachCreators(ctx context.Context, q sqlx.ExtContext, issues []domain.Issue) error {
	if len(issues) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, issue := range issues {
		if _, ok := seen[issue.CreatedBy]; !ok {
			seen[issue.CreatedBy] = struct{}{}
			ids = append(ids, issue.CreatedBy)
		}
	}

	query, args, err := sqlx.In(`SELECT id, display_name, email FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("build creators query: %w", err)
	}

	var refs []domain.UserRef
	if err := sqlx.SelectContext(ctx, q, &refs, q.Rebind(query), args...); err != nil {
		return fmt.Errorf("list creators: %w", err)
	}

	byID := make(map[string]domain.UserRef, len(refs))
	for _, ref := range refs {
		byID[ref.ID] = ref
	}
	for i := range issues {
		if ref, ok := byID[issues[i].CreatedBy]; ok {
			issues[i].Creator = &ref
		}
	}
	return nil
}
