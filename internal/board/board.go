// Package board keeps a client-side Kanban board in sync with the server.
//
// Moves are applied optimistically and reverted when the server rejects them.
// Server events are merged by issue id and ordered by issue version, so a
// late or duplicated event never rolls a card back.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sumire/issuedesk/internal/domain"
	"github.com/sumire/issuedesk/internal/realtime"
)

const DefaultTimeout = 15 * time.Second

// ErrNotDragging is returned by Drop when no card is being dragged.
var ErrNotDragging = errors.New("no drag in progress")

// API is the part of the server API the board needs.
type API interface {
	// Baseline returns the issues the board shows.
	Baseline(ctx context.Context) ([]domain.Issue, error)
	UpdateStatus(ctx context.Context, id string, status domain.IssueStatus, version int64) (*domain.Issue, error)
}

// Column is one status column of the board.
type Column struct {
	Status domain.IssueStatus
	Issues []domain.Issue
}

// Option configures a Controller.
type Option func(*Controller)

// WithTimeout bounds each status update request.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// OnChange registers a callback that receives the issues after every change.
func OnChange(fn func([]domain.Issue)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// OnNotification registers a callback for notification events.
func OnNotification(fn func(realtime.Frame)) Option {
	return func(c *Controller) { c.onNotification = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// Controller holds the board state.
type Controller struct {
	api            API
	timeout        time.Duration
	onChange       func([]domain.Issue)
	onNotification func(realtime.Frame)
	logger         *slog.Logger

	mu       sync.Mutex
	issues   []domain.Issue
	dragging string
}

// New creates a Controller. Call Load or Run to populate it.
func New(api API, opts ...Option) *Controller {
	c := &Controller{
		api:     api,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load replaces the board with the server's current state.
func (c *Controller) Load(ctx context.Context) error {
	issues, err := c.api.Baseline(ctx)
	if err != nil {
		return fmt.Errorf("load board: %w", err)
	}

	c.mu.Lock()
	c.issues = append([]domain.Issue(nil), issues...)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.changed(snapshot)
	return nil
}

// Issues returns a copy of the board's issues in display order.
func (c *Controller) Issues() []domain.Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Columns groups the issues by status in board order.
func (c *Controller) Columns() []Column {
	issues := c.Issues()

	columns := make([]Column, len(domain.IssueStatuses))
	for i, status := range domain.IssueStatuses {
		columns[i] = Column{Status: status, Issues: []domain.Issue{}}
		for _, issue := range issues {
			if issue.Status == status {
				columns[i].Issues = append(columns[i].Issues, issue)
			}
		}
	}
	return columns
}

// Dragging returns the id of the card being dragged, or "".
func (c *Controller) Dragging() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragging
}

// BeginDrag starts dragging the card with the given id.
func (c *Controller) BeginDrag(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexLocked(id) < 0 {
		return fmt.Errorf("begin drag %s: %w", id, domain.ErrNotFound)
	}
	c.dragging = id
	return nil
}

// CancelDrag abandons the current drag without changing anything.
func (c *Controller) CancelDrag() {
	c.mu.Lock()
	c.dragging = ""
	c.mu.Unlock()
}

// Drop ends the drag over target, which is a status or the id of another
// card (meaning that card's column). A move to a different column is shown
// immediately and sent to the server; if the server rejects it the card goes
// back and the error is returned.
func (c *Controller) Drop(ctx context.Context, target string) error {
	c.mu.Lock()
	id := c.dragging
	c.dragging = ""
	if id == "" {
		c.mu.Unlock()
		return ErrNotDragging
	}

	status, ok := c.resolveTargetLocked(target)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: unknown drop target %q", domain.ErrInvalidInput, target)
	}

	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("drop %s: %w", id, domain.ErrNotFound)
	}
	before := c.issues[idx]
	if before.Status == status {
		c.mu.Unlock()
		return nil
	}

	// The optimistic copy keeps the old version so any server copy of the
	// move outranks it.
	c.issues[idx] = before.WithStatus(status)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.changed(snapshot)

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	updated, err := c.api.UpdateStatus(reqCtx, id, status, before.Version)
	if err != nil {
		c.revert(id, before, status)
		return fmt.Errorf("move %s to %s: %w", id, status, err)
	}

	c.merge(*updated)
	return nil
}

// revert puts a card back to its pre-drag status, unless something newer has
// replaced the optimistic copy in the meantime.
func (c *Controller) revert(id string, before domain.Issue, predicted domain.IssueStatus) {
	c.mu.Lock()
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	current := c.issues[idx]
	if current.Status != predicted || current.Version != before.Version {
		c.mu.Unlock()
		return
	}
	c.issues[idx] = current.WithStatus(before.Status)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.changed(snapshot)
}

// Apply merges one event frame into the board.
func (c *Controller) Apply(ctx context.Context, frame realtime.Frame) error {
	switch frame.Type {
	case string(domain.EventIssueUpdated):
		if frame.Issue == nil {
			return fmt.Errorf("%w: issueUpdated without issue", domain.ErrInvalidInput)
		}
		c.merge(*frame.Issue)
	case string(domain.EventNotification):
		if c.onNotification != nil {
			c.onNotification(frame)
		}
	case realtime.FrameHello, realtime.FrameResync:
		return c.Load(ctx)
	case realtime.FrameHeartbeat:
	default:
		c.logger.Debug("ignoring unknown frame", "type", frame.Type)
	}
	return nil
}

// Run applies frames until the channel closes or ctx ends. Every hello or
// resync frame reloads the board from the server.
func (c *Controller) Run(ctx context.Context, frames <-chan realtime.Frame) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			if err := c.Apply(ctx, frame); err != nil {
				c.logger.Warn("failed to apply board event", "type", frame.Type, "error", err)
			}
		}
	}
}

// merge replaces the local copy of issue by id, or prepends it when the board
// does not have it yet. Copies older than the local one are ignored.
func (c *Controller) merge(issue domain.Issue) {
	c.mu.Lock()
	idx := c.indexLocked(issue.ID)
	switch {
	case idx < 0:
		c.issues = append([]domain.Issue{issue}, c.issues...)
	case issue.Version <= c.issues[idx].Version:
		c.mu.Unlock()
		return
	default:
		c.issues[idx] = issue
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.changed(snapshot)
}

func (c *Controller) resolveTargetLocked(target string) (domain.IssueStatus, bool) {
	if status := domain.IssueStatus(target); status.Valid() {
		return status, true
	}
	if idx := c.indexLocked(target); idx >= 0 {
		return c.issues[idx].Status, true
	}
	return "", false
}

func (c *Controller) indexLocked(id string) int {
	for i := range c.issues {
		if c.issues[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) snapshotLocked() []domain.Issue {
	return append([]domain.Issue(nil), c.issues...)
}

func (c *Controller) changed(snapshot []domain.Issue) {
	if c.onChange != nil {
		c.onChange(snapshot)
	}
}
