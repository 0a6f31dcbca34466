package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sumire/issuedesk/internal/board"
	"github.com/sumire/issuedesk/internal/client"
	"github.com/sumire/issuedesk/internal/domain"
	"github.com/sumire/issuedesk/internal/realtime"
)

const (
	maxPageSize = 100
	maxBackoff  = 30 * time.Second
)

var boardWatch bool

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the issue board",
	Long: `board shows issues in Open, In Progress and Resolved columns. Admins see
every issue; other users see the issues they filed or are assigned to.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return boardRun(cmd.Context())
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <issue-id> <status|issue-id>",
	Short: "Move an issue to another column",
	Long: `move drops an issue on a column, given as a status (open, in-progress,
resolved) or as another issue whose column it should join. Ids may be
shortened to their last characters as shown on the board.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return moveRun(cmd.Context(), args[0], args[1])
	},
}

func init() {
	boardCmd.Flags().BoolVarP(&boardWatch, "watch", "w", false, "Keep the board live until interrupted")
	rootCmd.AddCommand(boardCmd, moveCmd)
}

// boardSource loads the board from the listing the user is allowed to see.
type boardSource struct {
	*client.Client
	admin bool
}

func (s boardSource) Baseline(ctx context.Context) ([]domain.Issue, error) {
	if !s.admin {
		return s.ownAndAssigned(ctx)
	}

	var all []domain.Issue
	for page := 1; ; page++ {
		p, err := s.ListIssues(ctx, page, maxPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Issues...)
		if page >= p.Pages {
			return all, nil
		}
	}
}

// ownAndAssigned merges the user's filed and assigned issues, newest first.
func (s boardSource) ownAndAssigned(ctx context.Context) ([]domain.Issue, error) {
	var mine, assigned []domain.Issue
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		mine, err = s.MyIssues(gctx)
		return err
	})
	g.Go(func() (err error) {
		assigned, err = s.AssignedIssues(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(mine)+len(assigned))
	merged := make([]domain.Issue, 0, len(mine)+len(assigned))
	for _, issue := range append(mine, assigned...) {
		if seen[issue.ID] {
			continue
		}
		seen[issue.ID] = true
		merged = append(merged, issue)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ID > merged[j].ID })
	return merged, nil
}

func newBoardSource(ctx context.Context) (boardSource, error) {
	api, err := newClient()
	if err != nil {
		return boardSource{}, err
	}
	me, err := api.Me(ctx)
	if err != nil {
		return boardSource{}, fmt.Errorf("fetch current user: %w", err)
	}
	return boardSource{Client: api, admin: me.IsAdmin()}, nil
}

func boardRun(ctx context.Context) error {
	src, err := newBoardSource(ctx)
	if err != nil {
		return err
	}

	if !boardWatch {
		ctrl := board.New(src)
		if err := ctrl.Load(ctx); err != nil {
			return err
		}
		ui.Board(ctrl.Columns())
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	badge := make(chan struct{}, 1)
	var ctrl *board.Controller
	ctrl = board.New(src,
		board.OnChange(func([]domain.Issue) {
			fmt.Fprint(ui.Out, "\033[H\033[2J")
			ui.Board(ctrl.Columns())
		}),
		board.OnNotification(func(f realtime.Frame) {
			ui.Info("%s", describeNotification(f))
			select {
			case badge <- struct{}{}:
			default:
			}
		}),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The first frame of every connection is a hello, which loads the board.
		return ctrl.Run(gctx, src.Events(gctx, maxBackoff))
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-badge:
				n, err := src.UnreadCount(gctx)
				if err != nil {
					ui.Warning("unread count: %v", err)
					continue
				}
				ui.Info("%d unread notifications", n)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func describeNotification(f realtime.Frame) string {
	if id, ok := f.Data["issue_id"].(string); ok {
		return "New comment on issue " + id
	}
	return "You have a new notification"
}

func moveRun(ctx context.Context, issueRef, target string) error {
	src, err := newBoardSource(ctx)
	if err != nil {
		return err
	}

	ctrl := board.New(src)
	if err := ctrl.Load(ctx); err != nil {
		return err
	}
	issues := ctrl.Issues()

	id, err := matchID(issues, issueRef)
	if err != nil {
		return err
	}
	if status, ok := parseStatus(target); ok {
		target = string(status)
	} else if target, err = matchID(issues, target); err != nil {
		return err
	}

	if err := ctrl.BeginDrag(id); err != nil {
		return err
	}
	if err := ctrl.Drop(ctx, target); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("%w; run board to see the latest state", err)
		}
		return err
	}

	for _, issue := range ctrl.Issues() {
		if issue.ID == id {
			ui.Success("%s is now %s", issue.Title, issue.Status)
		}
	}
	return nil
}

// parseStatus accepts a status in any case, with "-" or "_" for spaces.
func parseStatus(s string) (domain.IssueStatus, bool) {
	norm := strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, status := range domain.IssueStatuses {
		if strings.ToLower(string(status)) == norm {
			return status, true
		}
	}
	return "", false
}

// matchID resolves a full id or a unique id suffix against the board.
func matchID(issues []domain.Issue, ref string) (string, error) {
	var found []string
	for _, issue := range issues {
		if issue.ID == ref {
			return ref, nil
		}
		if strings.HasSuffix(strings.ToLower(issue.ID), strings.ToLower(ref)) {
			found = append(found, issue.ID)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("issue %s: %w", ref, domain.ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%w: %q matches %d issues", domain.ErrInvalidInput, ref, len(found))
	}
}
