package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sumire/issuedesk/internal/client"
	"github.com/sumire/issuedesk/internal/domain"
)

var (
	issueTitle    string
	issueDesc     string
	issueCategory string
	issuePriority string
	issueAll      bool
	issuePage     int
	assignVersion int64
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "File and inspect issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun(cmd.Context())
	},
}

var issueCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "File a new issue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueCreateRun(cmd.Context())
	},
}

var issueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your issues, or every issue with --all (admin)",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun(cmd.Context())
	},
}

var issueShowCmd = &cobra.Command{
	Use:   "show <issue-id>",
	Short: "Show an issue and its comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}
		issue, err := api.GetIssue(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		ui.Issue(*issue)
		return nil
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment <issue-id> <text...>",
	Short: "Comment on an issue",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}
		issue, err := api.Comment(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		ui.Success("Commented on %s (%d comments)", issue.Title, len(issue.Comments))
		return nil
	},
}

var assignCmd = &cobra.Command{
	Use:   "assign <issue-id> <name...>",
	Short: "Assign an issue to a user by display name (admin)",
	Long: `assign sets the assignee of an issue. Pass --version to fail with a
conflict if the issue changed since you last looked at it.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newClient()
		if err != nil {
			return err
		}
		issue, err := api.Assign(cmd.Context(), args[0], strings.Join(args[1:], " "), assignVersion)
		if err != nil {
			return err
		}
		ui.Success("%s assigned to %s", issue.Title, issue.AssignedTo)
		return nil
	},
}

func init() {
	issueCreateCmd.Flags().StringVar(&issueTitle, "title", "", "Issue title (required)")
	issueCreateCmd.Flags().StringVar(&issueDesc, "desc", "", "Issue description (required)")
	issueCreateCmd.Flags().StringVar(&issueCategory, "category", string(domain.CategoryOther), "Category: Bug, Infrastructure, Academic, Other")
	issueCreateCmd.Flags().StringVar(&issuePriority, "priority", string(domain.PriorityMedium), "Priority: Low, Medium, High")
	_ = issueCreateCmd.MarkFlagRequired("title")
	_ = issueCreateCmd.MarkFlagRequired("desc")

	issueListCmd.Flags().BoolVar(&issueAll, "all", false, "List every issue (admin)")
	issueListCmd.Flags().IntVar(&issuePage, "page", 1, "Page of the --all listing")

	assignCmd.Flags().Int64Var(&assignVersion, "version", 0, "Expected issue version (0 accepts any)")

	issueCmd.AddCommand(issueCreateCmd, issueListCmd, issueShowCmd)
	rootCmd.AddCommand(issueCmd, commentCmd, assignCmd)
}

func issueCreateRun(ctx context.Context) error {
	api, err := newClient()
	if err != nil {
		return err
	}

	issue, err := api.CreateIssue(ctx, client.CreateIssueRequest{
		Title:       issueTitle,
		Description: issueDesc,
		Category:    domain.Category(issueCategory),
		Priority:    domain.Priority(issuePriority),
	})
	if err != nil {
		return err
	}
	ui.Success("Filed %s (%s)", issue.Title, issue.ID)
	return nil
}

func issueListRun(ctx context.Context) error {
	api, err := newClient()
	if err != nil {
		return err
	}

	if !issueAll {
		issues, err := api.MyIssues(ctx)
		if err != nil {
			return err
		}
		if len(issues) == 0 {
			ui.Info("You have not filed any issues")
			return nil
		}
		ui.Issues(issues)
		return nil
	}

	page, err := api.ListIssues(ctx, issuePage, maxPageSize)
	if err != nil {
		return err
	}
	ui.Issues(page.Issues)
	ui.Info("Page %d of %d (%d issues)", page.Page, max(page.Pages, 1), page.Total)
	return nil
}
