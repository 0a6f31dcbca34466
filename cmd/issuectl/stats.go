package main

import (
	"context"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sumire/issuedesk/internal/domain"
	"github.com/sumire/issuedesk/internal/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count issues by status, priority and category",
	Long: `stats counts the issues on your board. Admins count every issue; other
users count the issues they filed or are assigned to.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statsRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func statsRun(ctx context.Context) error {
	src, err := newBoardSource(ctx)
	if err != nil {
		return err
	}
	issues, err := src.Baseline(ctx)
	if err != nil {
		return err
	}
	ui.Stats(len(issues), countIssues(issues))
	return nil
}

// countIssues tallies issues in board order. Known values are always listed,
// even at zero; values the client does not know follow in name order.
func countIssues(issues []domain.Issue) []output.Breakdown {
	byStatus := map[string]int{}
	byPriority := map[string]int{}
	byCategory := map[string]int{}
	for _, issue := range issues {
		byStatus[string(issue.Status)]++
		byPriority[string(issue.Priority)]++
		byCategory[string(issue.Category)]++
	}

	return []output.Breakdown{
		{Name: "Status", Tallies: tally(byStatus, labels(domain.IssueStatuses))},
		{Name: "Priority", Tallies: tally(byPriority, labels(domain.Priorities))},
		{Name: "Category", Tallies: tally(byCategory, labels(domain.Categories))},
	}
}

func labels[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func tally(counts map[string]int, known []string) []output.Tally {
	out := make([]output.Tally, 0, len(counts)+len(known))
	listed := make(map[string]bool, len(known))
	for _, label := range known {
		listed[label] = true
		out = append(out, output.Tally{Label: label, Count: counts[label]})
	}

	var extra []string
	for label := range counts {
		if !listed[label] {
			extra = append(extra, label)
		}
	}
	sort.Strings(extra)
	for _, label := range extra {
		out = append(out, output.Tally{Label: label, Count: counts[label]})
	}
	return out
}
