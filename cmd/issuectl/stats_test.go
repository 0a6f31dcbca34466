package main

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/issuedesk/internal/domain"
	"github.com/sumire/issuedesk/internal/output"
)

func TestCountIssues(t *testing.T) {
	issues := []domain.Issue{
		{Status: domain.IssueStatusOpen, Priority: domain.PriorityHigh, Category: domain.CategoryBug},
		{Status: domain.IssueStatusOpen, Priority: domain.PriorityLow, Category: domain.CategoryBug},
		{Status: domain.IssueStatusResolved, Priority: domain.PriorityHigh, Category: "Facilities"},
	}

	got := countIssues(issues)
	require.Len(t, got, 3)

	assert.Equal(t, output.Breakdown{Name: "Status", Tallies: []output.Tally{
		{Label: "Open", Count: 2},
		{Label: "In Progress", Count: 0},
		{Label: "Resolved", Count: 1},
	}}, got[0])
	assert.Equal(t, output.Breakdown{Name: "Priority", Tallies: []output.Tally{
		{Label: "High", Count: 2},
		{Label: "Medium", Count: 0},
		{Label: "Low", Count: 1},
	}}, got[1])
	assert.Equal(t, output.Breakdown{Name: "Category", Tallies: []output.Tally{
		{Label: "Bug", Count: 2},
		{Label: "Infrastructure", Count: 0},
		{Label: "Academic", Count: 0},
		{Label: "Other", Count: 0},
		{Label: "Facilities", Count: 1},
	}}, got[2])
}

func TestCountIssues_Empty(t *testing.T) {
	for _, b := range countIssues(nil) {
		for _, tally := range b.Tallies {
			assert.Zero(t, tally.Count, "%s/%s", b.Name, tally.Label)
		}
	}
}

func TestStats_CountsAssignedIssues(t *testing.T) {
	desk := &fakeDesk{issue: domain.Issue{
		ID:       "01HZZZZZZZAAAAAAAA",
		Title:    "Printer jam",
		Status:   domain.IssueStatusInProgress,
		Priority: domain.PriorityHigh,
		Category: domain.CategoryInfrastructure,
		Version:  1,
	}}
	srv := httptest.NewServer(desk)
	defer srv.Close()
	out := useServer(t, srv.URL)

	require.NoError(t, statsRun(context.Background()))
	assert.Contains(t, out.String(), "Issues: 1")
	assert.Contains(t, out.String(), "100%")
}
