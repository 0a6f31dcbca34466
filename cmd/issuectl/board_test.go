package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/issuedesk/internal/client"
	"github.com/sumire/issuedesk/internal/domain"
	"github.com/sumire/issuedesk/internal/output"
	"github.com/sumire/issuedesk/internal/realtime"
)

func writeData(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": v})
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want domain.IssueStatus
		ok   bool
	}{
		{"open", domain.IssueStatusOpen, true},
		{"In Progress", domain.IssueStatusInProgress, true},
		{"in-progress", domain.IssueStatusInProgress, true},
		{"IN_PROGRESS", domain.IssueStatusInProgress, true},
		{" resolved ", domain.IssueStatusResolved, true},
		{"closed", "", false},
		{"01HZZZZZZZAAAAAAAA", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseStatus(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchID(t *testing.T) {
	issues := []domain.Issue{
		{ID: "01HZZZZZZZAAAAAAAA"},
		{ID: "01HZZZZZZZBBBBBBBB"},
		{ID: "01HZZZZZZZCCCCCCBB"},
	}

	id, err := matchID(issues, "01HZZZZZZZAAAAAAAA")
	require.NoError(t, err)
	assert.Equal(t, "01HZZZZZZZAAAAAAAA", id)

	id, err = matchID(issues, "aaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, "01HZZZZZZZAAAAAAAA", id)

	_, err = matchID(issues, "BB")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = matchID(issues, "ZZZZ")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBoardSource_AdminPagesThroughEverything(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/issues", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		page := r.URL.Query().Get("page")
		pages = append(pages, page)

		writeData(w, domain.IssuePage{
			Issues: []domain.Issue{{ID: "issue-" + page}},
			Page:   len(pages),
			Pages:  3,
			Total:  3,
		})
	}))
	defer srv.Close()

	src := boardSource{Client: client.New(srv.URL, "tok"), admin: true}
	issues, err := src.Baseline(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3"}, pages)
	require.Len(t, issues, 3)
	assert.Equal(t, "issue-3", issues[2].ID)
}

func TestBoardSource_UserSeesOwnAndAssignedIssues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/issues/my":
			writeData(w, []domain.Issue{{ID: "03-mine-and-assigned"}, {ID: "01-mine"}})
		case "/api/v1/issues/assigned":
			writeData(w, []domain.Issue{{ID: "03-mine-and-assigned"}, {ID: "02-assigned"}})
		default:
			http.Error(w, fmt.Sprintf("unexpected path %s", r.URL.Path), http.StatusNotFound)
		}
	}))
	defer srv.Close()

	src := boardSource{Client: client.New(srv.URL, "tok")}
	issues, err := src.Baseline(context.Background())
	require.NoError(t, err)
	ids := make([]string, len(issues))
	for i, issue := range issues {
		ids[i] = issue.ID
	}
	assert.Equal(t, []string{"03-mine-and-assigned", "02-assigned", "01-mine"}, ids)
}

// fakeDesk serves the endpoints move needs for a technician who filed nothing
// and has one issue assigned.
type fakeDesk struct {
	mu      sync.Mutex
	issue   domain.Issue
	updates []string
}

func (d *fakeDesk) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case r.URL.Path == "/api/v1/auth/me":
		writeData(w, domain.User{ID: "tech-1", DisplayName: "Bob", Role: domain.RoleTechnician})
	case r.URL.Path == "/api/v1/issues/my":
		writeData(w, []domain.Issue{})
	case r.URL.Path == "/api/v1/issues/assigned":
		writeData(w, []domain.Issue{d.issue})
	case r.Method == http.MethodPut && r.URL.Path == "/api/v1/issues/"+d.issue.ID+"/status":
		var body struct {
			Status  domain.IssueStatus `json:"status"`
			Version int64              `json:"version"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		d.updates = append(d.updates, fmt.Sprintf("%s@%d", body.Status, body.Version))
		d.issue = d.issue.WithStatus(body.Status)
		d.issue.Version++
		writeData(w, d.issue)
	default:
		http.Error(w, fmt.Sprintf("unexpected %s %s", r.Method, r.URL.Path), http.StatusNotFound)
	}
}

func useServer(t *testing.T, url string) *bytes.Buffer {
	t.Helper()
	prevServer, prevToken, prevUI, noColor := viper.GetString("server"), viper.GetString("token"), ui, color.NoColor
	var out bytes.Buffer
	viper.Set("server", url)
	viper.Set("token", "tok")
	ui = &output.UI{Out: &out, ErrOut: &out}
	color.NoColor = true
	t.Cleanup(func() {
		viper.Set("server", prevServer)
		viper.Set("token", prevToken)
		ui = prevUI
		color.NoColor = noColor
	})
	return &out
}

func TestMove_AssigneeMovesAssignedIssue(t *testing.T) {
	desk := &fakeDesk{issue: domain.Issue{
		ID:         "01HZZZZZZZAAAAAAAA",
		Title:      "Printer jam",
		Status:     domain.IssueStatusInProgress,
		AssignedTo: "Bob",
		AssigneeID: "tech-1",
		Version:    3,
	}}
	srv := httptest.NewServer(desk)
	defer srv.Close()
	out := useServer(t, srv.URL)

	require.NoError(t, moveRun(context.Background(), "aaaaaaaa", "resolved"))

	desk.mu.Lock()
	defer desk.mu.Unlock()
	assert.Equal(t, []string{"Resolved@3"}, desk.updates)
	assert.Equal(t, domain.IssueStatusResolved, desk.issue.Status)
	assert.Contains(t, out.String(), "Printer jam is now Resolved")
}

func TestBoardSource_EmptyListing(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeData(w, domain.IssuePage{Issues: []domain.Issue{}, Page: 1, Pages: 0})
	}))
	defer srv.Close()

	src := boardSource{Client: client.New(srv.URL, "tok"), admin: true}
	issues, err := src.Baseline(context.Background())
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, 1, calls)
}

func TestDescribeNotification(t *testing.T) {
	assert.Contains(t, describeNotification(realtimeFrame(map[string]any{"type": "comment", "issue_id": "i-1"})), "i-1")
	assert.Equal(t, "You have a new notification", describeNotification(realtimeFrame(map[string]any{"user_id": "u-1"})))
}

func realtimeFrame(data map[string]any) realtime.Frame {
	return realtime.Frame{Type: string(domain.EventNotification), Data: data}
}
