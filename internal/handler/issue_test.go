package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/issuedesk/internal/domain"
)

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	code, _ := ts.do(t, nil, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = ts.do(t, nil, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	code, resp := ts.do(t, nil, http.MethodGet, "/api/v1/issues/my", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "unauthorized", resp.Error.Code)

	ts.tokens["intruder"] = "not-a-jwt"
	code, _ = ts.do(t, &domain.User{ID: "intruder"}, http.MethodGet, "/api/v1/issues/my", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestCreateIssue(t *testing.T) {
	ts := newTestServer(t)

	issue := ts.createIssue(t, ts.alice)
	assert.Equal(t, domain.IssueStatusOpen, issue.Status)
	assert.Equal(t, "", issue.AssignedTo)
	assert.Equal(t, ts.alice.ID, issue.CreatedBy)
	assert.NotNil(t, issue.Comments)

	code, resp := ts.do(t, &ts.alice, http.MethodPost, "/api/v1/issues", map[string]string{
		"title": "x", "description": "y", "category": "Plumbing", "priority": "High",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation_error", resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "category", resp.Error.Details[0].Field)
}

func TestUpdateStatus(t *testing.T) {
	ts := newTestServer(t)
	issue := ts.createIssue(t, ts.alice)
	path := "/api/v1/issues/" + issue.ID + "/status"

	code, resp := ts.do(t, &ts.bob, http.MethodPut, path, map[string]any{"status": "Resolved"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", resp.Error.Code)

	code, _ = ts.do(t, &ts.bob, http.MethodPut, "/api/v1/issues/missing/status", map[string]any{"status": "Resolved"})
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = ts.do(t, &ts.admin, http.MethodPut, path, map[string]any{"status": "Done"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", resp.Error.Code)

	code, resp = ts.do(t, &ts.admin, http.MethodPut, path, map[string]any{"status": "In Progress", "version": issue.Version})
	require.Equal(t, http.StatusOK, code)
	updated := decode[domain.Issue](t, resp.Data)
	assert.Equal(t, domain.IssueStatusInProgress, updated.Status)

	code, resp = ts.do(t, &ts.admin, http.MethodPut, path, map[string]any{"status": "Resolved", "version": issue.Version})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", resp.Error.Code)
}

func TestAssignAndComment(t *testing.T) {
	ts := newTestServer(t)
	issue := ts.createIssue(t, ts.alice)

	code, _ := ts.do(t, &ts.bob, http.MethodPut, "/api/v1/issues/"+issue.ID+"/assign", map[string]string{"assigned_to": "Bob"})
	assert.Equal(t, http.StatusForbidden, code)

	code, resp := ts.do(t, &ts.admin, http.MethodPut, "/api/v1/issues/"+issue.ID+"/assign", map[string]string{"assigned_to": "Bob"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Bob", decode[domain.Issue](t, resp.Data).AssignedTo)

	code, _ = ts.do(t, &ts.bob, http.MethodPut, "/api/v1/issues/"+issue.ID+"/status", map[string]any{"status": "Resolved"})
	assert.Equal(t, http.StatusOK, code)

	code, resp = ts.do(t, &ts.bob, http.MethodPost, "/api/v1/issues/"+issue.ID+"/comment", map[string]string{"text": "fixed the cable"})
	require.Equal(t, http.StatusCreated, code)
	commented := decode[domain.Issue](t, resp.Data)
	require.Len(t, commented.Comments, 1)
	assert.Equal(t, "Bob", commented.Comments[0].User)

	code, resp = ts.do(t, &ts.bob, http.MethodPost, "/api/v1/issues/"+issue.ID+"/comment", map[string]string{"text": " "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "text", resp.Error.Details[0].Field)

	code, resp = ts.do(t, &ts.alice, http.MethodGet, "/api/v1/issues/"+issue.ID, nil)
	require.Equal(t, http.StatusOK, code)
	got := decode[domain.Issue](t, resp.Data)
	assert.Equal(t, domain.IssueStatusResolved, got.Status)
	require.NotNil(t, got.Creator)
	assert.Equal(t, "Alice", got.Creator.DisplayName)
}

func TestListIssues(t *testing.T) {
	ts := newTestServer(t)
	ts.createIssue(t, ts.alice)
	ts.createIssue(t, ts.bob)

	code, resp := ts.do(t, &ts.alice, http.MethodGet, "/api/v1/issues/my", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]domain.Issue](t, resp.Data), 1)

	code, _ = ts.do(t, &ts.alice, http.MethodGet, "/api/v1/issues", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = ts.do(t, &ts.admin, http.MethodGet, "/api/v1/issues?page=1&limit=1", nil)
	require.Equal(t, http.StatusOK, code)
	page := decode[domain.IssuePage](t, resp.Data)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Issues, 1)

	code, _ = ts.do(t, &ts.admin, http.MethodGet, "/api/v1/issues?page=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListAssignedIssues(t *testing.T) {
	ts := newTestServer(t)
	issue := ts.createIssue(t, ts.alice)
	ts.createIssue(t, ts.alice)

	code, resp := ts.do(t, &ts.bob, http.MethodGet, "/api/v1/issues/assigned", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]domain.Issue](t, resp.Data))

	code, _ = ts.do(t, &ts.admin, http.MethodPut, "/api/v1/issues/"+issue.ID+"/assign", map[string]string{"assigned_to": "Bob"})
	require.Equal(t, http.StatusOK, code)

	code, resp = ts.do(t, &ts.bob, http.MethodGet, "/api/v1/issues/assigned", nil)
	require.Equal(t, http.StatusOK, code)
	assigned := decode[[]domain.Issue](t, resp.Data)
	require.Len(t, assigned, 1)
	assert.Equal(t, issue.ID, assigned[0].ID)

	code, _ = ts.do(t, nil, http.MethodGet, "/api/v1/issues/assigned", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
