package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/sumire/issuedesk/internal/domain"
	"github.com/sumire/issuedesk/internal/realtime"
	"github.com/sumire/issuedesk/internal/repository"
	"github.com/sumire/issuedesk/internal/service"
	"github.com/sumire/issuedesk/internal/session"
)

type testServer struct {
	e     *echo.Echo
	hub   *realtime.Hub
	auth  *service.AuthService
	users *repository.UserRepository

	alice, bob, admin domain.User
	tokens            map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	db, err := repository.Open(ctx, repository.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(ctx, db))
	t.Cleanup(func() { db.Close() })

	users := repository.NewUserRepository(db)
	issues := repository.NewIssueRepository(db)
	notifications := repository.NewNotificationRepository(db)

	hub := realtime.NewHub(realtime.ScopeScoped, nil)
	auth := service.NewAuthService(users, session.Stateless{}, service.AuthConfig{JWTSecret: "test-secret"})
	notifier := service.NewNotifier(notifications, users, nil)

	ts := &testServer{
		hub:    hub,
		auth:   auth,
		users:  users,
		tokens: map[string]string{},
	}
	ts.e = NewRouter(Dependencies{
		Auth:          auth,
		Issues:        service.NewIssueService(issues, users, notifier, hub, nil),
		Notifications: service.NewNotificationService(notifications),
		Users:         service.NewUserService(users, hub),
		Hub:           hub,
		DB:            db,
		FrontendURL:   "http://localhost:5173",
	})

	ts.alice = ts.addUser(t, "Alice", domain.RoleUser)
	ts.bob = ts.addUser(t, "Bob", domain.RoleTechnician)
	ts.admin = ts.addUser(t, "Admin", domain.RoleAdmin)
	return ts
}

func (ts *testServer) addUser(t *testing.T, name string, role domain.Role) domain.User {
	t.Helper()
	ctx := context.Background()
	u, err := ts.users.Upsert(ctx, domain.User{
		Provider:    domain.AuthProviderLocal,
		ProviderID:  name,
		Email:       name + "@example.com",
		DisplayName: name,
		Role:        role,
	})
	require.NoError(t, err)

	pair, err := ts.auth.IssueTokens(ctx, u.ID)
	require.NoError(t, err)
	ts.tokens[u.ID] = pair.AccessToken
	return *u
}

type response struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

func (ts *testServer) do(t *testing.T, as *domain.User, method, path string, body any) (int, response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if as != nil {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+ts.tokens[as.ID])
	}

	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func (ts *testServer) createIssue(t *testing.T, as domain.User) domain.Issue {
	t.Helper()
	code, resp := ts.do(t, &as, http.MethodPost, "/api/v1/issues", map[string]string{
		"title":       "Projector broken",
		"description": "Lab 2 projector shows no image",
		"category":    "Infrastructure",
		"priority":    "High",
	})
	require.Equal(t, http.StatusCreated, code)

	var issue domain.Issue
	require.NoError(t, json.Unmarshal(resp.Data, &issue))
	return issue
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}
