package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sumire/issuedesk/internal/realtime"
	"github.com/sumire/issuedesk/internal/service"
)

// Dependencies are the services the HTTP API is built on.
type Dependencies struct {
	Auth          *service.AuthService
	Issues        *service.IssueService
	Notifications *service.NotificationService
	Users         *service.UserService
	Hub           *realtime.Hub
	DB            Pinger
	FrontendURL   string
}

// NewRouter builds the echo instance with middleware and every route.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Validator = NewAppValidator()

	e.Use(middleware.RequestID())
	e.Use(RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{deps.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentType},
		ExposeHeaders:    []string{echo.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authHandler := NewAuthHandler(deps.Auth)
	issueHandler := NewIssueHandler(deps.Issues)
	notificationHandler := NewNotificationHandler(deps.Notifications)
	userHandler := NewUserHandler(deps.Users)
	streamHandler := NewStreamHandler(deps.Hub, deps.Auth)

	e.GET("/health", Health)
	e.GET("/ready", Ready(deps.DB))

	api := e.Group("/api/v1")

	// Auth routes (public)
	api.GET("/auth/google", authHandler.GoogleRedirect)
	api.GET("/auth/google/callback", authHandler.GoogleCallback)
	api.GET("/auth/github", authHandler.GitHubRedirect)
	api.GET("/auth/github/callback", authHandler.GitHubCallback)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)

	// The stream authenticates with a query token.
	api.GET("/ws", streamHandler.Stream)

	protected := api.Group("", JWTAuth(deps.Auth))

	protected.GET("/auth/me", authHandler.Me)

	protected.POST("/issues", issueHandler.Create)
	protected.GET("/issues/my", issueHandler.ListMine)
	protected.GET("/issues/assigned", issueHandler.ListAssigned)
	protected.GET("/issues", issueHandler.ListAll)
	protected.GET("/issues/:id", issueHandler.Get)
	protected.PUT("/issues/:id/status", issueHandler.UpdateStatus)
	protected.PUT("/issues/:id/assign", issueHandler.Assign)
	protected.POST("/issues/:id/comment", issueHandler.Comment)

	protected.GET("/notifications", notificationHandler.List)
	protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
	protected.PUT("/notifications/read-all", notificationHandler.MarkAllRead)
	protected.PUT("/notifications/:id/read", notificationHandler.MarkRead)

	protected.GET("/users", userHandler.List)
	protected.PUT("/users/:id/role", userHandler.UpdateRole)

	return e
}
