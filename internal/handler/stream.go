package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/net/websocket"

	"github.com/sumire/issuedesk/internal/domain"
	"github.com/sumire/issuedesk/internal/realtime"
	"github.com/sumire/issuedesk/internal/service"
)

const streamWriteTimeout = 10 * time.Second

// StreamHandler upgrades authenticated requests to a websocket event stream.
type StreamHandler struct {
	hub  *realtime.Hub
	auth *service.AuthService
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(hub *realtime.Hub, auth *service.AuthService) *StreamHandler {
	return &StreamHandler{hub: hub, auth: auth}
}

// Stream authenticates the access token in the "token" query parameter,
// since browsers cannot set headers on a websocket upgrade.
func (h *StreamHandler) Stream(c echo.Context) error {
	user, err := h.auth.Authenticate(c.Request().Context(), c.QueryParam("token"))
	if err != nil {
		return err
	}

	server := websocket.Server{
		// Tokens travel in the URL, not in cookies, so any origin may connect.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler: func(ws *websocket.Conn) {
			h.serve(ws, *user)
		},
	}
	server.ServeHTTP(c.Response(), c.Request())
	return nil
}

func (h *StreamHandler) serve(ws *websocket.Conn, user domain.User) {
	defer ws.Close()

	sub := h.hub.Subscribe(user)
	defer h.hub.Unsubscribe(sub)

	// A hijacked connection keeps the server's read deadline.
	if err := ws.SetReadDeadline(time.Time{}); err != nil {
		slog.Warn("failed to clear stream read deadline", "user_id", user.ID, "error", err)
	}

	ctx, cancel := context.WithCancel(ws.Request().Context())
	defer cancel()

	// Clients never send frames; the read loop only notices the close.
	go func() {
		defer cancel()
		var discard string
		for {
			if err := websocket.Message.Receive(ws, &discard); err != nil {
				return
			}
		}
	}()

	slog.Info("event stream connected", "user_id", user.ID, "sessions", h.hub.Len())
	err := h.hub.Stream(ctx, sub, func(f realtime.Frame) error {
		if err := ws.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
			return err
		}
		return websocket.JSON.Send(ws, f)
	})
	slog.Info("event stream closed", "user_id", user.ID, "reason", err)
}
