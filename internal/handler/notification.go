package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/issuedesk/internal/service"
)

// NotificationHandler serves the current user's notification inbox.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}

	list, err := h.notifications.List(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, list)
}

func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}

	count, err := h.notifications.UnreadCount(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]int{"count": count})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}

	n, err := h.notifications.MarkRead(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, n)
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}

	updated, err := h.notifications.MarkAllRead(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]int64{"updated": updated})
}
