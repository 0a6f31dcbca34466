package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/issuedesk/internal/domain"
	"github.com/sumire/issuedesk/internal/service"
)

// UserHandler handles admin user management endpoints.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type updateRoleRequest struct {
	Role domain.Role `json:"role"`
}

// List returns every user.
func (h *UserHandler) List(c echo.Context) error {
	actor, err := CurrentUser(c)
	if err != nil {
		return err
	}

	users, err := h.users.List(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, users)
}

// UpdateRole changes a user's role.
func (h *UserHandler) UpdateRole(c echo.Context) error {
	actor, err := CurrentUser(c)
	if err != nil {
		return err
	}

	var req updateRoleRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	user, err := h.users.UpdateRole(c.Request().Context(), actor, c.Param("id"), req.Role)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, user)
}
