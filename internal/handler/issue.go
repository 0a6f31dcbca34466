package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/issuedesk/internal/domain"
	"github.com/sumire/issuedesk/internal/service"
)

// IssueHandler handles issue endpoints.
type IssueHandler struct {
	issues *service.IssueService
}

// NewIssueHandler creates a new IssueHandler.
func NewIssueHandler(issues *service.IssueService) *IssueHandler {
	return &IssueHandler{issues: issues}
}

type updateStatusRequest struct {
	Status  domain.IssueStatus `json:"status"`
	Version int64              `json:"version" validate:"gte=0"`
}

type assignRequest struct {
	AssignedTo string `json:"assigned_to"`
	Version    int64  `json:"version" validate:"gte=0"`
}

type commentRequest struct {
	Text string `json:"text"`
}

// Create files a new issue for the current user.
func (h *IssueHandler) Create(c echo.Context) error {
	actor, err := CurrentUser(c)
	if err != nil {
		return err
	}

	var req service.CreateIssueInput
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	issue, err := h.issues.Create(c.Request().Context(), actor, req)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, issue)
}

// ListMine returns the current user's issues.
func (h *IssueHandler) ListMine(c echo.Context) error {
	actor, err := CurrentUser(c)
	if err != nil {
		return err
	}

	issues, err := h.issues.ListMine(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, issues)
}

// ListAssigned returns the issues assigned to the current user.
func (h *IssueHandler) ListAssigned(c echo.Context) error {
	actor, err := CurrentUser(c)
	if err != nil {
		return err
	}

	issues, err := h.issues.ListAssigned(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, issues)
}

// ListAll returns one page of every issue.
func (h *IssueHandler) ListAll(c echo.Context) error {
	actor, err := CurrentUser(c)
	if err != nil {
		return err
	}

	var page, limit int
	if err := echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("limit", &limit).
		BindError(); err != nil {
		return invalidBody()
	}

	result, err := h.issues.ListAll(c.Request().Context(), actor, page, limit)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, result)
}

// Get returns one issue.
func (h *IssueHandler) Get(c echo.Context) error {
	actor, err := CurrentUser(c)
	if err != nil {
		return err
	}

	issue, err := h.issues.Get(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, issue)
}

// UpdateStatus moves an issue to another status.
func (h *IssueHandler) UpdateStatus(c echo.Context) error {
	actor, err := CurrentUser(c)
	if err != nil {
		return err
	}

	var req updateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	issue, err := h.issues.UpdateStatus(c.Request().Context(), actor, c.Param("id"), req.Status, req.Version)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, issue)
}

// Assign sets or clears the assignee of an issue.
func (h *IssueHandler) Assign(c echo.Context) error {
	actor, err := CurrentUser(c)
	if err != nil {
		return err
	}

	var req assignRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	issue, err := h.issues.Assign(c.Request().Context(), actor, c.Param("id"), req.AssignedTo, req.Version)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, issue)
}

// Comment appends a comment to an issue.
func (h *IssueHandler) Comment(c echo.Context) error {
	actor, err := CurrentUser(c)
	if err != nil {
		return err
	}

	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	issue, err := h.issues.AddComment(c.Request().Context(), actor, c.Param("id"), req.Text)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, issue)
}
