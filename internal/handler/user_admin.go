package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lunchroom/lunchroom/internal/auth"
	"github.com/lunchroom/lunchroom/internal/model"
	"github.com/lunchroom/lunchroom/internal/repository"
)

// UserAdminHandler serves the ADMIN-only user management endpoints.
type UserAdminHandler struct {
	Users  *repository.UserRepo
	Hasher auth.Hasher
}

func NewUserAdminHandler(users *repository.UserRepo, hasher auth.Hasher) *UserAdminHandler {
	return &UserAdminHandler{Users: users, Hasher: hasher}
}

// List handles GET /api/users.
func (h *UserAdminHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	items := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		items = append(items, u.PublicView())
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /api/users/:id.
func (h *UserAdminHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u.PublicView()})
}

// Update handles PATCH /api/users/:id.  Name and role are updatable; an
// empty field leaves the column untouched.
func (h *UserAdminHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		Name string `json:"name"`
		Role string `json:"role"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Role != "" && !model.ValidRole(body.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Users.Update(ctx, id, body.Name, body.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u.PublicView()})
}

// Deactivate handles DELETE /api/users/:id (soft delete).
func (h *UserAdminHandler) Deactivate(c echo.Context) error {
	return h.setActive(c, false)
}

// Restore handles POST /api/users/:id/restore.
func (h *UserAdminHandler) Restore(c echo.Context) error {
	return h.setActive(c, true)
}

func (h *UserAdminHandler) setActive(c echo.Context, active bool) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Users.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Purge handles DELETE /api/users/:id/purge (hard delete).  Users with order
// history cannot be purged.
func (h *UserAdminHandler) Purge(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Users.HardDelete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "user has order history"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ForcePassword handles POST /api/users/:id/password.  The target account is
// always the one named in the path; the acting admin's own ID is never
// substituted.
func (h *UserAdminHandler) ForcePassword(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.NewPassword) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":  "validation failed",
			"errors": map[string]string{"new_password": "password must be at least 8 characters"},
		})
	}

	hash, err := h.Hasher.Hash(body.NewPassword)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash failed"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Users.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
