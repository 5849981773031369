package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lunchroom/lunchroom/internal/auth"
	"github.com/lunchroom/lunchroom/internal/config"
	"github.com/lunchroom/lunchroom/internal/middleware"
	"github.com/lunchroom/lunchroom/internal/repository"
)

// RefreshCookie is the httpOnly cookie carrying the refresh token.  The
// refresh endpoint reads it from here and nowhere else; a refresh token in a
// body or header is never accepted.
const RefreshCookie = "refresh_token"

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Auth  *auth.Service
	Users *repository.UserRepo
}

func NewAuthHandler(cfg config.Config, svc *auth.Service, users *repository.UserRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Auth: svc, Users: users}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerReq struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type resetReq struct {
	Email string `json:"email"`
}

type resetConfirmReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Login verifies credentials and establishes the cookie session.  The access
// token is also echoed in the body for API clients that prefer the Bearer
// header over cookies.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		var fe auth.FieldErrors
		if errors.As(err, &fe) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "errors": fe})
		}
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	h.setSessionCookie(c, middleware.AccessCookie, res.Access.Value, res.Access.Exp)
	h.setSessionCookie(c, RefreshCookie, res.Refresh.Value, res.Refresh.Exp)

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    res.User,
		"token":   res.Access.Value,
		"message": "login successful",
	})
}

// Register creates a USER account.  No session is established; the client
// logs in afterwards.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Auth.Register(ctx, auth.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		var fe auth.FieldErrors
		if errors.As(err, &fe) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "errors": fe})
		}
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":  "validation failed",
				"errors": map[string]string{"email": "email is already registered"},
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}

// Refresh exchanges the refresh cookie for a fresh access token.  The user
// record is re-checked, so a deactivated account gets 401 even with a valid
// cookie.  The refresh token is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ck, err := c.Cookie(RefreshCookie)
	if err != nil || ck.Value == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh token required"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	res, err := h.Auth.Refresh(ctx, ck.Value)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) || errors.Is(err, auth.ErrUserInactiveOrMissing) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired refresh token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}

	h.setSessionCookie(c, middleware.AccessCookie, res.Access.Value, res.Access.Exp)
	return c.JSON(http.StatusOK, echo.Map{"user": res.User, "message": "token refreshed"})
}

// RequestReset starts the forgot-password flow.  The response is identical
// whether or not the email belongs to an account.
func (h *AuthHandler) RequestReset(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Auth.RequestPasswordReset(ctx, req.Email); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset request failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "if the account exists, a reset link has been sent"})
}

// ConfirmReset redeems a reset token and stores the new password.
func (h *AuthHandler) ConfirmReset(c echo.Context) error {
	var req resetConfirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		var fe auth.FieldErrors
		if errors.As(err, &fe) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "errors": fe})
		}
		if errors.Is(err, auth.ErrInvalidResetToken) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired reset token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Logout clears both session cookies.  Tokens are stateless, so there is no
// server-side session to revoke.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.clearSessionCookie(c, middleware.AccessCookie)
	h.clearSessionCookie(c, RefreshCookie)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me returns the authenticated user's current record.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u.PublicView()})
}

// ----- cookies -----

func (h *AuthHandler) setSessionCookie(c echo.Context, name, value string, exp time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.Cfg.CookieDomain,
		MaxAge:   int(time.Until(exp).Seconds()),
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.Cfg.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure(),
		SameSite: http.SameSiteLaxMode,
	})
}
