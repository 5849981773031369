package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lunchroom/lunchroom/internal/auth"
)

// AccessCookie is the name of the httpOnly cookie carrying the access token.
const AccessCookie = "access_token"

// SessionAuth returns an Echo middleware that authenticates the request.
// The access token is taken from the access_token cookie (web flow) or, when
// absent, from the Authorization Bearer header (API flow).  Verification is
// fail-closed: any missing, malformed, expired or wrong-kind token stops the
// request with 401 before a handler runs.  On success the numeric user ID
// and role claim are stored in the context under "user_id" and "role".
func SessionAuth(tokens *auth.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFromRequest(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			claims := tokens.VerifyAccessToken(raw)
			if claims == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}
			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)
			return next(c)
		}
	}
}

// tokenFromRequest prefers the session cookie and falls back to a Bearer
// header so the same routes serve browsers and API clients.
func tokenFromRequest(c echo.Context) string {
	if ck, err := c.Cookie(AccessCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	h := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// UserID returns the authenticated user's ID stored by SessionAuth.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get("user_id").(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated user's role stored by SessionAuth.
func Role(c echo.Context) string {
	r, _ := c.Get("role").(string)
	return r
}
