package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchroom/lunchroom/internal/auth"
	"github.com/lunchroom/lunchroom/internal/model"
)

func testTokens() *auth.Manager {
	return auth.NewManager("access-secret", "refresh-secret", time.Hour, time.Hour, time.Hour)
}

func okHandler(c echo.Context) error {
	id, _ := UserID(c)
	return c.JSON(http.StatusOK, echo.Map{"user_id": id, "role": Role(c)})
}

func doRequest(t *testing.T, mws []echo.MiddlewareFunc, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := okHandler
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h(c))
	return rec
}

func TestSessionAuthRejectsMissingToken(t *testing.T) {
	rec := doRequest(t, []echo.MiddlewareFunc{SessionAuth(testTokens())}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionAuthRejectsInvalidToken(t *testing.T) {
	rec := doRequest(t, []echo.MiddlewareFunc{SessionAuth(testTokens())}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer garbage")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionAuthAcceptsCookie(t *testing.T) {
	tokens := testTokens()
	tok, err := tokens.NewAccessToken(5, model.RoleUser)
	require.NoError(t, err)

	rec := doRequest(t, []echo.MiddlewareFunc{SessionAuth(tokens)}, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: AccessCookie, Value: tok.Value})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":5`)
	assert.Contains(t, rec.Body.String(), `"role":"USER"`)
}

func TestSessionAuthAcceptsBearerHeader(t *testing.T) {
	tokens := testTokens()
	tok, err := tokens.NewAccessToken(6, model.RoleAdmin)
	require.NoError(t, err)

	rec := doRequest(t, []echo.MiddlewareFunc{SessionAuth(tokens)}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok.Value)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":6`)
}

func TestSessionAuthPrefersCookieOverHeader(t *testing.T) {
	tokens := testTokens()
	tok, err := tokens.NewAccessToken(7, model.RoleUser)
	require.NoError(t, err)

	rec := doRequest(t, []echo.MiddlewareFunc{SessionAuth(tokens)}, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: AccessCookie, Value: tok.Value})
		r.Header.Set("Authorization", "Bearer garbage")
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionAuthRejectsRefreshTokenAsAccess(t *testing.T) {
	tokens := testTokens()
	tok, err := tokens.NewRefreshToken(5)
	require.NoError(t, err)

	rec := doRequest(t, []echo.MiddlewareFunc{SessionAuth(tokens)}, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: AccessCookie, Value: tok.Value})
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// With the guard chain in route order, a missing session yields 401 and only
// a live session with the wrong role yields 403.
func TestGuardChainDecides401Before403(t *testing.T) {
	tokens := testTokens()
	chain := []echo.MiddlewareFunc{
		SessionAuth(tokens),
		RequireRole(model.RoleAdmin),
	}

	t.Run("no session", func(t *testing.T) {
		rec := doRequest(t, chain, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired session", func(t *testing.T) {
		expired := auth.NewManager("access-secret", "refresh-secret", -time.Minute, time.Hour, time.Hour)
		tok, err := expired.NewAccessToken(8, model.RoleAdmin)
		require.NoError(t, err)
		rec := doRequest(t, chain, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AccessCookie, Value: tok.Value})
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong role", func(t *testing.T) {
		tok, err := tokens.NewAccessToken(8, model.RoleUser)
		require.NoError(t, err)
		rec := doRequest(t, chain, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AccessCookie, Value: tok.Value})
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("allowed role", func(t *testing.T) {
		tok, err := tokens.NewAccessToken(8, model.RoleAdmin)
		require.NoError(t, err)
		rec := doRequest(t, chain, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AccessCookie, Value: tok.Value})
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestSelfOrRole(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.Set("user_id", uint64(5))
	c.Set("role", model.RoleUser)

	assert.True(t, SelfOrRole(c, 5, model.RoleModerator, model.RoleAdmin))
	assert.False(t, SelfOrRole(c, 6, model.RoleModerator, model.RoleAdmin))

	c.Set("role", model.RoleModerator)
	assert.True(t, SelfOrRole(c, 6, model.RoleModerator, model.RoleAdmin))
}
