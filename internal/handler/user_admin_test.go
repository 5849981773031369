package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchroom/lunchroom/internal/auth"
)

func adminContext(req *http.Request, id string) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

// The target of a forced password reset is always the path parameter; a
// missing or malformed id is rejected before anything else happens.
func TestForcePasswordRequiresTargetID(t *testing.T) {
	h := NewUserAdminHandler(nil, auth.Hasher{Cost: 4})

	for _, id := range []string{"", "abc", "0", "-3"} {
		c, rec := adminContext(jsonRequest(http.MethodPost, "/api/users/:id/password", `{"new_password":"longenough"}`), id)
		require.NoError(t, h.ForcePassword(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "id=%q", id)
	}
}

func TestForcePasswordRejectsShortPassword(t *testing.T) {
	h := NewUserAdminHandler(nil, auth.Hasher{Cost: 4})

	c, rec := adminContext(jsonRequest(http.MethodPost, "/api/users/:id/password", `{"new_password":"short"}`), "5")
	require.NoError(t, h.ForcePassword(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "new_password")
}

func TestUpdateUserRejectsUnknownRole(t *testing.T) {
	h := NewUserAdminHandler(nil, auth.Hasher{Cost: 4})

	c, rec := adminContext(jsonRequest(http.MethodPatch, "/api/users/:id", `{"role":"SUPERUSER"}`), "5")
	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown role")
}
