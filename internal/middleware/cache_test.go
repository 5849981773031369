package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchroom/lunchroom/internal/config"
)

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/json")
	hdr.Add("X-Multi", "a")
	hdr.Add("X-Multi", "b")
	body := []byte(`{"items":[]}`)

	encoded, err := encodePayload(http.StatusOK, hdr, body)
	require.NoError(t, err)

	status, gotHdr, gotBody, ok := decodePayload(encoded)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, []string{"a", "b"}, gotHdr["X-Multi"])
	assert.Equal(t, body, gotBody)
}

func TestDecodePayloadRejectsTruncatedInput(t *testing.T) {
	_, _, _, ok := decodePayload([]byte{0, 0, 0})
	assert.False(t, ok)

	// Header length pointing past the buffer.
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 0, 99})
	assert.False(t, ok)
}

func TestCacheKeyIgnoresIdentity(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache"}
	e := echo.New()

	makeCtx := func(target, realIP string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if realIP != "" {
			req.Header.Set("X-Real-Ip", realIP)
		}
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/api/shops/:id")
		return c
	}

	a := cacheKeyFrom(cfg, makeCtx("/api/shops/1?x=1", "10.0.0.1"))
	b := cacheKeyFrom(cfg, makeCtx("/api/shops/1?x=1", "10.0.0.2"))
	other := cacheKeyFrom(cfg, makeCtx("/api/shops/1?x=2", ""))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, other)
}

func TestCacheBypassesAuthenticatedRequests(t *testing.T) {
	e := echo.New()

	anon := httptest.NewRequest(http.MethodGet, "/api/shops", nil)
	assert.False(t, bypassCache(e.NewContext(anon, httptest.NewRecorder())))

	withCookie := httptest.NewRequest(http.MethodGet, "/api/shops", nil)
	withCookie.AddCookie(&http.Cookie{Name: AccessCookie, Value: "token"})
	assert.True(t, bypassCache(e.NewContext(withCookie, httptest.NewRecorder())))

	withBearer := httptest.NewRequest(http.MethodGet, "/api/shops", nil)
	withBearer.Header.Set(echo.HeaderAuthorization, "Bearer token")
	assert.True(t, bypassCache(e.NewContext(withBearer, httptest.NewRecorder())))
}

func TestBuildRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set("X-Real-Ip", "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/auth/login")

	ip := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}, c)
	assert.Equal(t, "rl:ip:10.0.0.9", ip)

	route := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}, c)
	assert.Equal(t, "rl:ip:10.0.0.9:route:POST /api/auth/login", route)

	anon := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c)
	assert.Equal(t, "rl:user:anon", anon)

	c.Set("user_id", uint64(12))
	user := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c)
	assert.Equal(t, "rl:user:12", user)
}
