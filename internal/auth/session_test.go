package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return NewManager("access-secret", "refresh-secret", time.Hour, 7*24*time.Hour, 30*time.Minute)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := testManager()

	tok, err := m.NewAccessToken(42, "MODERATOR")
	require.NoError(t, err)
	require.NotEmpty(t, tok.Value)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), tok.Exp, 5*time.Second)

	claims := m.VerifyAccessToken(tok.Value)
	require.NotNil(t, claims)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "MODERATOR", claims.Role)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m := testManager()

	tok, err := m.NewRefreshToken(7)
	require.NoError(t, err)

	claims := m.VerifyRefreshToken(tok.Value)
	require.NotNil(t, claims)
	assert.Equal(t, uint64(7), claims.UserID)
}

func TestResetTokenCarriesJTI(t *testing.T) {
	m := testManager()

	tok, err := m.NewResetToken(9, "reset-jti-1")
	require.NoError(t, err)

	claims := m.VerifyResetToken(tok.Value)
	require.NotNil(t, claims)
	assert.Equal(t, uint64(9), claims.UserID)
	assert.Equal(t, "reset-jti-1", claims.TokenID)
}

// A token of one kind must never pass verification for another, even though
// refresh and reset tokens share a signing secret.
func TestTokenKindsAreIsolated(t *testing.T) {
	m := testManager()

	access, err := m.NewAccessToken(1, "USER")
	require.NoError(t, err)
	refresh, err := m.NewRefreshToken(1)
	require.NoError(t, err)
	reset, err := m.NewResetToken(1, "jti")
	require.NoError(t, err)

	assert.Nil(t, m.VerifyAccessToken(refresh.Value))
	assert.Nil(t, m.VerifyAccessToken(reset.Value))
	assert.Nil(t, m.VerifyRefreshToken(access.Value))
	assert.Nil(t, m.VerifyRefreshToken(reset.Value))
	assert.Nil(t, m.VerifyResetToken(access.Value))
	assert.Nil(t, m.VerifyResetToken(refresh.Value))
}

// An expired token is rejected even though its signature is intact.
func TestExpiredTokensAreRejected(t *testing.T) {
	m := NewManager("access-secret", "refresh-secret", -time.Minute, -time.Minute, -time.Minute)

	access, err := m.NewAccessToken(1, "USER")
	require.NoError(t, err)
	refresh, err := m.NewRefreshToken(1)
	require.NoError(t, err)

	assert.Nil(t, m.VerifyAccessToken(access.Value))
	assert.Nil(t, m.VerifyRefreshToken(refresh.Value))
}

func TestForeignSignatureIsRejected(t *testing.T) {
	m := testManager()
	other := NewManager("other-access", "other-refresh", time.Hour, time.Hour, time.Hour)

	tok, err := other.NewAccessToken(1, "USER")
	require.NoError(t, err)

	assert.Nil(t, m.VerifyAccessToken(tok.Value))
}

func TestMalformedTokensAreRejected(t *testing.T) {
	m := testManager()

	assert.Nil(t, m.VerifyAccessToken(""))
	assert.Nil(t, m.VerifyAccessToken("not.a.jwt"))
	assert.Nil(t, m.VerifyRefreshToken("garbage"))
	assert.Nil(t, m.VerifyResetToken("garbage"))
}
