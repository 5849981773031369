package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds carried in the "kind" claim.  Verification rejects any token
// whose kind does not match the expected one, so an access token can never
// stand in for a refresh token or vice versa.
const (
	kindAccess  = "access"
	kindRefresh = "refresh"
	kindReset   = "reset"
)

// Token is a signed JWT together with its expiry.  The Value field is what
// goes into the cookie (or the reset mail); Exp drives the cookie MaxAge.
type Token struct {
	Value string
	Exp   time.Time
}

// AccessClaims is the decoded payload of a verified access token.
type AccessClaims struct {
	UserID uint64
	Role   string
}

// RefreshClaims is the decoded payload of a verified refresh token.
type RefreshClaims struct {
	UserID uint64
}

// ResetClaims is the decoded payload of a verified password-reset token.
// TokenID is the jti used for single-use bookkeeping.
type ResetClaims struct {
	UserID  uint64
	TokenID string
}

// Manager issues and verifies HS256-signed session tokens.  Access tokens
// are signed with the access secret; refresh and reset tokens with a
// distinct refresh secret.  Secrets are injected configuration, never
// package state.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	resetTTL      time.Duration
}

// NewManager builds a Manager from the two signing secrets and the TTLs for
// each token kind.
func NewManager(accessSecret, refreshSecret string, accessTTL, refreshTTL, resetTTL time.Duration) *Manager {
	return &Manager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		resetTTL:      resetTTL,
	}
}

// NewAccessToken builds and signs an access token for a user.  The claims
// are: subject (sub), role, kind, expiration (exp) and issued at (iat).
func (m *Manager) NewAccessToken(userID uint64, role string) (Token, error) {
	exp := time.Now().UTC().Add(m.accessTTL)
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"kind": kindAccess,
		"exp":  exp.Unix(),
		"iat":  time.Now().UTC().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.accessSecret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, Exp: exp}, nil
}

// NewRefreshToken builds and signs a refresh token.  Refresh tokens carry no
// role claim: the role is re-read from storage when the token is redeemed.
func (m *Manager) NewRefreshToken(userID uint64) (Token, error) {
	exp := time.Now().UTC().Add(m.refreshTTL)
	claims := jwt.MapClaims{
		"sub":  userID,
		"kind": kindRefresh,
		"exp":  exp.Unix(),
		"iat":  time.Now().UTC().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.refreshSecret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, Exp: exp}, nil
}

// NewResetToken builds and signs a password-reset token.  The jti must be
// persisted by the caller so the token can be consumed exactly once.
func (m *Manager) NewResetToken(userID uint64, jti string) (Token, error) {
	exp := time.Now().UTC().Add(m.resetTTL)
	claims := jwt.MapClaims{
		"sub":  userID,
		"jti":  jti,
		"kind": kindReset,
		"exp":  exp.Unix(),
		"iat":  time.Now().UTC().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.refreshSecret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, Exp: exp}, nil
}

// VerifyAccessToken parses and verifies an access token.  It fails closed:
// nil is returned on a bad signature, expiry, wrong algorithm or wrong kind,
// never an error value.
func (m *Manager) VerifyAccessToken(raw string) *AccessClaims {
	claims := m.verify(raw, m.accessSecret, kindAccess)
	if claims == nil {
		return nil
	}
	uid, ok := subjectID(claims)
	if !ok {
		return nil
	}
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return nil
	}
	return &AccessClaims{UserID: uid, Role: role}
}

// VerifyRefreshToken parses and verifies a refresh token with the same
// fail-closed contract as VerifyAccessToken.
func (m *Manager) VerifyRefreshToken(raw string) *RefreshClaims {
	claims := m.verify(raw, m.refreshSecret, kindRefresh)
	if claims == nil {
		return nil
	}
	uid, ok := subjectID(claims)
	if !ok {
		return nil
	}
	return &RefreshClaims{UserID: uid}
}

// VerifyResetToken parses and verifies a password-reset token.
func (m *Manager) VerifyResetToken(raw string) *ResetClaims {
	claims := m.verify(raw, m.refreshSecret, kindReset)
	if claims == nil {
		return nil
	}
	uid, ok := subjectID(claims)
	if !ok {
		return nil
	}
	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return nil
	}
	return &ResetClaims{UserID: uid, TokenID: jti}
}

// verify parses raw with the given secret and returns its claims only when
// the signature covers all claim bytes, the token is unexpired and the kind
// claim matches.  Any failure yields nil.
func (m *Manager) verify(raw string, secret []byte, kind string) jwt.MapClaims {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return nil
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	if k, _ := claims["kind"].(string); k != kind {
		return nil
	}
	return claims
}

// subjectID extracts the numeric user ID from the sub claim.  JSON numbers
// decode as float64; string subjects are tolerated for forward compatibility.
func subjectID(claims jwt.MapClaims) (uint64, bool) {
	switch v := claims["sub"].(type) {
	case float64:
		if v < 1 {
			return 0, false
		}
		return uint64(v), true
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			return 0, false
		}
		return id, true
	}
	return 0, false
}
