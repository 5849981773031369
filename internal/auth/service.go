package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lunchroom/lunchroom/internal/model"
	"github.com/lunchroom/lunchroom/internal/repository"
)

// Sentinel errors surfaced by the service.  Handlers map these onto HTTP
// statuses; anything else is an internal error and becomes a generic 500.
var (
	// ErrInvalidCredentials covers unknown email, inactive account and
	// wrong password alike, so a login response never reveals which of
	// them failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken covers a missing, malformed or expired
	// refresh token.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrUserInactiveOrMissing is returned when a structurally valid
	// refresh token refers to a user that was deactivated or removed
	// after the token was issued.
	ErrUserInactiveOrMissing = errors.New("user inactive or missing")
	// ErrInvalidResetToken covers bad signature, expiry and re-use of a
	// password-reset token.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// FieldErrors carries per-field validation messages.  It implements error so
// services can return it through the normal error path.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// UserStore is the persistence surface the auth flows need.  It is satisfied
// by *repository.UserRepo.  Lookup misses are reported as sql.ErrNoRows;
// Create returns repository.ErrEmailExists on a duplicate email.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash, role string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
}

// ResetStore persists single-use password-reset grants keyed by the token's
// jti.  Consume must atomically mark the row used and report
// repository.ErrResetNotFound when the row is absent, expired or already
// consumed.
type ResetStore interface {
	Store(ctx context.Context, id string, userID uint64, expiresAt time.Time) error
	Consume(ctx context.Context, id string) (uint64, error)
}

// ResetNotifier dispatches a reset token out-of-band (the mailer listens on
// the broker).  Delivery is best effort; failures never surface to the
// requesting client.
type ResetNotifier interface {
	PasswordResetRequested(ctx context.Context, user model.PublicUser, token string, expiresAt time.Time) error
}

// Service orchestrates login, registration and password-reset flows on top
// of the Hasher, the token Manager and the stores.
type Service struct {
	users  UserStore
	resets ResetStore
	hasher Hasher
	tokens *Manager
	notify ResetNotifier
	log    *zap.Logger
}

// NewService wires the auth service.  notify may be nil, in which case reset
// requests are only recorded, not dispatched.
func NewService(users UserStore, resets ResetStore, hasher Hasher, tokens *Manager, notify ResetNotifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{users: users, resets: resets, hasher: hasher, tokens: tokens, notify: notify, log: log}
}

// LoginResult carries a sanitized user view and a fresh token pair.
type LoginResult struct {
	User    model.PublicUser
	Access  Token
	Refresh Token
}

// Login verifies credentials and issues an access + refresh token pair.
// Unknown email, deactivated account and password mismatch all return
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	fe := FieldErrors{}
	if email == "" {
		fe["email"] = "email is required"
	}
	if password == "" {
		fe["password"] = "password is required"
	}
	if len(fe) > 0 {
		return nil, fe
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.IsActive || !s.hasher.Verify(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	access, err := s.tokens.NewAccessToken(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.NewRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u.PublicView(), Access: access, Refresh: refresh}, nil
}

// RegisterInput is the payload accepted by Register.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Register validates the input and persists a new user with role USER.
// Registration does not establish a session; the caller signs in separately.
func (s *Service) Register(ctx context.Context, in RegisterInput) (model.PublicUser, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	fe := FieldErrors{}
	if name == "" {
		fe["name"] = "name is required"
	}
	if email == "" {
		fe["email"] = "email is required"
	} else if _, err := mail.ParseAddress(email); err != nil {
		fe["email"] = "email is not valid"
	}
	if in.Password == "" {
		fe["password"] = "password is required"
	} else if len(in.Password) < 8 {
		fe["password"] = "password must be at least 8 characters"
	}
	if in.Password != in.ConfirmPassword {
		fe["confirm_password"] = "passwords do not match"
	}
	if len(fe) > 0 {
		return model.PublicUser{}, fe
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return model.PublicUser{}, err
	}
	id, err := s.users.Create(ctx, name, email, hash, model.RoleUser)
	if err != nil {
		return model.PublicUser{}, err
	}
	return model.PublicUser{ID: id, Name: name, Email: email, Role: model.RoleUser, IsActive: true}, nil
}

// RequestPasswordReset issues a single-use reset token for the account and
// hands it to the notifier.  The outcome is identical whether or not the
// email belongs to a known account.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	if !u.IsActive {
		return nil
	}

	jti := uuid.NewString()
	tok, err := s.tokens.NewResetToken(u.ID, jti)
	if err != nil {
		return err
	}
	if err := s.resets.Store(ctx, jti, u.ID, tok.Exp); err != nil {
		return err
	}
	if s.notify != nil {
		if err := s.notify.PasswordResetRequested(ctx, u.PublicView(), tok.Value, tok.Exp); err != nil {
			s.log.Warn("password reset dispatch failed", zap.Uint64("user_id", u.ID), zap.Error(err))
		}
	}
	return nil
}

// ResetPassword redeems a reset token and stores the re-hashed password.
// The token's jti is consumed first, so a token can succeed at most once.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	fe := FieldErrors{}
	if strings.TrimSpace(rawToken) == "" {
		fe["token"] = "token is required"
	}
	if newPassword == "" {
		fe["new_password"] = "new password is required"
	} else if len(newPassword) < 8 {
		fe["new_password"] = "password must be at least 8 characters"
	}
	if len(fe) > 0 {
		return fe
	}

	claims := s.tokens.VerifyResetToken(rawToken)
	if claims == nil {
		return ErrInvalidResetToken
	}
	userID, err := s.resets.Consume(ctx, claims.TokenID)
	if err != nil {
		if errors.Is(err, repository.ErrResetNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if userID != claims.UserID {
		return ErrInvalidResetToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

// RefreshResult carries the re-checked user and a fresh access token.  The
// refresh token itself is not rotated.
type RefreshResult struct {
	User   model.PublicUser
	Access Token
}

// Refresh redeems a refresh token for a new access token.  The user record
// is re-fetched so a deactivation after token issuance still locks the
// account out.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (*RefreshResult, error) {
	claims := s.tokens.VerifyRefreshToken(rawRefresh)
	if claims == nil {
		return nil, ErrInvalidRefreshToken
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserInactiveOrMissing
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrUserInactiveOrMissing
	}
	access, err := s.tokens.NewAccessToken(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return &RefreshResult{User: u.PublicView(), Access: access}, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
