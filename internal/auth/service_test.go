package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchroom/lunchroom/internal/model"
	"github.com/lunchroom/lunchroom/internal/repository"
)

// ----- fakes -----

type fakeUserStore struct {
	createFn         func(ctx context.Context, name, email, passwordHash, role string) (uint64, error)
	getByEmailFn     func(ctx context.Context, email string) (model.User, error)
	getByIDFn        func(ctx context.Context, id uint64) (model.User, error)
	updatePasswordFn func(ctx context.Context, id uint64, passwordHash string) error
}

func (f *fakeUserStore) Create(ctx context.Context, name, email, passwordHash, role string) (uint64, error) {
	if f.createFn != nil {
		return f.createFn(ctx, name, email, passwordHash, role)
	}
	return 1, nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return model.User{}, sql.ErrNoRows
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uint64) (model.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return model.User{}, sql.ErrNoRows
}

func (f *fakeUserStore) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	if f.updatePasswordFn != nil {
		return f.updatePasswordFn(ctx, id, passwordHash)
	}
	return nil
}

type fakeResetStore struct {
	storeFn   func(ctx context.Context, id string, userID uint64, expiresAt time.Time) error
	consumeFn func(ctx context.Context, id string) (uint64, error)
}

func (f *fakeResetStore) Store(ctx context.Context, id string, userID uint64, expiresAt time.Time) error {
	if f.storeFn != nil {
		return f.storeFn(ctx, id, userID, expiresAt)
	}
	return nil
}

func (f *fakeResetStore) Consume(ctx context.Context, id string) (uint64, error) {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, id)
	}
	return 0, repository.ErrResetNotFound
}

type fakeNotifier struct {
	calls  int
	user   model.PublicUser
	token  string
	expiry time.Time
}

func (f *fakeNotifier) PasswordResetRequested(_ context.Context, user model.PublicUser, token string, expiresAt time.Time) error {
	f.calls++
	f.user = user
	f.token = token
	f.expiry = expiresAt
	return nil
}

var _ UserStore = (*fakeUserStore)(nil)
var _ ResetStore = (*fakeResetStore)(nil)
var _ ResetNotifier = (*fakeNotifier)(nil)

func testHasher() Hasher { return Hasher{Cost: 4} }

func activeUser(t *testing.T, h Hasher, password string) model.User {
	t.Helper()
	hash, err := h.Hash(password)
	require.NoError(t, err)
	return model.User{
		ID:           10,
		Name:         "Dana",
		Email:        "dana@example.com",
		PasswordHash: hash,
		Role:         model.RoleUser,
		IsActive:     true,
	}
}

// ----- login -----

// Unknown email, wrong password and a deactivated account must be
// indistinguishable from the caller's side.
func TestLoginFailureModesAreUniform(t *testing.T) {
	h := testHasher()
	u := activeUser(t, h, "swordfish1")
	inactive := u
	inactive.IsActive = false

	cases := []struct {
		name  string
		store *fakeUserStore
		pass  string
	}{
		{"unknown email", &fakeUserStore{}, "swordfish1"},
		{"wrong password", &fakeUserStore{getByEmailFn: func(context.Context, string) (model.User, error) { return u, nil }}, "sw0rdfish1"},
		{"inactive account", &fakeUserStore{getByEmailFn: func(context.Context, string) (model.User, error) { return inactive, nil }}, "swordfish1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(tc.store, &fakeResetStore{}, h, testManager(), nil, nil)
			res, err := svc.Login(context.Background(), "dana@example.com", tc.pass)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestLoginRequiresBothFields(t *testing.T) {
	svc := NewService(&fakeUserStore{}, &fakeResetStore{}, testHasher(), testManager(), nil, nil)

	_, err := svc.Login(context.Background(), "", "")
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "email")
	assert.Contains(t, fe, "password")
}

func TestLoginIssuesVerifiableTokenPair(t *testing.T) {
	h := testHasher()
	u := activeUser(t, h, "swordfish1")
	m := testManager()
	svc := NewService(&fakeUserStore{
		getByEmailFn: func(_ context.Context, email string) (model.User, error) {
			assert.Equal(t, "dana@example.com", email)
			return u, nil
		},
	}, &fakeResetStore{}, h, m, nil, nil)

	// Email is normalized before lookup.
	res, err := svc.Login(context.Background(), "  DANA@Example.COM ", "swordfish1")
	require.NoError(t, err)

	assert.Equal(t, u.PublicView(), res.User)

	access := m.VerifyAccessToken(res.Access.Value)
	require.NotNil(t, access)
	assert.Equal(t, u.ID, access.UserID)
	assert.Equal(t, model.RoleUser, access.Role)

	refresh := m.VerifyRefreshToken(res.Refresh.Value)
	require.NotNil(t, refresh)
	assert.Equal(t, u.ID, refresh.UserID)
}

// ----- register -----

func TestRegisterValidation(t *testing.T) {
	svc := NewService(&fakeUserStore{}, &fakeResetStore{}, testHasher(), testManager(), nil, nil)

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:            " ",
		Email:           "not-an-email",
		Password:        "short",
		ConfirmPassword: "different",
	})
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "name")
	assert.Contains(t, fe, "email")
	assert.Contains(t, fe, "password")
	assert.Contains(t, fe, "confirm_password")
}

func TestRegisterAlwaysCreatesPlainUser(t *testing.T) {
	h := testHasher()
	var gotRole, gotHash string
	store := &fakeUserStore{
		createFn: func(_ context.Context, name, email, passwordHash, role string) (uint64, error) {
			gotRole = role
			gotHash = passwordHash
			assert.Equal(t, "Dana", name)
			assert.Equal(t, "dana@example.com", email)
			return 33, nil
		},
	}
	svc := NewService(store, &fakeResetStore{}, h, testManager(), nil, nil)

	u, err := svc.Register(context.Background(), RegisterInput{
		Name:            "Dana",
		Email:           "Dana@Example.com",
		Password:        "longenough",
		ConfirmPassword: "longenough",
	})
	require.NoError(t, err)

	assert.Equal(t, model.RoleUser, gotRole)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.Equal(t, uint64(33), u.ID)
	// The store receives a hash, never the plaintext.
	assert.NotEqual(t, "longenough", gotHash)
	assert.True(t, h.Verify("longenough", gotHash))
}

func TestRegisterSurfacesDuplicateEmail(t *testing.T) {
	store := &fakeUserStore{
		createFn: func(context.Context, string, string, string, string) (uint64, error) {
			return 0, repository.ErrEmailExists
		},
	}
	svc := NewService(store, &fakeResetStore{}, testHasher(), testManager(), nil, nil)

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:            "Dana",
		Email:           "dana@example.com",
		Password:        "longenough",
		ConfirmPassword: "longenough",
	})
	assert.ErrorIs(t, err, repository.ErrEmailExists)
}

// ----- password reset -----

func TestRequestResetIsSilentForUnknownEmail(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := NewService(&fakeUserStore{}, &fakeResetStore{}, testHasher(), testManager(), notifier, nil)

	err := svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	assert.NoError(t, err)
	assert.Zero(t, notifier.calls)
}

func TestRequestResetIsSilentForInactiveAccount(t *testing.T) {
	h := testHasher()
	u := activeUser(t, h, "swordfish1")
	u.IsActive = false
	notifier := &fakeNotifier{}
	svc := NewService(&fakeUserStore{
		getByEmailFn: func(context.Context, string) (model.User, error) { return u, nil },
	}, &fakeResetStore{}, h, testManager(), notifier, nil)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "dana@example.com"))
	assert.Zero(t, notifier.calls)
}

func TestRequestResetStoresJTIAndNotifies(t *testing.T) {
	h := testHasher()
	u := activeUser(t, h, "swordfish1")
	m := testManager()
	notifier := &fakeNotifier{}

	var storedID string
	var storedUser uint64
	resets := &fakeResetStore{
		storeFn: func(_ context.Context, id string, userID uint64, expiresAt time.Time) error {
			storedID = id
			storedUser = userID
			assert.WithinDuration(t, time.Now().UTC().Add(30*time.Minute), expiresAt, 5*time.Second)
			return nil
		},
	}
	svc := NewService(&fakeUserStore{
		getByEmailFn: func(context.Context, string) (model.User, error) { return u, nil },
	}, resets, h, m, notifier, nil)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "dana@example.com"))

	require.Equal(t, 1, notifier.calls)
	assert.Equal(t, u.PublicView(), notifier.user)
	assert.Equal(t, u.ID, storedUser)

	// The dispatched token is a reset token whose jti matches the stored row.
	claims := m.VerifyResetToken(notifier.token)
	require.NotNil(t, claims)
	assert.Equal(t, storedID, claims.TokenID)
	assert.Equal(t, u.ID, claims.UserID)
}

func TestResetPasswordConsumesTokenOnce(t *testing.T) {
	h := testHasher()
	m := testManager()

	tok, err := m.NewResetToken(10, "jti-once")
	require.NoError(t, err)

	consumed := false
	resets := &fakeResetStore{
		consumeFn: func(_ context.Context, id string) (uint64, error) {
			assert.Equal(t, "jti-once", id)
			if consumed {
				return 0, repository.ErrResetNotFound
			}
			consumed = true
			return 10, nil
		},
	}
	var newHash string
	users := &fakeUserStore{
		updatePasswordFn: func(_ context.Context, id uint64, passwordHash string) error {
			assert.Equal(t, uint64(10), id)
			newHash = passwordHash
			return nil
		},
	}
	svc := NewService(users, resets, h, m, nil, nil)

	require.NoError(t, svc.ResetPassword(context.Background(), tok.Value, "brand-new-pass"))
	assert.True(t, h.Verify("brand-new-pass", newHash))

	// Second redemption of the same token fails.
	err = svc.ResetPassword(context.Background(), tok.Value, "another-pass-1")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPasswordRejectsWrongKindToken(t *testing.T) {
	m := testManager()
	refresh, err := m.NewRefreshToken(10)
	require.NoError(t, err)

	svc := NewService(&fakeUserStore{}, &fakeResetStore{}, testHasher(), m, nil, nil)
	err = svc.ResetPassword(context.Background(), refresh.Value, "brand-new-pass")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPasswordRejectsSubjectMismatch(t *testing.T) {
	m := testManager()
	tok, err := m.NewResetToken(10, "jti-mismatch")
	require.NoError(t, err)

	resets := &fakeResetStore{
		consumeFn: func(context.Context, string) (uint64, error) { return 99, nil },
	}
	svc := NewService(&fakeUserStore{}, resets, testHasher(), m, nil, nil)

	err = svc.ResetPassword(context.Background(), tok.Value, "brand-new-pass")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

// ----- refresh -----

func TestRefreshReChecksUserLiveness(t *testing.T) {
	h := testHasher()
	m := testManager()
	u := activeUser(t, h, "swordfish1")

	tok, err := m.NewRefreshToken(u.ID)
	require.NoError(t, err)

	t.Run("active user gets a fresh access token", func(t *testing.T) {
		svc := NewService(&fakeUserStore{
			getByIDFn: func(_ context.Context, id uint64) (model.User, error) {
				assert.Equal(t, u.ID, id)
				return u, nil
			},
		}, &fakeResetStore{}, h, m, nil, nil)

		res, err := svc.Refresh(context.Background(), tok.Value)
		require.NoError(t, err)
		assert.Equal(t, u.PublicView(), res.User)

		claims := m.VerifyAccessToken(res.Access.Value)
		require.NotNil(t, claims)
		assert.Equal(t, u.ID, claims.UserID)
	})

	t.Run("deactivated user is rejected", func(t *testing.T) {
		gone := u
		gone.IsActive = false
		svc := NewService(&fakeUserStore{
			getByIDFn: func(context.Context, uint64) (model.User, error) { return gone, nil },
		}, &fakeResetStore{}, h, m, nil, nil)

		_, err := svc.Refresh(context.Background(), tok.Value)
		assert.ErrorIs(t, err, ErrUserInactiveOrMissing)
	})

	t.Run("deleted user is rejected", func(t *testing.T) {
		svc := NewService(&fakeUserStore{}, &fakeResetStore{}, h, m, nil, nil)
		_, err := svc.Refresh(context.Background(), tok.Value)
		assert.ErrorIs(t, err, ErrUserInactiveOrMissing)
	})

	t.Run("access token is not accepted as refresh token", func(t *testing.T) {
		access, err := m.NewAccessToken(u.ID, u.Role)
		require.NoError(t, err)
		svc := NewService(&fakeUserStore{}, &fakeResetStore{}, h, m, nil, nil)
		_, err = svc.Refresh(context.Background(), access.Value)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	})
}
