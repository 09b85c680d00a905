// ABOUTME: Unit tests for registration, login, verification, and password reset
// ABOUTME: Uses an in-memory user store and a mailer that captures tokens

package accounts

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamco/hamco/internal/auth"
	"github.com/hamco/hamco/internal/config"
	"github.com/hamco/hamco/internal/store"
)

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	users map[string]*store.User // by id
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*store.User{}}
}

func (f *fakeUserStore) CreateUser(_ context.Context, user *store.User) error {
	for _, u := range f.users {
		if u.Email == store.NormalizeEmail(user.Email) {
			return store.ErrDuplicateEmail
		}
	}
	user.ID = uuid.New().String()
	user.Email = store.NormalizeEmail(user.Email)
	user.CreatedAt = time.Now()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) GetUser(_ context.Context, id string) (*store.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*store.User, error) {
	email = store.NormalizeEmail(email)
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUserStore) GetUserByVerifyTokenHash(_ context.Context, tokenHash string) (*store.User, error) {
	for _, u := range f.users {
		if u.VerifyTokenHash == tokenHash && tokenHash != "" {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUserStore) GetUserByResetTokenHash(_ context.Context, tokenHash string) (*store.User, error) {
	for _, u := range f.users {
		if u.ResetTokenHash == tokenHash && tokenHash != "" {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUserStore) SetUserPassword(_ context.Context, id, passwordHash string) error {
	u, ok := f.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetTokenHash = ""
	u.ResetTokenExpires = nil
	return nil
}

func (f *fakeUserStore) SetUserEmailVerified(_ context.Context, id string) error {
	u, ok := f.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	u.EmailVerified = true
	u.VerifyTokenHash = ""
	u.VerifyTokenExpires = nil
	return nil
}

func (f *fakeUserStore) SetUserVerifyToken(_ context.Context, id, tokenHash string, expires *time.Time) error {
	u, ok := f.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	u.VerifyTokenHash = tokenHash
	u.VerifyTokenExpires = expires
	return nil
}

func (f *fakeUserStore) SetUserResetToken(_ context.Context, id, tokenHash string, expires *time.Time) error {
	u, ok := f.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	u.ResetTokenHash = tokenHash
	u.ResetTokenExpires = expires
	return nil
}

// captureMailer records the plaintext tokens handed to it.
type captureMailer struct {
	verifyTokens map[string]string // email -> token
	resetTokens  map[string]string
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{verifyTokens: map[string]string{}, resetTokens: map[string]string{}}
}

func (m *captureMailer) SendVerification(_ context.Context, email, token string) error {
	m.verifyTokens[email] = token
	return nil
}

func (m *captureMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.resetTokens[email] = token
	return nil
}

type fixture struct {
	users  *fakeUserStore
	mailer *captureMailer
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:  newFakeUserStore(),
		mailer: newCaptureMailer(),
	}
	tokens := auth.NewTokenService(config.AuthConfig{
		JWTSecret:     "test-secret-at-least-32-bytes-long!!",
		Issuer:        "hamco-test",
		Audience:      "hamco-test-clients",
		TokenLifetime: time.Hour,
	})
	f.svc = New(f.users, tokens, f.mailer)
	f.svc.logger = slog.New(slog.DiscardHandler)
	return f
}

func TestRegisterLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, "Alice@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.Admin)
	assert.False(t, user.EmailVerified)
	assert.NotEqual(t, "password123", user.PasswordHash)

	// A verification token went out, and its hash (not the token) is stored
	token := f.mailer.verifyTokens["alice@example.com"]
	require.NotEmpty(t, token)
	assert.NotEqual(t, token, user.VerifyTokenHash)

	jwt, err := f.svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, jwt)
}

func TestRegister_WeakPassword(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), "a@example.com", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@example.com", "password123")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "A@Example.COM", "password456")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@example.com", "password123")
	require.NoError(t, err)

	// Wrong password and unknown email must be indistinguishable
	_, err = f.svc.Login(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, "a@example.com", "password123")
	require.NoError(t, err)

	token := f.mailer.verifyTokens["a@example.com"]
	require.NoError(t, f.svc.VerifyEmail(ctx, token))

	stored, err := f.users.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)
	assert.Empty(t, stored.VerifyTokenHash, "verification token must be one-time")

	// The consumed token no longer works
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, token), ErrTokenInvalid)
}

func TestVerifyEmail_BadTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@example.com", "password123")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, "bogus"), ErrTokenInvalid)

	// Expired token
	f.svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	token := f.mailer.verifyTokens["a@example.com"]
	assert.ErrorIs(t, f.svc.VerifyEmail(ctx, token), ErrTokenInvalid)
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "a@example.com"))
	token := f.mailer.resetTokens["a@example.com"]
	require.NotEmpty(t, token)

	require.NoError(t, f.svc.ResetPassword(ctx, token, "new-password-99"))

	// New password works, old one does not
	_, err = f.svc.Login(ctx, "a@example.com", "new-password-99")
	assert.NoError(t, err)
	_, err = f.svc.Login(ctx, "a@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// The reset token is one-time
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, token, "another-password"), ErrTokenInvalid)
}

func TestRequestPasswordReset_UnknownEmailSilent(t *testing.T) {
	f := newFixture(t)

	// No error and no mail: unknown emails are not an oracle
	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "nobody@example.com"))
	assert.Empty(t, f.mailer.resetTokens)
}

func TestResetPassword_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "a@example.com", "password123")
	require.NoError(t, err)
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "a@example.com"))
	token := f.mailer.resetTokens["a@example.com"]

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, token, "new-password-99"), ErrTokenInvalid)
}

func TestResetPassword_Weak(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.svc.ResetPassword(context.Background(), "whatever", "short"), ErrWeakPassword)
}
