// ABOUTME: Account service: registration, login, email verification, password reset
// ABOUTME: Issues JWTs on login and hands one-time tokens to the mail collaborator

package accounts

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hamco/hamco/internal/auth"
	"github.com/hamco/hamco/internal/store"
)

// Service errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrTokenInvalid       = errors.New("invalid or expired token")
)

const (
	verifyTokenLifetime = 24 * time.Hour
	resetTokenLifetime  = time.Hour
	minPasswordLength   = 8
)

// Mailer is the transactional email collaborator. Implementations send
// the plaintext one-time tokens; the service persists only hashes.
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer is a development Mailer that logs instead of sending.
type LogMailer struct {
	Logger *slog.Logger
}

// SendVerification logs the verification token.
func (m *LogMailer) SendVerification(_ context.Context, email, token string) error {
	m.Logger.Info("verification email (not sent, log mailer)", "email", email, "token", token)
	return nil
}

// SendPasswordReset logs the reset token.
func (m *LogMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.Logger.Info("password reset email (not sent, log mailer)", "email", email, "token", token)
	return nil
}

// UserStore is the storage surface the account service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *store.User) error
	GetUser(ctx context.Context, id string) (*store.User, error)
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
	GetUserByVerifyTokenHash(ctx context.Context, tokenHash string) (*store.User, error)
	GetUserByResetTokenHash(ctx context.Context, tokenHash string) (*store.User, error)
	SetUserPassword(ctx context.Context, id, passwordHash string) error
	SetUserEmailVerified(ctx context.Context, id string) error
	SetUserVerifyToken(ctx context.Context, id, tokenHash string, expires *time.Time) error
	SetUserResetToken(ctx context.Context, id, tokenHash string, expires *time.Time) error
}

// Service implements account lifecycle flows.
type Service struct {
	users  UserStore
	tokens *auth.TokenService
	mailer Mailer
	logger *slog.Logger
	now    func() time.Time
}

// New creates an account service.
func New(users UserStore, tokens *auth.TokenService, mailer Mailer) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		mailer: mailer,
		logger: slog.Default().With("component", "accounts"),
		now:    time.Now,
	}
}

// Register creates a new user and sends a verification token. The
// password is hashed before anything persists; the verification token
// is stored hashed with a 24h expiry.
func (s *Service) Register(ctx context.Context, email, password string) (*store.User, error) {
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	token, tokenHash, err := newOneTimeToken()
	if err != nil {
		return nil, err
	}
	expires := s.now().Add(verifyTokenLifetime)

	user := &store.User{
		Email:              email,
		PasswordHash:       passwordHash,
		VerifyTokenHash:    tokenHash,
		VerifyTokenExpires: &expires,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	if err := s.mailer.SendVerification(ctx, user.Email, token); err != nil {
		// The account exists either way; verification can be re-requested.
		s.logger.Error("sending verification email failed", "email", user.Email, "error", err)
	}

	s.logger.Info("registered user", "id", user.ID, "email", user.Email)
	return user, nil
}

// Login verifies credentials and issues a JWT. Unknown emails burn a
// dummy bcrypt comparison so timing does not reveal registration state,
// and both failure modes return the same error.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			auth.DummyPasswordCheck()
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("looking up user: %w", err)
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}

	s.logger.Info("user logged in", "id", user.ID)
	return token, nil
}

// VerifyEmail consumes a verification token and marks the email
// verified. Expired or unknown tokens fail uniformly.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.users.GetUserByVerifyTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("looking up verification token: %w", err)
	}

	if user.VerifyTokenExpires == nil || !s.now().Before(*user.VerifyTokenExpires) {
		return ErrTokenInvalid
	}

	if err := s.users.SetUserEmailVerified(ctx, user.ID); err != nil {
		return fmt.Errorf("marking email verified: %w", err)
	}

	s.logger.Info("email verified", "id", user.ID)
	return nil
}

// RequestPasswordReset issues a reset token for the account, if one
// exists. Unknown emails succeed silently to prevent enumeration.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	token, tokenHash, err := newOneTimeToken()
	if err != nil {
		return err
	}
	expires := s.now().Add(resetTokenLifetime)

	if err := s.users.SetUserResetToken(ctx, user.ID, tokenHash, &expires); err != nil {
		return fmt.Errorf("storing reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		s.logger.Error("sending reset email failed", "email", user.Email, "error", err)
	}
	return nil
}

// ResetPassword consumes a reset token and replaces the password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	user, err := s.users.GetUserByResetTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("looking up reset token: %w", err)
	}

	if user.ResetTokenExpires == nil || !s.now().Before(*user.ResetTokenExpires) {
		return ErrTokenInvalid
	}

	passwordHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	// SetUserPassword also clears the reset token, making it one-time.
	if err := s.users.SetUserPassword(ctx, user.ID, passwordHash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	s.logger.Info("password reset", "id", user.ID)
	return nil
}

// newOneTimeToken returns a random URL-safe token and its storage hash.
func newOneTimeToken() (token, tokenHash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("reading random bytes: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(buf)
	return token, hashToken(token), nil
}

// hashToken derives the deterministic storage hash for a one-time
// token. SHA-256 rather than bcrypt: the token is itself high-entropy,
// and lookup needs a deterministic digest.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
