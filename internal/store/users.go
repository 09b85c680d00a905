// ABOUTME: User persistence operations on the SQLite store
// ABOUTME: Handles registration records, verification/reset tokens, and promotion

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const userColumns = `id, email, password_hash, admin, email_verified,
	verify_token_hash, verify_token_expires, reset_token_hash, reset_token_expires, created_at`

// CreateUser creates a new user. The email is normalized to lowercase.
// Returns ErrDuplicateEmail if the email is already registered.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = NormalizeEmail(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (id, email, password_hash, admin, email_verified,
			verify_token_hash, verify_token_expires, reset_token_hash, reset_token_expires, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Admin,
		user.EmailVerified,
		nullString(user.VerifyTokenHash),
		nullTime(user.VerifyTokenExpires),
		nullString(user.ResetTokenHash),
		nullTime(user.ResetTokenExpires),
		user.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Debug("created user", "id", user.ID, "email", user.Email)
	return nil
}

// GetUser retrieves a user by ID.
// Returns ErrUserNotFound if the user doesn't exist.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	return s.getUserWhere(ctx, "id = ?", id)
}

// GetUserByEmail retrieves a user by email. The lookup is normalized,
// so any casing of the same address finds the same account.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUserWhere(ctx, "email = ?", NormalizeEmail(email))
}

// GetUserByVerifyTokenHash retrieves a user by verification token hash.
func (s *SQLiteStore) GetUserByVerifyTokenHash(ctx context.Context, tokenHash string) (*User, error) {
	return s.getUserWhere(ctx, "verify_token_hash = ?", tokenHash)
}

// GetUserByResetTokenHash retrieves a user by password reset token hash.
func (s *SQLiteStore) GetUserByResetTokenHash(ctx context.Context, tokenHash string) (*User, error) {
	return s.getUserWhere(ctx, "reset_token_hash = ?", tokenHash)
}

// getUserWhere runs a single-row user lookup with the given predicate.
func (s *SQLiteStore) getUserWhere(ctx context.Context, where string, arg any) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	row := s.db.QueryRowContext(ctx, query, arg)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return user, nil
}

// SetUserAdmin updates a user's admin flag.
func (s *SQLiteStore) SetUserAdmin(ctx context.Context, id string, admin bool) error {
	return s.updateUser(ctx, id, "UPDATE users SET admin = ? WHERE id = ?", admin, id)
}

// SetUserPassword replaces a user's password hash and clears any
// outstanding reset token.
func (s *SQLiteStore) SetUserPassword(ctx context.Context, id, passwordHash string) error {
	return s.updateUser(ctx, id,
		"UPDATE users SET password_hash = ?, reset_token_hash = NULL, reset_token_expires = NULL WHERE id = ?",
		passwordHash, id)
}

// SetUserEmailVerified marks the email verified and clears the
// verification token.
func (s *SQLiteStore) SetUserEmailVerified(ctx context.Context, id string) error {
	return s.updateUser(ctx, id,
		"UPDATE users SET email_verified = 1, verify_token_hash = NULL, verify_token_expires = NULL WHERE id = ?",
		id)
}

// SetUserVerifyToken stores a hashed, expiring email verification token.
func (s *SQLiteStore) SetUserVerifyToken(ctx context.Context, id, tokenHash string, expires *time.Time) error {
	return s.updateUser(ctx, id,
		"UPDATE users SET verify_token_hash = ?, verify_token_expires = ? WHERE id = ?",
		nullString(tokenHash), nullTime(expires), id)
}

// SetUserResetToken stores a hashed, expiring password reset token.
func (s *SQLiteStore) SetUserResetToken(ctx context.Context, id, tokenHash string, expires *time.Time) error {
	return s.updateUser(ctx, id,
		"UPDATE users SET reset_token_hash = ?, reset_token_expires = ? WHERE id = ?",
		nullString(tokenHash), nullTime(expires), id)
}

// updateUser executes a single-user update, mapping zero rows to
// ErrUserNotFound.
func (s *SQLiteStore) updateUser(ctx context.Context, id, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	s.logger.Debug("updated user", "id", id)
	return nil
}

// PurgeExpiredUserTokens clears verification and reset token hashes
// whose expiry is at or before now. Returns the number of users touched.
func (s *SQLiteStore) PurgeExpiredUserTokens(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.UTC().Format(time.RFC3339)

	query := `
		UPDATE users SET
			verify_token_hash = CASE WHEN verify_token_expires <= ? THEN NULL ELSE verify_token_hash END,
			verify_token_expires = CASE WHEN verify_token_expires <= ? THEN NULL ELSE verify_token_expires END,
			reset_token_hash = CASE WHEN reset_token_expires <= ? THEN NULL ELSE reset_token_hash END,
			reset_token_expires = CASE WHEN reset_token_expires <= ? THEN NULL ELSE reset_token_expires END
		WHERE verify_token_expires <= ? OR reset_token_expires <= ?
	`

	result, err := s.db.ExecContext(ctx, query, cutoff, cutoff, cutoff, cutoff, cutoff, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging expired user tokens: %w", err)
	}
	return result.RowsAffected()
}

// ListUsers returns all users ordered by creation time.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser reads one user row.
func scanUser(row rowScanner) (*User, error) {
	var user User
	var verifyHash, resetHash sql.NullString
	var verifyExpires, resetExpires sql.NullString
	var createdAt string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Admin,
		&user.EmailVerified,
		&verifyHash,
		&verifyExpires,
		&resetHash,
		&resetExpires,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	user.VerifyTokenHash = verifyHash.String
	user.ResetTokenHash = resetHash.String

	if user.VerifyTokenExpires, err = scanTime(verifyExpires); err != nil {
		return nil, err
	}
	if user.ResetTokenExpires, err = scanTime(resetExpires); err != nil {
		return nil, err
	}
	if user.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &user, nil
}

// NormalizeEmail lowercases and trims an email address so lookups and
// uniqueness behave the same regardless of the caller's casing.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
