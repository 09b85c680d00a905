// ABOUTME: Store interface and data types for hamco persistence
// ABOUTME: Defines User, APIKey, Note, Slogan structs and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrUserNotFound is returned when a user doesn't exist
var ErrUserNotFound = errors.New("user not found")

// ErrAPIKeyNotFound is returned when an API key doesn't exist
var ErrAPIKeyNotFound = errors.New("api key not found")

// ErrNoteNotFound is returned when a note doesn't exist
var ErrNoteNotFound = errors.New("note not found")

// ErrDuplicateEmail is returned when registering an email that is already taken
var ErrDuplicateEmail = errors.New("email already registered")

// ErrDuplicateSlug is returned when creating a note with a slug that already exists
var ErrDuplicateSlug = errors.New("slug already exists")

// User represents a human account. The plaintext password never
// persists; only its bcrypt hash does. Role membership is derived from
// the Admin flag at claim-construction time, not stored as a list.
type User struct {
	ID            string
	Email         string // unique, lowercase-normalized login handle
	PasswordHash  string
	Admin         bool
	EmailVerified bool

	// Verification and reset tokens are stored as SHA-256 hashes with
	// absolute expiry; the plaintext goes out by email exactly once.
	VerifyTokenHash    string
	VerifyTokenExpires *time.Time
	ResetTokenHash     string
	ResetTokenExpires  *time.Time

	CreatedAt time.Time
}

// APIKey represents a long-lived secret for automated callers. The
// plaintext secret exists only transiently at generation time; Prefix
// is its fixed-size leading slice kept for display and candidate
// lookup. Revocation flips Active to false and is terminal.
type APIKey struct {
	ID         string
	Label      string
	SecretHash string
	Prefix     string
	Elevated   bool // admin-equivalent when true
	ExpiresAt  *time.Time
	CreatedAt  time.Time
	CreatedBy  string // user id of the creating credential
	Active     bool
}

// Note represents a blog note. HTML is the rendered markdown body,
// produced at write time. Notes are serialized directly in API
// responses, hence the json tags.
type Note struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	HTML      string    `json:"html"`
	AuthorID  string    `json:"author_id"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Slogan is a short tagline shown on the home page.
type Slogan struct {
	ID        string
	Text      string
	CreatedAt time.Time
}

// Store defines the interface for hamco persistence
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByVerifyTokenHash(ctx context.Context, tokenHash string) (*User, error)
	GetUserByResetTokenHash(ctx context.Context, tokenHash string) (*User, error)
	SetUserAdmin(ctx context.Context, id string, admin bool) error
	SetUserPassword(ctx context.Context, id, passwordHash string) error
	SetUserEmailVerified(ctx context.Context, id string) error
	SetUserVerifyToken(ctx context.Context, id, tokenHash string, expires *time.Time) error
	SetUserResetToken(ctx context.Context, id, tokenHash string, expires *time.Time) error
	PurgeExpiredUserTokens(ctx context.Context, now time.Time) (int64, error)
	ListUsers(ctx context.Context) ([]*User, error)

	// API keys
	CreateAPIKey(ctx context.Context, key *APIKey) error
	GetAPIKey(ctx context.Context, id string) (*APIKey, error)
	ListAPIKeys(ctx context.Context) ([]*APIKey, error)
	ListActiveAPIKeysByPrefix(ctx context.Context, prefix string) ([]*APIKey, error)
	SetAPIKeyActive(ctx context.Context, id string, active bool) error
	DeactivateExpiredAPIKeys(ctx context.Context, now time.Time) (int64, error)

	// Notes
	CreateNote(ctx context.Context, note *Note) error
	GetNote(ctx context.Context, id string) (*Note, error)
	GetNoteBySlug(ctx context.Context, slug string) (*Note, error)
	ListNotes(ctx context.Context, publishedOnly bool, limit int) ([]*Note, error)
	UpdateNote(ctx context.Context, note *Note) error
	DeleteNote(ctx context.Context, id string) error
	SlugExists(ctx context.Context, slug string) (bool, error)

	// Slogans
	CreateSlogan(ctx context.Context, slogan *Slogan) error
	RandomSlogan(ctx context.Context) (*Slogan, error)

	// Close releases database resources
	Close() error
}
