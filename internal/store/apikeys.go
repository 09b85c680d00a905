// ABOUTME: API key persistence operations on the SQLite store
// ABOUTME: Prefix-indexed lookup, soft revocation, and expired key sweeps

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const apiKeyColumns = `id, label, secret_hash, prefix, elevated, expires_at, created_at, created_by, active`

// CreateAPIKey inserts a new API key record. Only the secret hash and
// display prefix are stored; the plaintext never reaches this layer.
func (s *SQLiteStore) CreateAPIKey(ctx context.Context, key *APIKey) error {
	if key.ID == "" {
		key.ID = uuid.New().String()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO api_keys (id, label, secret_hash, prefix, elevated, expires_at, created_at, created_by, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		key.ID,
		key.Label,
		key.SecretHash,
		key.Prefix,
		key.Elevated,
		nullTime(key.ExpiresAt),
		key.CreatedAt.UTC().Format(time.RFC3339),
		key.CreatedBy,
		key.Active,
	)
	if err != nil {
		return fmt.Errorf("inserting api key: %w", err)
	}

	s.logger.Debug("created api key", "id", key.ID, "label", key.Label, "prefix", key.Prefix)
	return nil
}

// GetAPIKey retrieves an API key by ID.
// Returns ErrAPIKeyNotFound if the key doesn't exist.
func (s *SQLiteStore) GetAPIKey(ctx context.Context, id string) (*APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = ?`

	key, err := scanAPIKey(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying api key: %w", err)
	}
	return key, nil
}

// ListAPIKeys returns all API keys ordered by creation time, newest first.
func (s *SQLiteStore) ListAPIKeys(ctx context.Context) ([]*APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys ORDER BY created_at DESC`
	return s.queryAPIKeys(ctx, query)
}

// ListActiveAPIKeysByPrefix returns the active keys sharing a display
// prefix. The prefix narrows the candidate set; callers must still
// hash-verify each candidate, since a prefix alone carries no authority.
func (s *SQLiteStore) ListActiveAPIKeysByPrefix(ctx context.Context, prefix string) ([]*APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE prefix = ? AND active = 1`
	return s.queryAPIKeys(ctx, query, prefix)
}

// queryAPIKeys runs a multi-row key query.
func (s *SQLiteStore) queryAPIKeys(ctx context.Context, query string, args ...any) ([]*APIKey, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	defer rows.Close()

	var keys []*APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning api key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// SetAPIKeyActive updates a key's active flag. Setting an already-set
// value succeeds (revocation is idempotent); an unknown id returns
// ErrAPIKeyNotFound so administrative callers can tell the difference.
func (s *SQLiteStore) SetAPIKeyActive(ctx context.Context, id string, active bool) error {
	result, err := s.db.ExecContext(ctx, "UPDATE api_keys SET active = ? WHERE id = ?", active, id)
	if err != nil {
		return fmt.Errorf("updating api key: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish "no such key" from "no change needed".
		if _, err := s.GetAPIKey(ctx, id); err != nil {
			return err
		}
	}

	s.logger.Debug("updated api key active flag", "id", id, "active", active)
	return nil
}

// DeactivateExpiredAPIKeys flips active to false for keys whose expiry
// is at or before now. Auth-time expiry checks remain authoritative;
// this is housekeeping so listings reflect reality.
func (s *SQLiteStore) DeactivateExpiredAPIKeys(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.UTC().Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx,
		"UPDATE api_keys SET active = 0 WHERE active = 1 AND expires_at IS NOT NULL AND expires_at <= ?",
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("deactivating expired api keys: %w", err)
	}
	return result.RowsAffected()
}

// scanAPIKey reads one api key row.
func scanAPIKey(row rowScanner) (*APIKey, error) {
	var key APIKey
	var expiresAt sql.NullString
	var createdAt string

	err := row.Scan(
		&key.ID,
		&key.Label,
		&key.SecretHash,
		&key.Prefix,
		&key.Elevated,
		&expiresAt,
		&createdAt,
		&key.CreatedBy,
		&key.Active,
	)
	if err != nil {
		return nil, err
	}

	if key.ExpiresAt, err = scanTime(expiresAt); err != nil {
		return nil, err
	}
	if key.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &key, nil
}
