// ABOUTME: API key management service: generation, listing, revocation, expiry sweeps
// ABOUTME: Returns the plaintext secret exactly once and evicts the key cache on revoke

package apikeys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hamco/hamco/internal/auth"
	"github.com/hamco/hamco/internal/store"
)

// Service errors
var (
	ErrLabelRequired = errors.New("label required")
	ErrNotElevated   = errors.New("admin role required to generate api keys")
	ErrKeyNotFound   = errors.New("api key not found")
)

// KeyStore is the storage surface key management needs.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, key *store.APIKey) error
	GetAPIKey(ctx context.Context, id string) (*store.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]*store.APIKey, error)
	SetAPIKeyActive(ctx context.Context, id string, active bool) error
	DeactivateExpiredAPIKeys(ctx context.Context, now time.Time) (int64, error)
}

// CacheInvalidator evicts cached resolutions for a prefix. The key
// validation cache implements it; a nil invalidator means revocations
// rely on TTL expiry alone.
type CacheInvalidator interface {
	InvalidatePrefix(prefix string)
}

// GeneratedKey is the one-time response to a generate call. Secret is
// the only copy of the plaintext that will ever exist; it never
// reappears in any read or list response.
type GeneratedKey struct {
	Secret    string     `json:"secret"`
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Prefix    string     `json:"prefix"`
	Elevated  bool       `json:"elevated"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// KeyInfo is the listing shape: everything about a key except its
// secret material.
type KeyInfo struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Prefix    string     `json:"prefix"`
	Elevated  bool       `json:"elevated"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	CreatedBy string     `json:"created_by"`
	Active    bool       `json:"active"`
}

// Service manages API key lifecycle.
type Service struct {
	keys   KeyStore
	cache  CacheInvalidator
	logger *slog.Logger
}

// New creates an API key service. cache may be nil.
func New(keys KeyStore, cache CacheInvalidator) *Service {
	return &Service{
		keys:   keys,
		cache:  cache,
		logger: slog.Default().With("component", "apikeys"),
	}
}

// Generate creates a new API key on behalf of an elevated principal and
// returns the plaintext secret exactly once. expiresAt may be nil for a
// non-expiring key.
func (s *Service) Generate(ctx context.Context, actor *auth.Principal, label string, elevated bool, expiresAt *time.Time) (*GeneratedKey, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, ErrNotElevated
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, ErrLabelRequired
	}

	secret, err := auth.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generating secret: %w", err)
	}

	hash, err := auth.HashSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("hashing secret: %w", err)
	}

	key := &store.APIKey{
		Label:      label,
		SecretHash: hash,
		Prefix:     auth.KeyPrefix(secret),
		Elevated:   elevated,
		ExpiresAt:  expiresAt,
		CreatedBy:  actor.UserID,
		Active:     true,
	}

	if err := s.keys.CreateAPIKey(ctx, key); err != nil {
		return nil, fmt.Errorf("storing api key: %w", err)
	}

	s.logger.Info("generated api key",
		"id", key.ID, "label", key.Label, "prefix", key.Prefix,
		"elevated", key.Elevated, "created_by", key.CreatedBy)

	return &GeneratedKey{
		Secret:    secret,
		ID:        key.ID,
		Label:     key.Label,
		Prefix:    key.Prefix,
		Elevated:  key.Elevated,
		ExpiresAt: key.ExpiresAt,
		CreatedAt: key.CreatedAt,
	}, nil
}

// Revoke soft-deletes a key by flipping its active flag off. Revoking
// an already-revoked key succeeds (idempotent); an unknown id returns
// ErrKeyNotFound, the one place a not-found is user-visible. The cache
// entry for the key's prefix is evicted eagerly.
func (s *Service) Revoke(ctx context.Context, id string) error {
	key, err := s.keys.GetAPIKey(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrAPIKeyNotFound) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("looking up api key: %w", err)
	}

	if err := s.keys.SetAPIKeyActive(ctx, id, false); err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}

	if s.cache != nil {
		s.cache.InvalidatePrefix(key.Prefix)
	}

	s.logger.Info("revoked api key", "id", id, "prefix", key.Prefix, "was_active", key.Active)
	return nil
}

// List returns all keys without secret material.
func (s *Service) List(ctx context.Context) ([]*KeyInfo, error) {
	keys, err := s.keys.ListAPIKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}

	infos := make([]*KeyInfo, 0, len(keys))
	for _, key := range keys {
		infos = append(infos, &KeyInfo{
			ID:        key.ID,
			Label:     key.Label,
			Prefix:    key.Prefix,
			Elevated:  key.Elevated,
			ExpiresAt: key.ExpiresAt,
			CreatedAt: key.CreatedAt,
			CreatedBy: key.CreatedBy,
			Active:    key.Active,
		})
	}
	return infos, nil
}

// SweepExpired deactivates keys whose expiry has passed. Resolution
// already refuses expired keys; the sweep keeps listings honest.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.keys.DeactivateExpiredAPIKeys(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("sweeping expired api keys: %w", err)
	}
	if n > 0 {
		s.logger.Info("deactivated expired api keys", "count", n)
	}
	return n, nil
}
