// ABOUTME: API key resolution against storage with revocation and expiry checks
// ABOUTME: Looks up candidates by prefix and bcrypt-verifies before building a principal

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hamco/hamco/internal/store"
)

// ErrKeyInvalid is returned for any candidate secret that does not
// resolve to an active, unexpired key: unknown, revoked, expired, or
// wrong hash. The sub-reason is logged, never returned, so callers
// cannot be used as an enumeration oracle.
var ErrKeyInvalid = errors.New("invalid api key")

// KeyResolver resolves a plaintext API key secret to a principal.
// Implementations: StoreResolver (authoritative) and keycache.Cache
// (decorator). Errors other than ErrKeyInvalid indicate storage
// trouble and must fail closed.
type KeyResolver interface {
	Resolve(ctx context.Context, secret string) (*Principal, error)
}

// KeyStore is the storage surface key resolution needs.
type KeyStore interface {
	ListActiveAPIKeysByPrefix(ctx context.Context, prefix string) ([]*store.APIKey, error)
}

// StoreResolver resolves API key secrets directly against storage.
// Every call costs a prefix lookup plus up to one bcrypt verification
// per candidate; wrap it in a keycache.Cache on hot paths.
type StoreResolver struct {
	keys   KeyStore
	logger *slog.Logger
	now    func() time.Time
}

// NewStoreResolver creates a storage-backed key resolver.
func NewStoreResolver(keys KeyStore) *StoreResolver {
	return &StoreResolver{
		keys:   keys,
		logger: slog.Default().With("component", "auth.resolver"),
		now:    time.Now,
	}
}

// WithClock overrides the resolver clock for expiry-boundary tests.
func (r *StoreResolver) WithClock(now func() time.Time) *StoreResolver {
	r.now = now
	return r
}

// Resolve validates a candidate secret. Malformed secrets are rejected
// before any storage work. Inactive and expired candidates are skipped
// without hashing. The first hash match wins.
func (r *StoreResolver) Resolve(ctx context.Context, secret string) (*Principal, error) {
	if !ValidSecretFormat(secret) {
		return nil, ErrKeyInvalid
	}

	candidates, err := r.keys.ListActiveAPIKeysByPrefix(ctx, KeyPrefix(secret))
	if err != nil {
		return nil, fmt.Errorf("listing api keys by prefix: %w", err)
	}

	now := r.now()
	for _, key := range candidates {
		if !key.Active {
			continue
		}
		// expires_at == now counts as expired: never valid at or after expiry
		if key.ExpiresAt != nil && !now.Before(*key.ExpiresAt) {
			continue
		}
		if !CheckSecret(secret, key.SecretHash) {
			continue
		}
		return principalForKey(key), nil
	}

	r.logger.Debug("api key resolution failed", "prefix", KeyPrefix(secret), "candidates", len(candidates))
	return nil, ErrKeyInvalid
}

// principalForKey builds the principal for a verified key record.
func principalForKey(key *store.APIKey) *Principal {
	roles := []string{RoleUser}
	if key.Elevated {
		roles = []string{RoleAdmin, RoleUser}
	}
	return &Principal{
		UserID: key.CreatedBy,
		Name:   key.Label,
		Roles:  roles,
		Method: MethodAPIKey,
	}
}
