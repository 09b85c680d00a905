// ABOUTME: Unit tests for the API key validation cache
// ABOUTME: Covers hit/miss accounting, TTL expiry, eager invalidation, and eviction

package keycache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamco/hamco/internal/auth"
)

// countingResolver returns canned results per secret and counts how
// often the cache falls through to it.
type countingResolver struct {
	mu      sync.Mutex
	results map[string]*auth.Principal
	err     error
	calls   int
}

func (r *countingResolver) Resolve(_ context.Context, secret string) (*auth.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.results[secret]
	if !ok {
		return nil, auth.ErrKeyInvalid
	}
	return p, nil
}

func (r *countingResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func testSecret(t *testing.T) string {
	t.Helper()
	secret, err := auth.GenerateSecret()
	require.NoError(t, err)
	return secret
}

func TestCache_HitSkipsInnerResolver(t *testing.T) {
	secret := testSecret(t)
	inner := &countingResolver{results: map[string]*auth.Principal{
		secret: {UserID: "u1", Roles: []string{auth.RoleUser}, Method: auth.MethodAPIKey},
	}}
	cache := New(inner, time.Minute, 100)
	defer cache.Close()

	ctx := context.Background()

	p1, err := cache.Resolve(ctx, secret)
	require.NoError(t, err)
	p2, err := cache.Resolve(ctx, secret)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.callCount(), "second resolve must be served from cache")
	assert.Equal(t, p1.UserID, p2.UserID)
	assert.Equal(t, 1, cache.Len())
}

func TestCache_NegativeCaching(t *testing.T) {
	secret := testSecret(t)
	inner := &countingResolver{results: map[string]*auth.Principal{}}
	cache := New(inner, time.Minute, 100)
	defer cache.Close()

	ctx := context.Background()

	_, err := cache.Resolve(ctx, secret)
	require.ErrorIs(t, err, auth.ErrKeyInvalid)
	_, err = cache.Resolve(ctx, secret)
	require.ErrorIs(t, err, auth.ErrKeyInvalid)

	assert.Equal(t, 1, inner.callCount(), "negative result must be cached too")
}

func TestCache_TTLExpiry(t *testing.T) {
	secret := testSecret(t)
	inner := &countingResolver{results: map[string]*auth.Principal{
		secret: {UserID: "u1", Roles: []string{auth.RoleUser}},
	}}
	cache := New(inner, 50*time.Millisecond, 100)
	defer cache.Close()

	ctx := context.Background()

	_, err := cache.Resolve(ctx, secret)
	require.NoError(t, err)

	time.Sleep(70 * time.Millisecond)

	_, err = cache.Resolve(ctx, secret)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.callCount(), "expired entry must fall through to the inner resolver")
}

func TestCache_InvalidatePrefix(t *testing.T) {
	secret := testSecret(t)
	inner := &countingResolver{results: map[string]*auth.Principal{
		secret: {UserID: "u1", Roles: []string{auth.RoleUser}},
	}}
	cache := New(inner, time.Minute, 100)
	defer cache.Close()

	ctx := context.Background()

	_, err := cache.Resolve(ctx, secret)
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	// Simulate revocation: the store stops recognizing the key, and
	// the revocation path invalidates the cache.
	inner.mu.Lock()
	delete(inner.results, secret)
	inner.mu.Unlock()
	cache.InvalidatePrefix(auth.KeyPrefix(secret))

	assert.Equal(t, 0, cache.Len())

	_, err = cache.Resolve(ctx, secret)
	assert.ErrorIs(t, err, auth.ErrKeyInvalid, "revoked key must not authenticate from cache")
}

func TestCache_InvalidatePrefixLeavesOthers(t *testing.T) {
	s1, s2 := testSecret(t), testSecret(t)
	inner := &countingResolver{results: map[string]*auth.Principal{
		s1: {UserID: "u1", Roles: []string{auth.RoleUser}},
		s2: {UserID: "u2", Roles: []string{auth.RoleUser}},
	}}
	cache := New(inner, time.Minute, 100)
	defer cache.Close()

	ctx := context.Background()
	_, err := cache.Resolve(ctx, s1)
	require.NoError(t, err)
	_, err = cache.Resolve(ctx, s2)
	require.NoError(t, err)
	require.Equal(t, 2, cache.Len())

	cache.InvalidatePrefix(auth.KeyPrefix(s1))

	assert.Equal(t, 1, cache.Len())

	// s2 still served from cache
	_, err = cache.Resolve(ctx, s2)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.callCount())
}

func TestCache_MalformedSecretNotCached(t *testing.T) {
	inner := &countingResolver{results: map[string]*auth.Principal{}}
	cache := New(inner, time.Minute, 100)
	defer cache.Close()

	_, err := cache.Resolve(context.Background(), "not-a-key")
	require.ErrorIs(t, err, auth.ErrKeyInvalid)

	assert.Equal(t, 0, inner.callCount(), "malformed secret must not reach the inner resolver")
	assert.Equal(t, 0, cache.Len(), "malformed secret must not pollute the cache")
}

func TestCache_StorageErrorNotCached(t *testing.T) {
	secret := testSecret(t)
	inner := &countingResolver{err: errors.New("database is locked")}
	cache := New(inner, time.Minute, 100)
	defer cache.Close()

	ctx := context.Background()

	_, err := cache.Resolve(ctx, secret)
	require.Error(t, err)
	require.NotErrorIs(t, err, auth.ErrKeyInvalid)
	assert.Equal(t, 0, cache.Len(), "storage failures must never be cached")

	// Storage recovers; the next resolve succeeds
	inner.mu.Lock()
	inner.err = nil
	inner.results = map[string]*auth.Principal{secret: {UserID: "u1", Roles: []string{auth.RoleUser}}}
	inner.mu.Unlock()

	p, err := cache.Resolve(ctx, secret)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
}

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	inner := &countingResolver{results: map[string]*auth.Principal{}}

	secrets := make([]string, 4)
	for i := range secrets {
		secrets[i] = testSecret(t)
		inner.results[secrets[i]] = &auth.Principal{UserID: fmt.Sprintf("u%d", i), Roles: []string{auth.RoleUser}}
	}

	cache := New(inner, time.Minute, 3)
	defer cache.Close()

	ctx := context.Background()
	for _, s := range secrets {
		_, err := cache.Resolve(ctx, s)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, cache.Len())

	// The oldest entry was evicted, so it re-resolves
	before := inner.callCount()
	_, err := cache.Resolve(ctx, secrets[0])
	require.NoError(t, err)
	assert.Equal(t, before+1, inner.callCount())

	// The newest survived
	before = inner.callCount()
	_, err = cache.Resolve(ctx, secrets[3])
	require.NoError(t, err)
	assert.Equal(t, before, inner.callCount())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	secret := testSecret(t)
	inner := &countingResolver{results: map[string]*auth.Principal{
		secret: {UserID: "u1", Roles: []string{auth.RoleUser}},
	}}
	cache := New(inner, time.Minute, 100)
	defer cache.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := cache.Resolve(context.Background(), secret)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cache.Len())
}

func TestCache_CloseIdempotent(t *testing.T) {
	cache := New(&countingResolver{}, time.Minute, 10)
	cache.Close()
	cache.Close() // must not panic
}
