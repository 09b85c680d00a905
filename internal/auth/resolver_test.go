// ABOUTME: Unit tests for storage-backed API key resolution
// ABOUTME: Covers revocation, the inclusive expiry boundary, and storage failures

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hamco/hamco/internal/store"
)

// fakeKeyStore serves canned key records and counts lookups, so tests
// can assert that certain paths never touch storage.
type fakeKeyStore struct {
	keys  map[string][]*store.APIKey
	err   error
	calls int
}

func (f *fakeKeyStore) ListActiveAPIKeysByPrefix(_ context.Context, prefix string) ([]*store.APIKey, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.keys[prefix], nil
}

// newStoredKey generates a secret and the matching stored record.
func newStoredKey(t *testing.T, elevated bool) (string, *store.APIKey) {
	t.Helper()

	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	hash, err := HashSecret(secret)
	if err != nil {
		t.Fatalf("HashSecret() error = %v", err)
	}

	return secret, &store.APIKey{
		ID:         "key-1",
		Label:      "ci-bot",
		SecretHash: hash,
		Prefix:     KeyPrefix(secret),
		Elevated:   elevated,
		CreatedBy:  "admin-1",
		Active:     true,
	}
}

func TestStoreResolver_ValidKey(t *testing.T) {
	secret, key := newStoredKey(t, false)
	fs := &fakeKeyStore{keys: map[string][]*store.APIKey{key.Prefix: {key}}}
	r := NewStoreResolver(fs)

	principal, err := r.Resolve(context.Background(), secret)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if principal.Method != MethodAPIKey {
		t.Errorf("Method = %q, want %q", principal.Method, MethodAPIKey)
	}
	if principal.UserID != "admin-1" {
		t.Errorf("UserID = %q, want creator id", principal.UserID)
	}
	if principal.Name != "ci-bot" {
		t.Errorf("Name = %q, want key label", principal.Name)
	}
	if principal.IsAdmin() {
		t.Error("non-elevated key produced an Admin principal")
	}
	if !principal.HasRole(RoleUser) {
		t.Error("principal missing the User role")
	}
}

func TestStoreResolver_ElevatedKey(t *testing.T) {
	secret, key := newStoredKey(t, true)
	fs := &fakeKeyStore{keys: map[string][]*store.APIKey{key.Prefix: {key}}}
	r := NewStoreResolver(fs)

	principal, err := r.Resolve(context.Background(), secret)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !principal.IsAdmin() || !principal.HasRole(RoleUser) {
		t.Errorf("elevated key roles = %v, want Admin and User", principal.Roles)
	}
}

func TestStoreResolver_MalformedSkipsStorage(t *testing.T) {
	fs := &fakeKeyStore{}
	r := NewStoreResolver(fs)

	for _, secret := range []string{"", "short", "wrong_prefix_aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"} {
		if _, err := r.Resolve(context.Background(), secret); !errors.Is(err, ErrKeyInvalid) {
			t.Errorf("Resolve(%q) error = %v, want ErrKeyInvalid", secret, err)
		}
	}

	if fs.calls != 0 {
		t.Errorf("malformed secrets caused %d storage lookups, want 0", fs.calls)
	}
}

func TestStoreResolver_UnknownKey(t *testing.T) {
	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	fs := &fakeKeyStore{}
	r := NewStoreResolver(fs)

	if _, err := r.Resolve(context.Background(), secret); !errors.Is(err, ErrKeyInvalid) {
		t.Errorf("Resolve() error = %v, want ErrKeyInvalid", err)
	}
}

func TestStoreResolver_WrongSuffix(t *testing.T) {
	secret, key := newStoredKey(t, false)
	fs := &fakeKeyStore{keys: map[string][]*store.APIKey{key.Prefix: {key}}}
	r := NewStoreResolver(fs)

	// Same prefix, different remainder: must bcrypt-fail, not prefix-match
	forged := secret[:len(secret)-4] + "XXXX"
	if forged == secret {
		t.Fatal("forged secret accidentally equals the real one")
	}

	if _, err := r.Resolve(context.Background(), forged); !errors.Is(err, ErrKeyInvalid) {
		t.Errorf("Resolve(forged) error = %v, want ErrKeyInvalid", err)
	}
}

func TestStoreResolver_RevokedKey(t *testing.T) {
	secret, key := newStoredKey(t, false)
	key.Active = false
	fs := &fakeKeyStore{keys: map[string][]*store.APIKey{key.Prefix: {key}}}
	r := NewStoreResolver(fs)

	if _, err := r.Resolve(context.Background(), secret); !errors.Is(err, ErrKeyInvalid) {
		t.Errorf("Resolve() error = %v, want ErrKeyInvalid for revoked key", err)
	}
}

func TestStoreResolver_ExpiryBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		wantValid bool
	}{
		{name: "expires in the future", expiresAt: now.Add(time.Minute), wantValid: true},
		{name: "expires exactly now", expiresAt: now, wantValid: false},
		{name: "expired in the past", expiresAt: now.Add(-time.Minute), wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret, key := newStoredKey(t, false)
			exp := tt.expiresAt
			key.ExpiresAt = &exp

			fs := &fakeKeyStore{keys: map[string][]*store.APIKey{key.Prefix: {key}}}
			r := NewStoreResolver(fs).WithClock(func() time.Time { return now })

			_, err := r.Resolve(context.Background(), secret)
			if tt.wantValid && err != nil {
				t.Errorf("Resolve() error = %v, want success", err)
			}
			if !tt.wantValid && !errors.Is(err, ErrKeyInvalid) {
				t.Errorf("Resolve() error = %v, want ErrKeyInvalid", err)
			}
		})
	}
}

func TestStoreResolver_StorageError(t *testing.T) {
	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	fs := &fakeKeyStore{err: errors.New("disk on fire")}
	r := NewStoreResolver(fs)

	_, err = r.Resolve(context.Background(), secret)
	if err == nil {
		t.Fatal("Resolve() succeeded despite storage failure")
	}
	// Storage failure must stay distinguishable from a bad credential
	if errors.Is(err, ErrKeyInvalid) {
		t.Error("storage failure collapsed into ErrKeyInvalid")
	}
}
