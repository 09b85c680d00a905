// ABOUTME: Password hashing and verification using bcrypt
// ABOUTME: Salted adaptive hashing so equal inputs produce different hashes

package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password with bcrypt at the default
// cost. The salt is random, so hashing the same password twice yields
// different strings.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a plaintext password against a stored bcrypt
// hash. A malformed stored hash verifies as false; the caller never
// learns why the check failed.
func CheckPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// DummyPasswordCheck burns one bcrypt comparison against a fixed hash.
// Login handlers call it when the account does not exist so response
// timing does not reveal which emails are registered.
func DummyPasswordCheck() {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte("hamco-timing-pad"))
}

// dummyHash is a valid bcrypt hash of an unguessable throwaway value.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
