// ABOUTME: API key secret generation, prefix derivation, and hash verification
// ABOUTME: Secrets are hamco_<random> with a crypto/rand payload, hashed with bcrypt

package auth

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	// SecretPrefix is the fixed leading tag of every hamco API key secret.
	SecretPrefix = "hamco_"

	// SecretPayloadLength is the number of random characters after the tag.
	SecretPayloadLength = 40

	// KeyPrefixLength is the length of the stored display/lookup prefix.
	KeyPrefixLength = 8
)

// secretAlphabet is the payload alphabet: 62 symbols, safe in headers,
// URLs, and shell command lines.
const secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateSecret returns a new plaintext API key secret. The payload is
// drawn from crypto/rand, so two calls never collide in practice. The
// plaintext is returned to the caller exactly once and must never be
// persisted; store only HashSecret's output and KeyPrefix's slice.
func GenerateSecret() (string, error) {
	buf := make([]byte, SecretPayloadLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = secretAlphabet[int(b)%len(secretAlphabet)]
	}
	return SecretPrefix + string(buf), nil
}

// KeyPrefix returns the deterministic fixed-length leading slice of a
// plaintext secret. It is used for display and candidate lookup only and
// is never sufficient to authorize on its own.
func KeyPrefix(secret string) string {
	if len(secret) < KeyPrefixLength {
		return secret
	}
	return secret[:KeyPrefixLength]
}

// ValidSecretFormat reports whether a candidate secret is even worth a
// storage lookup: correct tag and full length. Malformed candidates are
// rejected before any I/O or hashing.
func ValidSecretFormat(secret string) bool {
	if !strings.HasPrefix(secret, SecretPrefix) {
		return false
	}
	return len(secret) == len(SecretPrefix)+SecretPayloadLength
}

// HashSecret hashes a plaintext API key secret. It reuses the password
// bcrypt primitive so key storage has the same operational and security
// characteristics as password storage.
func HashSecret(secret string) (string, error) {
	return HashPassword(secret)
}

// CheckSecret verifies a plaintext secret against a stored hash.
func CheckSecret(secret, hash string) bool {
	return CheckPassword(secret, hash)
}
