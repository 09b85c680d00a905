// Package apikeys manages the API key lifecycle: admin-gated
// generation with a show-once plaintext secret, listing without secret
// material, idempotent revocation with eager cache eviction, and a
// background sweep that deactivates expired keys.
package apikeys
