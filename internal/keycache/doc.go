// Package keycache caches API key resolution results for a short TTL.
//
// Verifying an API key costs a storage lookup plus a bcrypt comparison
// (~100ms class). Automation traffic presents the same key on every
// request, so the cache bounds that cost to once per TTL window while
// keeping the revocation exposure window equally bounded: TTL expiry is
// the fallback guarantee, InvalidatePrefix the eager path.
//
// The cache decorates auth.KeyResolver, so the system is correct with
// the decorator removed.
package keycache
