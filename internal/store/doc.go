// Package store provides persistence for hamco users, API keys, notes,
// and slogans.
//
// The Store interface is implemented by SQLiteStore (modernc.org/sqlite,
// WAL mode, foreign keys, schema auto-created on open). All operations
// are single-row or small-set lookups; timestamps are stored as RFC3339
// text.
//
// Security-relevant invariants live here as column shapes: users carry
// only a password hash, API keys carry only a secret hash plus an
// 8-character display prefix, and revocation is a soft active-flag flip
// that preserves the record for audit.
package store
