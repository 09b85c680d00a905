// Package maintenance runs scheduled housekeeping: purging expired
// verification/reset token hashes and deactivating expired API keys.
// Auth-time checks stay authoritative; these jobs only keep storage
// and listings tidy.
package maintenance
