// Package metrics exposes Prometheus counters for authentication
// outcomes, token issuance, and key cache activity on a dedicated
// registry. It implements the observer interfaces of the auth and
// keycache packages so neither depends on Prometheus directly.
package metrics
