// Package auth provides authentication and authorization for hamco.
//
// # Authentication Methods
//
// Two mechanisms converge on one principal type:
//
//   - JWT tokens: Human users log in with email and password and
//     receive an HS256-signed token carrying subject, email, roles,
//     issuer, audience, and expiry. Validation is pure computation
//     against the configured signing material; no storage lookup.
//
//   - API keys: Automated agents present a long-lived opaque secret in
//     the X-API-Key header. Resolution looks up candidates by the
//     secret's 8-character prefix and bcrypt-verifies the remainder,
//     honoring revocation and expiry on every check.
//
// # Middleware Chain
//
// Chain runs an ordered list of try-authenticate steps per request:
// bearer token first (cheap, dominant traffic), API key second
// (storage plus adaptive hashing). A request with no credential
// proceeds as anonymous; a presented-but-invalid API key fails closed
// with 401. The resulting Principal travels via WithPrincipal /
// FromContext, same pattern for every downstream consumer.
//
// # Authorization
//
// Authorize(principal, role) is an exact-match role gate over the two
// hamco roles, "Admin" and "User". It never looks at how the identity
// was established. RequireRole wraps it for HTTP, mapping
// ErrUnauthenticated to 401 and ErrForbidden to 403.
//
// # Secrets
//
// Passwords and API key secrets share one bcrypt primitive. API key
// plaintexts are generated once, returned once, and only their hash
// and display prefix persist.
package auth
