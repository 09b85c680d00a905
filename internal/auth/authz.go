// ABOUTME: Role-based authorization gate consumed by route handlers
// ABOUTME: Distinguishes unauthenticated (401) from wrong-role (403) denials

package auth

import (
	"errors"
	"net/http"
)

// Authorization errors. The two denial reasons stay distinguishable so
// the HTTP layer can map them to 401 and 403.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient role")
)

// Authorize allows iff the principal is authenticated and its role set
// contains the exact role. It is agnostic to how the identity was
// established; token and key principals are judged identically.
func Authorize(p *Principal, role string) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if !p.HasRole(role) {
		return ErrForbidden
	}
	return nil
}

// RequireRole creates an HTTP middleware enforcing the given role.
// Must be used after the authentication chain.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch err := Authorize(FromContext(r.Context()), role); {
			case errors.Is(err, ErrUnauthenticated):
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			case errors.Is(err, ErrForbidden):
				writeJSONError(w, http.StatusForbidden, "forbidden")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
