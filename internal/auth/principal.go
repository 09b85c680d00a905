// ABOUTME: Principal type and context plumbing for authenticated request identity
// ABOUTME: Provides WithPrincipal/FromContext for propagating auth info via context

package auth

import (
	"context"
)

// AuthMethod tags how a principal was established. Downstream code can
// branch on it (for example to deny session-only endpoints to API keys)
// but the role gate never does.
type AuthMethod string

const (
	// MethodToken marks a principal established from a signed bearer token.
	MethodToken AuthMethod = "token"
	// MethodAPIKey marks a principal established from an API key lookup.
	MethodAPIKey AuthMethod = "key"
)

// Role names. Hamco has exactly two roles; there is no hierarchy and
// matching is exact.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// Principal holds the authenticated identity attached to a request.
// It is constructed per request and never persisted.
type Principal struct {
	UserID string     // subject: user id for tokens, creator id for API keys
	Name   string     // display label: email for tokens, key label for API keys
	Roles  []string   // "Admin" and/or "User"
	Method AuthMethod // how this identity was established
}

// HasRole returns true if the principal holds the exact role.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin returns true if the principal holds the Admin role.
func (p *Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

// principalKey is the key type for storing a Principal in context.Context.
type principalKey struct{}

// WithPrincipal returns a new context with the principal attached.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the Principal from the context, returning nil if not present.
func FromContext(ctx context.Context) *Principal {
	val := ctx.Value(principalKey{})
	if val == nil {
		return nil
	}
	p, ok := val.(*Principal)
	if !ok {
		return nil
	}
	return p
}

// MustFromContext retrieves the Principal from the context, panicking if not present.
func MustFromContext(ctx context.Context) *Principal {
	p := FromContext(ctx)
	if p == nil {
		panic("auth: Principal not found in context")
	}
	return p
}

// RolesForAdminFlag derives the claim role list from the persisted admin
// flag. Admins retain the User role so User-gated routes stay reachable.
func RolesForAdminFlag(admin bool) []string {
	if admin {
		return []string{RoleAdmin, RoleUser}
	}
	return []string{RoleUser}
}
