// ABOUTME: HTTP middleware chain trying bearer-token auth first, then API-key auth
// ABOUTME: Attaches the resulting principal to the request context for downstream handlers

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// APIKeyHeader is the dedicated header automation traffic presents its
// secret in.
const APIKeyHeader = "X-API-Key"

// Outcome labels reported to the observer.
const (
	OutcomeOK           = "ok"
	OutcomeUnauthorized = "unauthorized"
	OutcomeUnavailable  = "unavailable"
	OutcomeAnonymous    = "anonymous"
)

// Observer receives authentication outcomes, typically for metrics.
type Observer interface {
	ObserveAuth(method, outcome string)
}

// stepDecision is what a single authentication step concluded.
type stepDecision int

const (
	// stepSkip: the step does not apply (or may be fixed by a later
	// step); try the next one.
	stepSkip stepDecision = iota
	// stepAuthenticated: the step produced a principal; stop.
	stepAuthenticated
	// stepUnauthorized: a credential was presented and is bad; fail
	// closed, do not continue as anonymous.
	stepUnauthorized
	// stepUnavailable: the step could not reach its backend; the
	// caller may retry.
	stepUnavailable
)

// step is one try-authenticate stage. Steps run in order; the ordering
// contract (token before key) lives in the chain's step slice, not in
// nested conditionals.
type step func(r *http.Request) (stepDecision, *Principal)

// Chain is the per-request authentication pipeline. Token validation is
// pure computation and dominates traffic, so it runs first; key
// resolution needs storage and adaptive hashing and is reserved for
// automation traffic.
type Chain struct {
	steps    []step
	logger   *slog.Logger
	observer Observer
}

// NewChain builds the standard hamco chain: bearer token, then API key.
func NewChain(tokens *TokenService, keys KeyResolver) *Chain {
	c := &Chain{
		logger: slog.Default().With("component", "auth.middleware"),
	}
	c.steps = []step{c.tryToken(tokens), c.tryAPIKey(keys)}
	return c
}

// WithObserver attaches an outcome observer (metrics).
func (c *Chain) WithObserver(obs Observer) *Chain {
	c.observer = obs
	return c
}

// Middleware wraps a handler with the authentication chain. Requests
// with no credential at all proceed as anonymous; the authorization
// layer decides whether anonymous access is permitted.
func (c *Chain) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A principal attached by an earlier stage passes through unchanged.
		if FromContext(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}

		for _, s := range c.steps {
			decision, principal := s(r)
			switch decision {
			case stepAuthenticated:
				c.observe(string(principal.Method), OutcomeOK)
				ctx := WithPrincipal(r.Context(), principal)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			case stepUnauthorized:
				c.observe("", OutcomeUnauthorized)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			case stepUnavailable:
				c.observe("", OutcomeUnavailable)
				writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
				return
			}
		}

		c.observe("", OutcomeAnonymous)
		next.ServeHTTP(w, r)
	})
}

// tryToken builds the bearer-token step. An absent or malformed header
// skips to the next step: a token that fails here may still be
// accompanied by a usable key, and hard-failing would break that.
func (c *Chain) tryToken(tokens *TokenService) step {
	return func(r *http.Request) (stepDecision, *Principal) {
		tokenString := bearerToken(r.Header.Get("Authorization"))
		if tokenString == "" {
			return stepSkip, nil
		}

		principal, err := tokens.Validate(tokenString)
		if err != nil {
			// Sub-reason stays in the log; the client sees a uniform response.
			c.logger.Debug("token validation failed", "error", err)
			return stepSkip, nil
		}
		return stepAuthenticated, principal
	}
}

// tryAPIKey builds the API-key step. A presented-but-invalid key is an
// authentication failure, not an absence of credentials, so it fails
// closed rather than falling through to anonymous.
func (c *Chain) tryAPIKey(keys KeyResolver) step {
	return func(r *http.Request) (stepDecision, *Principal) {
		// Header keys are stored canonicalized ("X-Api-Key").
		values, present := r.Header[http.CanonicalHeaderKey(APIKeyHeader)]
		if !present {
			return stepSkip, nil
		}

		secret := ""
		if len(values) > 0 {
			secret = values[0]
		}
		if secret == "" {
			// An empty header value is a presented credential too.
			return stepUnauthorized, nil
		}

		principal, err := keys.Resolve(r.Context(), secret)
		if err != nil {
			if errors.Is(err, ErrKeyInvalid) {
				c.logger.Debug("api key rejected", "prefix", KeyPrefix(secret))
				return stepUnauthorized, nil
			}
			if errors.Is(err, context.Canceled) {
				// Client went away mid-resolution; discard the result.
				return stepUnauthorized, nil
			}
			c.logger.Error("api key resolution unavailable", "error", err)
			return stepUnavailable, nil
		}
		return stepAuthenticated, principal
	}
}

func (c *Chain) observe(method, outcome string) {
	if c.observer != nil {
		c.observer.ObserveAuth(method, outcome)
	}
}

// bearerToken extracts the token from an Authorization header, or ""
// if the header is absent or not a bearer credential.
func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// writeJSONError writes a uniform JSON error body. Authentication
// failures deliberately share one message to prevent enumeration.
func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":%q}`+"\n", msg)
}
