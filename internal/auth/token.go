// ABOUTME: JWT issuance and validation for human user authentication
// ABOUTME: HS256 with issuer/audience pinning; validation is pure computation, no I/O

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hamco/hamco/internal/config"
	"github.com/hamco/hamco/internal/store"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// TokenService issues and validates signed, expiring bearer tokens.
// Tokens are self-contained: validation needs only the configured
// signing material, never a database lookup, which is what makes the
// token path horizontally scalable.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenService creates a token service from the validated auth
// configuration. Secret strength is enforced by config.Validate before
// this point.
func NewTokenService(cfg config.AuthConfig) *TokenService {
	return &TokenService{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		lifetime: cfg.TokenLifetime,
		now:      time.Now,
	}
}

// WithClock overrides the service clock. Tests use it to cross the
// expiration boundary without sleeping.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue creates a signed token for the given user. The role list is
// derived from the persisted admin flag at issuance time; the jti claim
// is a fresh UUID reserved for future replay blacklisting.
func (s *TokenService) Issue(user *store.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"jti":   uuid.New().String(),
		"roles": RolesForAdminFlag(user.Admin),
		"iss":   s.issuer,
		"aud":   s.audience,
		"iat":   now.Unix(),
		"exp":   now.Add(s.lifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Validate checks signature, expiry, issuer, and audience, in that
// order of concern, and returns the embedded principal. Any failure
// returns an error with no partial claims exposed.
func (s *TokenService) Validate(tokenString string) (*Principal, error) {
	token, err := jwt.Parse(tokenString,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	email, _ := claims["email"].(string)

	roles, err := rolesClaim(claims)
	if err != nil {
		return nil, err
	}

	return &Principal{
		UserID: sub,
		Name:   email,
		Roles:  roles,
		Method: MethodToken,
	}, nil
}

// rolesClaim extracts the roles claim, which decodes as []interface{}.
func rolesClaim(claims jwt.MapClaims) ([]string, error) {
	raw, ok := claims["roles"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: roles", ErrMissingClaim)
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		s, ok := r.(string)
		if !ok {
			return nil, fmt.Errorf("%w: roles", ErrMissingClaim)
		}
		roles = append(roles, s)
	}
	return roles, nil
}
