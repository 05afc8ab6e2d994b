package auth

import (
	"context"
	"errors"
	"slices"
	"time"
)

// ErrUnauthorized is returned when authentication is required but not present.
var ErrUnauthorized = errors.New("unauthorized: authentication required")

// ErrInvalidToken is returned by JWTVerifier for malformed, unsigned, expired
// or otherwise unacceptable tokens.
var ErrInvalidToken = errors.New("invalid token")

// Principal represents the authenticated identity.
// Intentionally minimal: no catch-all claims map.
type Principal struct {
	// User identity
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`

	// Authorization
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`

	// ExpiresAtUnixMs is the hard expiry in unix milliseconds. Zero means the
	// principal does not expire on its own.
	ExpiresAtUnixMs int64 `json:"expires_at_unix_ms,omitempty"`
}

// HasPermission reports whether perm is in the principal's permission set.
// A nil principal has no permissions.
func (p *Principal) HasPermission(perm string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Permissions, perm)
}

// HasRole reports whether the principal has the given role.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Roles, role)
}

// Expired reports whether the principal's expiry has passed at now.
func (p *Principal) Expired(now time.Time) bool {
	if p == nil || p.ExpiresAtUnixMs == 0 {
		return false
	}
	return now.UnixMilli() >= p.ExpiresAtUnixMs
}

// Provider answers identity questions for the current call.
// Both methods are queried fresh on every routing attempt.
type Provider interface {
	// IsAuthenticated reports whether the caller is signed in.
	IsAuthenticated(ctx context.Context) (bool, error)

	// CurrentUser returns the signed-in user, or nil when there is none.
	CurrentUser(ctx context.Context) (*Principal, error)
}

// ProviderFunc adapts a function returning the current principal to Provider.
// A nil principal means unauthenticated.
type ProviderFunc func(ctx context.Context) (*Principal, error)

// IsAuthenticated implements Provider.
func (f ProviderFunc) IsAuthenticated(ctx context.Context) (bool, error) {
	p, err := f(ctx)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

// CurrentUser implements Provider.
func (f ProviderFunc) CurrentUser(ctx context.Context) (*Principal, error) {
	return f(ctx)
}

// Static is a Provider that always reports the same principal.
// A Static with a nil Principal is permanently unauthenticated.
type Static struct {
	Principal *Principal
}

// IsAuthenticated implements Provider.
func (s Static) IsAuthenticated(context.Context) (bool, error) {
	return s.Principal != nil, nil
}

// CurrentUser implements Provider.
func (s Static) CurrentUser(context.Context) (*Principal, error) {
	return s.Principal, nil
}
