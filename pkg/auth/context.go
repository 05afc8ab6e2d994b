package auth

import (
	"context"
	"time"
)

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}

// ContextProvider reads the principal from the request context.
// Expired principals are treated as absent.
type ContextProvider struct {
	// Now overrides the clock used for expiry checks.
	Now func() time.Time
}

// IsAuthenticated implements Provider.
func (c ContextProvider) IsAuthenticated(ctx context.Context) (bool, error) {
	p, _ := c.CurrentUser(ctx)
	return p != nil, nil
}

// CurrentUser implements Provider.
func (c ContextProvider) CurrentUser(ctx context.Context) (*Principal, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return nil, nil
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	if p.Expired(now()) {
		return nil, nil
	}
	return p, nil
}
