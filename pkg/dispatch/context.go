package dispatch

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/waqiti-dev/deeplink/pkg/auth"
	"github.com/waqiti-dev/deeplink/pkg/routepath"
	"github.com/waqiti-dev/deeplink/pkg/router"
)

// Source is where a link was opened from.
type Source string

const (
	SourceApp    Source = "app"
	SourceWeb    Source = "web"
	SourceSMS    Source = "sms"
	SourceEmail  Source = "email"
	SourceQR     Source = "qr"
	SourceNFC    Source = "nfc"
	SourceSocial Source = "social"
)

var validSources = map[Source]bool{
	SourceApp: true, SourceWeb: true, SourceSMS: true, SourceEmail: true,
	SourceQR: true, SourceNFC: true, SourceSocial: true,
}

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool { return validSources[s] }

// ParseSource converts a string to a Source. Empty input yields SourceApp.
func ParseSource(s string) (Source, error) {
	if s == "" {
		return SourceApp, nil
	}
	src := Source(s)
	if !src.Valid() {
		return "", fmt.Errorf("unknown link source %q", s)
	}
	return src, nil
}

// QueryReferrer is the query key read when no referrer is supplied.
const QueryReferrer = "referrer"

// Host is the navigation capability the dispatcher is handed. The
// dispatcher never creates or owns a host.
type Host interface {
	Navigate(ctx context.Context, destination string, params map[string]any) error
}

// HostFunc adapts a function to Host.
type HostFunc func(ctx context.Context, destination string, params map[string]any) error

// Navigate implements Host.
func (f HostFunc) Navigate(ctx context.Context, destination string, params map[string]any) error {
	return f(ctx, destination, params)
}

// DeviceInfo describes the device a link is opened on.
type DeviceInfo struct {
	Platform   string `json:"platform,omitempty"`
	OSVersion  string `json:"osVersion,omitempty"`
	AppVersion string `json:"appVersion,omitempty"`
	Model      string `json:"model,omitempty"`
	Locale     string `json:"locale,omitempty"`
}

// Partial is the caller-supplied part of a routing context. It never
// carries identity; that is always queried from the auth provider.
type Partial struct {
	Source   Source      `json:"source,omitempty"`
	Campaign string      `json:"campaign,omitempty"`
	Referrer string      `json:"referrer,omitempty"`
	Device   *DeviceInfo `json:"device,omitempty"`
}

// Context is the per-call snapshot a handler decides on. It is built fresh
// for every routing attempt.
type Context struct {
	// Host is the navigation host. Handlers use it to navigate on success.
	Host Host

	User            *auth.Principal
	IsAuthenticated bool

	Device   DeviceInfo
	Source   Source
	Campaign string
	Referrer string

	// RequestID identifies this routing attempt in logs and analytics.
	RequestID string

	// URL is the raw link being routed.
	URL string

	// Query holds the link's decoded query parameters.
	Query url.Values
}

// UserID returns the signed-in user's ID, or "".
func (c *Context) UserID() string {
	if c == nil || c.User == nil {
		return ""
	}
	return c.User.ID
}

// Navigate sends the host to destination. It refuses once ctx is done, so an
// attempt abandoned by its deadline never moves the host.
func (c *Context) Navigate(ctx context.Context, destination string, params map[string]any) error {
	if c.Host == nil {
		return fmt.Errorf("navigate to %s: no navigation host", destination)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("navigate to %s: %w", destination, err)
	}
	return c.Host.Navigate(ctx, destination, params)
}

type deferFallbackKey struct{}

// DeferFallback returns a context under which INVALID_URL and ROUTE_NOT_FOUND
// results do not navigate to the fallback destination. The caller is then
// expected to call Dispatcher.NavigateFallback if nothing else takes the link.
func DeferFallback(ctx context.Context) context.Context {
	return context.WithValue(ctx, deferFallbackKey{}, true)
}

func fallbackDeferred(ctx context.Context) bool {
	deferred, _ := ctx.Value(deferFallbackKey{}).(bool)
	return deferred
}

// Builder assembles Contexts.
type Builder struct {
	provider auth.Provider
	device   DeviceInfo
}

// NewBuilder creates a builder that asks provider for identity. A nil
// provider leaves every context unauthenticated. device is the locally known
// device description used when the caller supplies none.
func NewBuilder(provider auth.Provider, device DeviceInfo) *Builder {
	return &Builder{provider: provider, device: device}
}

// Build creates the context for routing raw.
//
// Source defaults to "app". Campaign and referrer fall back to the link's
// utm_campaign and referrer query parameters. Authentication state and user
// are always queried from the provider.
func (b *Builder) Build(ctx context.Context, raw string, p Partial) (*Context, error) {
	var query url.Values
	if parsed, ok := routepath.Parse(raw); ok {
		query = parsed.Query
	}
	return b.build(ctx, raw, query, p)
}

func (b *Builder) build(ctx context.Context, raw string, query url.Values, p Partial) (*Context, error) {
	rc := &Context{
		Device:    b.device,
		Source:    p.Source,
		Campaign:  p.Campaign,
		Referrer:  p.Referrer,
		RequestID: uuid.NewString(),
		URL:       raw,
		Query:     query,
	}

	if p.Device != nil {
		rc.Device = *p.Device
	}
	if rc.Source == "" {
		rc.Source = SourceApp
	}
	if rc.Campaign == "" {
		rc.Campaign = query.Get(router.QueryCampaign)
	}
	if rc.Referrer == "" {
		rc.Referrer = query.Get(QueryReferrer)
	}

	if b.provider == nil {
		return rc, nil
	}

	authed, err := b.provider.IsAuthenticated(ctx)
	if err != nil {
		return nil, fmt.Errorf("query authentication: %w", err)
	}
	if authed {
		user, err := b.provider.CurrentUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("query current user: %w", err)
		}
		rc.User = user
		rc.IsAuthenticated = user != nil
	}
	return rc, nil
}
