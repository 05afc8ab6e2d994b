package linktest

import (
	"context"
	"sync"
	"testing"

	"github.com/waqiti-dev/deeplink/pkg/auth"
	"github.com/waqiti-dev/deeplink/pkg/dispatch"
)

// Navigation is one recorded call to Host.Navigate.
type Navigation struct {
	Destination string
	Params      map[string]any
}

// Host is a dispatch.Host that records every navigation.
type Host struct {
	mu   sync.Mutex
	navs []Navigation

	// Err, when set, is returned from every Navigate call.
	Err error
}

// NewHost creates a recording host.
func NewHost() *Host {
	return &Host{}
}

// Navigate implements dispatch.Host.
func (h *Host) Navigate(_ context.Context, destination string, params map[string]any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.navs = append(h.navs, Navigation{Destination: destination, Params: params})
	return h.Err
}

// Navigations returns the recorded navigations in order.
func (h *Host) Navigations() []Navigation {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Navigation(nil), h.navs...)
}

// Last returns the most recent navigation.
func (h *Host) Last() (Navigation, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.navs) == 0 {
		return Navigation{}, false
	}
	return h.navs[len(h.navs)-1], true
}

// Reset forgets recorded navigations.
func (h *Host) Reset() {
	h.mu.Lock()
	h.navs = nil
	h.mu.Unlock()
}

// PartialBuilder allows fluent construction of dispatch.Partial values.
type PartialBuilder struct {
	p dispatch.Partial
}

// NewPartial creates a new partial context builder.
func NewPartial() *PartialBuilder {
	return &PartialBuilder{}
}

// From sets the link source.
func (b *PartialBuilder) From(src dispatch.Source) *PartialBuilder {
	b.p.Source = src
	return b
}

// Campaign sets the campaign.
func (b *PartialBuilder) Campaign(c string) *PartialBuilder {
	b.p.Campaign = c
	return b
}

// Referrer sets the referrer.
func (b *PartialBuilder) Referrer(r string) *PartialBuilder {
	b.p.Referrer = r
	return b
}

// Device sets platform and OS version.
func (b *PartialBuilder) Device(platform, osVersion string) *PartialBuilder {
	b.p.Device = &dispatch.DeviceInfo{Platform: platform, OSVersion: osVersion}
	return b
}

// Build returns the partial context.
func (b *PartialBuilder) Build() dispatch.Partial {
	return b.p
}

// User builds a principal with the given permissions.
func User(id string, permissions ...string) *auth.Principal {
	return &auth.Principal{ID: id, Permissions: permissions}
}

// SignedIn is a shorthand for an auth.Static provider for User(id, permissions...).
func SignedIn(id string, permissions ...string) auth.Static {
	return auth.Static{Principal: User(id, permissions...)}
}

// Anonymous returns a provider with no signed-in user.
func Anonymous() auth.Static {
	return auth.Static{}
}

// ExpectSuccess asserts that res succeeded with the given route.
func ExpectSuccess(t testing.TB, res dispatch.Result, route string) {
	t.Helper()
	if !res.Success {
		t.Fatalf("expected success to %q, got %s: %s", route, res.ErrorCode, res.ErrorMessage)
	}
	if res.Route != route {
		t.Errorf("Route = %q, want %q", res.Route, route)
	}
}

// ExpectFailure asserts that res failed with code.
func ExpectFailure(t testing.TB, res dispatch.Result, code dispatch.Code) {
	t.Helper()
	if res.Success {
		t.Fatalf("expected failure %s, got success to %q", code, res.Route)
	}
	if res.ErrorCode != code {
		t.Errorf("ErrorCode = %s, want %s (message %q)", res.ErrorCode, code, res.ErrorMessage)
	}
}

// ExpectNavigated asserts that the host's last navigation went to destination.
func ExpectNavigated(t testing.TB, h *Host, destination string) Navigation {
	t.Helper()
	nav, ok := h.Last()
	if !ok {
		t.Fatalf("expected navigation to %q, got none", destination)
	}
	if nav.Destination != destination {
		t.Errorf("navigated to %q, want %q", nav.Destination, destination)
	}
	return nav
}

// ExpectNoNavigation asserts that the host was never navigated.
func ExpectNoNavigation(t testing.TB, h *Host) {
	t.Helper()
	if navs := h.Navigations(); len(navs) > 0 {
		t.Errorf("expected no navigation, got %+v", navs)
	}
}
