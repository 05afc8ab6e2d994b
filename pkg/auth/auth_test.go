package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/waqiti-dev/deeplink/pkg/auth"
)

func TestPrincipalHasPermission(t *testing.T) {
	p := &auth.Principal{ID: "u1", Permissions: []string{"payments:send", "camera"}}

	tests := []struct {
		perm string
		want bool
	}{
		{"payments:send", true},
		{"camera", true},
		{"payments", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := p.HasPermission(tt.perm); got != tt.want {
			t.Errorf("HasPermission(%q) = %v, want %v", tt.perm, got, tt.want)
		}
	}

	var nilPrincipal *auth.Principal
	if nilPrincipal.HasPermission("camera") {
		t.Error("nil principal should have no permissions")
	}
}

func TestPrincipalExpired(t *testing.T) {
	now := time.Unix(1_000, 0)
	tests := []struct {
		name string
		p    *auth.Principal
		want bool
	}{
		{"no expiry", &auth.Principal{ID: "u1"}, false},
		{"future", &auth.Principal{ID: "u1", ExpiresAtUnixMs: now.Add(time.Minute).UnixMilli()}, false},
		{"past", &auth.Principal{ID: "u1", ExpiresAtUnixMs: now.Add(-time.Minute).UnixMilli()}, true},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		if got := tt.p.Expired(now); got != tt.want {
			t.Errorf("%s: Expired() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestContextProvider(t *testing.T) {
	now := time.Unix(1_000, 0)
	provider := auth.ContextProvider{Now: func() time.Time { return now }}

	t.Run("empty context is unauthenticated", func(t *testing.T) {
		ok, err := provider.IsAuthenticated(context.Background())
		if err != nil || ok {
			t.Fatalf("IsAuthenticated() = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("principal in context", func(t *testing.T) {
		ctx := auth.WithPrincipal(context.Background(), &auth.Principal{ID: "u1"})
		ok, _ := provider.IsAuthenticated(ctx)
		if !ok {
			t.Fatal("expected authenticated")
		}
		user, _ := provider.CurrentUser(ctx)
		if user == nil || user.ID != "u1" {
			t.Fatalf("CurrentUser() = %+v, want u1", user)
		}
	})

	t.Run("expired principal is ignored", func(t *testing.T) {
		ctx := auth.WithPrincipal(context.Background(), &auth.Principal{
			ID:              "u1",
			ExpiresAtUnixMs: now.Add(-time.Second).UnixMilli(),
		})
		ok, _ := provider.IsAuthenticated(ctx)
		if ok {
			t.Fatal("expired principal should not authenticate")
		}
	})
}

func TestStaticAndProviderFunc(t *testing.T) {
	ctx := context.Background()

	anon := auth.Static{}
	if ok, _ := anon.IsAuthenticated(ctx); ok {
		t.Error("empty Static should be unauthenticated")
	}

	fixed := auth.Static{Principal: &auth.Principal{ID: "u2"}}
	if u, _ := fixed.CurrentUser(ctx); u == nil || u.ID != "u2" {
		t.Errorf("Static.CurrentUser() = %+v, want u2", u)
	}

	boom := errors.New("identity service down")
	failing := auth.ProviderFunc(func(context.Context) (*auth.Principal, error) {
		return nil, boom
	})
	if _, err := failing.IsAuthenticated(ctx); !errors.Is(err, boom) {
		t.Errorf("ProviderFunc error = %v, want %v", err, boom)
	}
}
