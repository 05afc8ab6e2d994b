// Package legacy handles links in the pre-router format, where a coarse type
// selects the destination instead of a URL pattern.
//
// The type is the first path segment or the "type" query parameter; the
// identifier is the second path segment or the "id" query parameter:
//
//	waqiti://payment/m1?amount=5
//	waqiti://open?type=payment&id=m1&amount=5
package legacy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/waqiti-dev/deeplink/pkg/auth"
	"github.com/waqiti-dev/deeplink/pkg/dispatch"
	"github.com/waqiti-dev/deeplink/pkg/routepath"
	"github.com/waqiti-dev/deeplink/pkg/router"
)

// Link types understood by the handler.
const (
	TypePayment   = "payment"
	TypeRequest   = "request"
	TypeUser      = "user"
	TypeMerchant  = "merchant"
	TypePromotion = "promotion"
	TypeReferral  = "referral"
	TypeSplit     = "split"
)

type target struct {
	destination  string
	param        string
	requiresAuth bool
}

var targets = map[string]target{
	TypePayment:   {"Payment", "merchantId", true},
	TypeRequest:   {"PaymentRequest", "requestId", true},
	TypeUser:      {"UserProfile", "userId", true},
	TypeMerchant:  {"MerchantProfile", "merchantId", false},
	TypePromotion: {"Promotion", "code", false},
	TypeReferral:  {"Referral", "code", false},
	TypeSplit:     {"SplitBill", "splitId", true},
}

// Types returns the supported link types.
func Types() []string {
	return []string{TypePayment, TypeRequest, TypeUser, TypeMerchant, TypePromotion, TypeReferral, TypeSplit}
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithAuthDestination sets where links requiring sign-in navigate.
func WithAuthDestination(name string) Option {
	return func(h *Handler) {
		if name != "" {
			h.authDest = name
		}
	}
}

// Handler routes legacy links. It is safe for concurrent use.
type Handler struct {
	provider auth.Provider
	logger   *slog.Logger
	authDest string

	mu   sync.RWMutex
	host dispatch.Host
}

// New creates a legacy handler. provider may be nil, in which case links
// of types that need a signed-in user are refused.
func New(provider auth.Provider, opts ...Option) *Handler {
	h := &Handler{
		provider: provider,
		logger:   slog.Default(),
		authDest: dispatch.DefaultAuthDestination,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetHost installs the navigation host.
func (h *Handler) SetHost(host dispatch.Host) {
	h.mu.Lock()
	h.host = host
	h.mu.Unlock()
}

// ClearHost removes the navigation host.
func (h *Handler) ClearHost() {
	h.SetHost(nil)
}

// Handle routes raw. The result is successful iff the link was understood
// and navigation completed without error.
func (h *Handler) Handle(ctx context.Context, raw string, p dispatch.Partial) (res dispatch.Result) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("legacy link panic", "url", raw, "panic", r)
			res = dispatch.Failure(dispatch.CodeRoutingError, fmt.Sprintf("panic: %v", r))
		}
	}()

	h.mu.RLock()
	host := h.host
	h.mu.RUnlock()
	if host == nil {
		return dispatch.Failure(dispatch.CodeNavigationNotReady, "")
	}

	parsed, ok := routepath.Parse(raw)
	if !ok {
		return dispatch.Failure(dispatch.CodeInvalidURL, "")
	}

	kind, id := classify(parsed)
	t, ok := targets[kind]
	if !ok {
		return dispatch.Failure(dispatch.CodeRouteNotFound, fmt.Sprintf("unknown link type %q", kind))
	}
	if id == "" {
		return dispatch.Failure(dispatch.CodeHandlingError, fmt.Sprintf("%s link has no id", kind))
	}

	if t.requiresAuth {
		authed, err := h.authenticated(ctx)
		if err != nil {
			return dispatch.Failure(dispatch.CodeRoutingError, err.Error())
		}
		if !authed {
			if err := host.Navigate(ctx, h.authDest, map[string]any{"redirect": raw}); err != nil {
				h.logger.Warn("legacy auth navigation failed", "error", err)
			}
			res := dispatch.Action(dispatch.CodeAuthRequired, dispatch.ActionAuthenticate, map[string]any{"url": raw})
			res.Route = h.authDest
			return res
		}
	}

	params := map[string]any{t.param: id}
	if kind == TypePayment {
		q := router.Params{"amount": parsed.Query.Get("amount")}
		if amount, ok, err := q.Float("amount"); err == nil && ok && amount > 0 {
			params["amount"] = amount
		}
	}

	if err := host.Navigate(ctx, t.destination, params); err != nil {
		h.logger.Warn("legacy navigation failed", "type", kind, "error", err)
		return dispatch.Failure(dispatch.CodeHandlingError, err.Error())
	}
	h.logger.Debug("legacy link handled", "type", kind, "source", string(p.Source))
	return dispatch.Success(t.destination, params)
}

func (h *Handler) authenticated(ctx context.Context) (bool, error) {
	if h.provider == nil {
		return false, nil
	}
	ok, err := h.provider.IsAuthenticated(ctx)
	if err != nil {
		return false, fmt.Errorf("query authentication: %w", err)
	}
	return ok, nil
}

// classify extracts the link type and identifier. Query parameters take
// precedence over path segments.
func classify(p routepath.Parsed) (kind, id string) {
	segs := routepath.Segments(p.Path)
	if len(segs) > 0 {
		kind, _ = routepath.DecodeSegment(segs[0])
	}
	if len(segs) > 1 {
		id, _ = routepath.DecodeSegment(segs[1])
	}
	if t := p.Query.Get("type"); t != "" {
		kind = t
		id = ""
	}
	if v := p.Query.Get("id"); v != "" {
		id = v
	}
	return strings.ToLower(kind), id
}
