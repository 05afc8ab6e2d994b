package deeplink

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/waqiti-dev/deeplink/pkg/analytics"
	"github.com/waqiti-dev/deeplink/pkg/dispatch"
	"github.com/waqiti-dev/deeplink/pkg/legacy"
	"github.com/waqiti-dev/deeplink/pkg/router"
)

// =============================================================================
// Manager Type
// =============================================================================

// Manager is the deep-link entry point. It owns no global state; create one
// per navigation host.
type Manager struct {
	dispatcher *dispatch.Dispatcher
	legacy     *legacy.Handler

	config  Config
	logger  *slog.Logger
	tracker analytics.Tracker
}

// New creates a manager over the given dispatcher. legacyHandler may be nil,
// in which case the dispatcher handles every link.
func New(cfg Config, d *dispatch.Dispatcher, legacyHandler *legacy.Handler) *Manager {
	if cfg.Links.Scheme == "" {
		cfg.Links.Scheme = DefaultLinksConfig().Scheme
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracker := cfg.Tracker
	if tracker == nil {
		tracker = analytics.Nop{}
	}

	return &Manager{
		dispatcher: d,
		legacy:     legacyHandler,
		config:     cfg,
		logger:     logger,
		tracker:    tracker,
	}
}

// Dispatcher returns the pattern dispatcher.
func (m *Manager) Dispatcher() *dispatch.Dispatcher {
	return m.dispatcher
}

// Config returns the manager configuration.
func (m *Manager) Config() Config {
	return m.config
}

// =============================================================================
// Navigation Host
// =============================================================================

// SetHost hands the navigation host to both strategies and replays links
// queued before it was available. It returns the number replayed.
func (m *Manager) SetHost(ctx context.Context, h dispatch.Host) int {
	if m.legacy != nil {
		m.legacy.SetHost(h)
	}
	return m.dispatcher.SetHost(ctx, h)
}

// ClearHost marks the navigation host as gone.
func (m *Manager) ClearHost() {
	if m.legacy != nil {
		m.legacy.ClearHost()
	}
	m.dispatcher.ClearHost()
}

// Ready reports whether a navigation host is installed.
func (m *Manager) Ready() bool {
	return m.dispatcher.Ready()
}

// =============================================================================
// Handling
// =============================================================================

// Handle routes raw with the configured policy.
//
// The primary strategy runs first. The other strategy runs only when the
// primary failed structurally (INVALID_URL, ROUTE_NOT_FOUND) or internally
// (ROUTING_ERROR, HANDLING_ERROR, ROUTE_TIMEOUT). Results that ask the user to
// act, domain failures and queued links are final. The fallback's result is
// kept when it succeeds or asks the user to act; otherwise the primary's result
// is returned.
//
// Links that arrive before a navigation host is set always go to the
// dispatcher, which queues them for replay.
//
// When the router runs first and legacy routing can still take the link, the
// router's Home navigation for an unreadable or unmatched link is held back
// and made only if legacy routing fails too, so the host moves once.
func (m *Manager) Handle(ctx context.Context, raw string, p dispatch.Partial) dispatch.Result {
	primary, secondary, primaryName, secondaryName := m.strategies()
	if !m.dispatcher.Ready() {
		primary, secondary, primaryName = StrategyFunc(m.dispatcher.Route), nil, StrategyRouter
	}

	primaryCtx := ctx
	deferred := secondary != nil && primaryName == StrategyRouter
	if deferred {
		primaryCtx = dispatch.DeferFallback(ctx)
	}

	start := time.Now()
	res := primary.Handle(primaryCtx, raw, p)
	used, fellBack := primaryName, false

	if secondary != nil && shouldFallback(res) {
		m.logger.Debug("falling back to secondary strategy",
			"url", raw, "primary", primaryName, "error_code", string(res.ErrorCode))
		alt := secondary.Handle(ctx, raw, p)
		fellBack = true
		if alt.Success || alt.RequiresUserAction {
			res, used = alt, secondaryName
		}
	}

	if deferred && !res.Success && !res.Queued && res.Category() == dispatch.CategoryStructural {
		m.dispatcher.NavigateFallback(ctx)
	}

	m.track(ctx, raw, p, res, used, fellBack, time.Since(start))
	return res
}

// strategies returns the primary and secondary strategy for the configured
// policy. secondary is nil when legacy routing is off.
func (m *Manager) strategies() (primary, secondary Strategy, primaryName, secondaryName string) {
	routerStrategy := StrategyFunc(m.dispatcher.Route)
	if m.legacy == nil || !m.config.Routing.LegacyEnabled {
		return routerStrategy, nil, StrategyRouter, ""
	}
	if m.config.Routing.Policy == PreferLegacy {
		return m.legacy, routerStrategy, StrategyLegacy, StrategyRouter
	}
	return routerStrategy, m.legacy, StrategyRouter, StrategyLegacy
}

// shouldFallback reports whether a failed result may be retried with the
// other strategy.
func shouldFallback(res dispatch.Result) bool {
	if res.Success || res.Queued || res.RequiresUserAction {
		return false
	}
	switch res.ErrorCode {
	case dispatch.CodeInvalidURL, dispatch.CodeRouteNotFound,
		dispatch.CodeRoutingError, dispatch.CodeHandlingError, dispatch.CodeRouteTimeout:
		return true
	}
	return false
}

func (m *Manager) track(ctx context.Context, raw string, p dispatch.Partial, res dispatch.Result, strategy string, fellBack bool, elapsed time.Duration) {
	source := p.Source
	if source == "" {
		source = dispatch.SourceApp
	}
	props := analytics.Props{
		"url":         raw,
		"strategy":    strategy,
		"fallback":    fellBack,
		"success":     res.Success,
		"route":       res.Route,
		"error_code":  string(res.ErrorCode),
		"source":      string(source),
		"duration_ms": elapsed.Milliseconds(),
	}
	if err := m.tracker.Track(ctx, analytics.EventHandled, props); err != nil {
		m.logger.Warn("analytics tracking failed", "event", analytics.EventHandled, "error", err)
	}
}

// ResumePending routes the link remembered before an authentication
// redirect, if any.
func (m *Manager) ResumePending(ctx context.Context, p dispatch.Partial) (dispatch.Result, bool) {
	return m.dispatcher.ResumePending(ctx, p)
}

// =============================================================================
// Routes
// =============================================================================

// RegisterRoute appends a route to the dispatcher.
func (m *Manager) RegisterRoute(r dispatch.Route) error {
	return m.dispatcher.Register(r)
}

// GetRoutes returns the registered route definitions in registration order.
func (m *Manager) GetRoutes() []router.Definition {
	routes := m.dispatcher.Routes()
	out := make([]router.Definition, len(routes))
	for i, r := range routes {
		out[i] = r.Definition
	}
	return out
}

// TestResult describes how a link would be matched.
type TestResult struct {
	Matches bool               `json:"matches"`
	Path    string             `json:"path,omitempty"`
	Route   *router.Definition `json:"route,omitempty"`
	Params  router.Params      `json:"params,omitempty"`
}

// TestURL parses and matches raw without invoking a handler or navigating.
func (m *Manager) TestURL(raw string) TestResult {
	match, ok := m.dispatcher.Lookup(raw)
	if !ok {
		return TestResult{Path: match.Path}
	}
	def := match.Definition
	return TestResult{Matches: true, Path: match.Path, Route: &def, Params: match.Params}
}

// =============================================================================
// Link Generation
// =============================================================================

// GenerateOptions configures GenerateURL.
type GenerateOptions struct {
	// Source is written as utm_source.
	Source string `json:"source,omitempty"`

	// Campaign is written as utm_campaign.
	Campaign string `json:"campaign,omitempty"`

	// UTMParams are additional attribution pairs, written as given.
	UTMParams map[string]string `json:"utm,omitempty"`

	// Universal generates an https link on Links.UniversalBase instead of a
	// custom-scheme link.
	Universal bool `json:"universal,omitempty"`
}

// GenerateURL builds a link for pattern. Placeholders are filled from params;
// other params become query parameters. Values are formatted with
// FormatParam.
func (m *Manager) GenerateURL(pattern string, params map[string]any, opts GenerateOptions) (string, error) {
	base := m.config.Links.Scheme + "://"
	if opts.Universal {
		if m.config.Links.UniversalBase == "" {
			return "", fmt.Errorf("universal links are not configured")
		}
		base = m.config.Links.UniversalBase
	}

	values := make(map[string]string, len(params))
	for k, v := range params {
		values[k] = FormatParam(v)
	}

	return router.GenerateURL(pattern, values, router.LinkOptions{
		Base:        base,
		Source:      opts.Source,
		Campaign:    opts.Campaign,
		Attribution: opts.UTMParams,
	})
}

// FormatParam renders a parameter value for a link. Floats use the shortest
// representation that round-trips; nil renders as "".
func FormatParam(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
