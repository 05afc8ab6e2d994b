package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/waqiti-dev/deeplink/pkg/analytics"
	"github.com/waqiti-dev/deeplink/pkg/auth"
	"github.com/waqiti-dev/deeplink/pkg/routepath"
	"github.com/waqiti-dev/deeplink/pkg/router"
	"github.com/waqiti-dev/deeplink/pkg/session"
)

// Defaults used when no option overrides them.
const (
	DefaultTimeout             = 10 * time.Second
	DefaultFallbackDestination = "Home"
	DefaultAuthDestination     = "Login"
)

// ErrNilHandler is returned by Register for a route without a handler.
var ErrNilHandler = errors.New("route handler is nil")

// Handler handles a matched link. params holds the path parameters plus the
// link's query parameters (path parameters win on a name clash). The handler
// performs domain validation, navigates rc.Host on success and returns its
// Result. A returned error is reported as HANDLING_ERROR.
type Handler func(ctx context.Context, params router.Params, rc *Context) (Result, error)

// Route binds a handler to a pattern and its access rules.
type Route struct {
	router.Definition
	Handler Handler
}

// Match is the outcome of matching a link without handling it.
type Match struct {
	Definition router.Definition `json:"definition"`
	Path       string            `json:"path"`
	Params     router.Params     `json:"params"`
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithTracker sets the analytics tracker. Default: analytics.Nop.
func WithTracker(t analytics.Tracker) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.tracker = t
		}
	}
}

// WithStore sets the store used to remember links interrupted by sign-in.
func WithStore(s session.Store) Option {
	return func(d *Dispatcher) {
		d.store = s
	}
}

// WithTimeout sets the budget for one routing attempt. Zero disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// WithMiddleware appends middleware. The first middleware is outermost.
func WithMiddleware(mws ...Middleware) Option {
	return func(d *Dispatcher) {
		d.middleware = append(d.middleware, mws...)
	}
}

// WithFallbackDestination sets where unmatched links navigate.
func WithFallbackDestination(name string) Option {
	return func(d *Dispatcher) {
		if name != "" {
			d.fallback = name
		}
	}
}

// WithAuthDestination sets where links requiring sign-in navigate.
func WithAuthDestination(name string) Option {
	return func(d *Dispatcher) {
		if name != "" {
			d.authDest = name
		}
	}
}

// WithDevice sets the device description used when callers supply none.
func WithDevice(info DeviceInfo) Option {
	return func(d *Dispatcher) {
		d.device = info
	}
}

// WithReplayObserver registers a callback invoked after each queued entry
// is replayed.
func WithReplayObserver(fn func(Entry, Result)) Option {
	return func(d *Dispatcher) {
		d.onReplay = fn
	}
}

// WithClock overrides the clock used for queue timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// Dispatcher routes links to handlers.
//
// It parses and matches a link, builds a fresh Context, enforces
// authentication and permission rules, invokes the handler and reports the
// outcome. Links routed before a navigation host is set are queued and
// replayed in order, exactly once, when SetHost is called.
//
// A Dispatcher is safe for concurrent use. Routes should be registered before
// traffic starts.
type Dispatcher struct {
	routes  *router.Registry[Handler]
	builder *Builder

	logger     *slog.Logger
	tracker    analytics.Tracker
	store      session.Store
	timeout    time.Duration
	middleware []Middleware
	observers  []QueueObserver
	fallback   string
	authDest   string
	device     DeviceInfo
	onReplay   func(Entry, Result)
	now        func() time.Time

	next Next

	mu       sync.Mutex
	host     Host
	pending  queue
	draining bool
}

// New creates a dispatcher that asks provider for identity.
func New(provider auth.Provider, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		routes:   router.NewRegistry[Handler](),
		logger:   slog.Default(),
		tracker:  analytics.Nop{},
		timeout:  DefaultTimeout,
		fallback: DefaultFallbackDestination,
		authDest: DefaultAuthDestination,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.builder = NewBuilder(provider, d.device)
	for _, mw := range d.middleware {
		if obs, ok := mw.(QueueObserver); ok {
			d.observers = append(d.observers, obs)
		}
	}
	d.next = chain(d.middleware, d.dispatch)
	return d
}

// Register appends a route. Registration order decides which of several
// overlapping patterns wins.
func (d *Dispatcher) Register(r Route) error {
	if r.Handler == nil {
		return fmt.Errorf("%w: %s", ErrNilHandler, r.Pattern)
	}
	return d.routes.Register(r.Definition, r.Handler)
}

// Routes returns the registered routes in registration order.
func (d *Dispatcher) Routes() []Route {
	entries := d.routes.All()
	out := make([]Route, len(entries))
	for i, e := range entries {
		out[i] = Route{Definition: e.Definition, Handler: e.Value}
	}
	return out
}

// Shadowed lists routes that can never match because an earlier route
// matches every path they would.
func (d *Dispatcher) Shadowed() []router.Shadow {
	return d.routes.Shadowed()
}

// Lookup parses and matches raw without building a context or invoking a
// handler. Params include query parameters, as a handler would see them.
func (d *Dispatcher) Lookup(raw string) (Match, bool) {
	parsed, ok := routepath.Parse(raw)
	if !ok {
		return Match{}, false
	}
	entry, params, ok := d.routes.Match(parsed.Path)
	if !ok {
		return Match{Path: parsed.Path}, false
	}
	return Match{
		Definition: entry.Definition,
		Path:       parsed.Path,
		Params:     mergeParams(params, parsed.Query),
	}, true
}

// Route routes raw. It never panics and never returns an error: every
// outcome, including internal failures, is a Result.
func (d *Dispatcher) Route(ctx context.Context, raw string, p Partial) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("routing middleware panic", "url", raw, "panic", r)
			res = Failure(CodeRoutingError, fmt.Sprintf("panic: %v", r))
		}
	}()
	return d.next(ctx, &Request{URL: raw, Partial: p})
}

// SetHost installs the navigation host and replays every queued link, in
// enqueue order, before returning. Links routed while the replay runs are
// queued behind it and replayed by the same call. It returns the number of
// entries replayed.
//
// Passing nil is equivalent to ClearHost.
func (d *Dispatcher) SetHost(ctx context.Context, h Host) int {
	d.mu.Lock()
	d.host = h
	if h == nil || d.draining {
		d.mu.Unlock()
		return 0
	}
	d.draining = true
	d.mu.Unlock()

	return d.drain(ctx)
}

// ClearHost marks the navigation host as gone. Subsequent links are queued.
func (d *Dispatcher) ClearHost() {
	d.mu.Lock()
	d.host = nil
	d.mu.Unlock()
}

// Ready reports whether a navigation host is installed.
func (d *Dispatcher) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.host != nil
}

// Pending returns a copy of the queued entries, oldest first.
func (d *Dispatcher) Pending() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending.snapshot()
}

// ResumePending routes the link remembered before an authentication
// redirect, if any, and forgets it. It reports false when nothing was
// pending.
func (d *Dispatcher) ResumePending(ctx context.Context, p Partial) (Result, bool) {
	if d.store == nil {
		return Result{}, false
	}
	raw, ok, err := session.Take(ctx, d.store, session.PendingLinkKey)
	if err != nil {
		d.logger.Warn("pending link store failed", "error", err)
	}
	if !ok {
		return Result{}, false
	}
	return d.Route(ctx, raw, p), true
}

// dispatch is the innermost step of the middleware chain.
func (d *Dispatcher) dispatch(ctx context.Context, req *Request) Result {
	host := req.host
	if !req.Replay || host == nil {
		d.mu.Lock()
		if d.host == nil || d.draining {
			e := d.pending.push(req.URL, req.Partial, d.now())
			depth := d.pending.len()
			d.mu.Unlock()

			d.observeQueue(depth)
			d.logger.Debug("link queued", "url", req.URL, "entry_id", e.ID, "queue_depth", depth)
			d.track(ctx, analytics.EventQueued, analytics.Props{
				"url":         req.URL,
				"entry_id":    e.ID,
				"source":      string(sourceOrDefault(req.Partial.Source)),
				"queue_depth": depth,
			})

			res := Failure(CodeNavigationNotReady, "")
			res.Queued = true
			return res
		}
		host = d.host
		d.mu.Unlock()
	}
	return d.execute(ctx, host, req)
}

// drain replays queued entries one at a time until the queue is empty or
// the host goes away.
func (d *Dispatcher) drain(ctx context.Context) int {
	replayed := 0
	for {
		d.mu.Lock()
		host := d.host
		if host == nil || d.pending.len() == 0 {
			d.draining = false
			depth := d.pending.len()
			d.mu.Unlock()
			d.observeQueue(depth)
			if replayed > 0 {
				d.logger.Info("pending links replayed", "count", replayed)
			}
			return replayed
		}
		e, _ := d.pending.pop()
		depth := d.pending.len()
		d.mu.Unlock()

		d.observeQueue(depth)
		d.replay(ctx, host, e)
		replayed++
	}
}

func (d *Dispatcher) replay(ctx context.Context, host Host, e Entry) {
	res := d.next(ctx, &Request{URL: e.URL, Partial: e.Partial, Replay: true, EntryID: e.ID, host: host})

	d.track(ctx, analytics.EventReplayed, analytics.Props{
		"url":           e.URL,
		"entry_id":      e.ID,
		"queued_for_ms": d.now().Sub(e.EnqueuedAt).Milliseconds(),
		"success":       res.Success,
		"error_code":    string(res.ErrorCode),
	})
	if d.onReplay != nil {
		d.onReplay(e, res)
	}
}

// attempt accumulates what is known about one routing attempt.
type attempt struct {
	result  Result
	pattern string
	rc      *Context
}

// execute runs the attempt under the timeout budget and converts panics and
// expiry into Results.
func (d *Dispatcher) execute(ctx context.Context, host Host, req *Request) Result {
	start := time.Now()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	done := make(chan attempt, 1)
	go func() {
		var a attempt
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("routing panic", "url", req.URL, "panic", r)
				a.result = Failure(CodeRoutingError, fmt.Sprintf("panic: %v", r))
				a.result.Pattern = a.pattern
			}
			done <- a
		}()
		d.process(ctx, host, req, &a)
	}()

	var a attempt
	select {
	case a = <-done:
	case <-ctx.Done():
		select {
		case a = <-done:
		default:
			a = d.abandoned(ctx.Err(), req)
		}
	}

	d.trackRouted(context.WithoutCancel(ctx), req, a, time.Since(start))
	return a.result
}

func (d *Dispatcher) abandoned(err error, req *Request) attempt {
	if errors.Is(err, context.DeadlineExceeded) {
		d.logger.Warn("routing timed out", "url", req.URL, "timeout", d.timeout)
		return attempt{result: Failure(CodeRouteTimeout, "")}
	}
	return attempt{result: Failure(CodeRoutingError, err.Error())}
}

// process runs the routing steps, filling a as it goes.
func (d *Dispatcher) process(ctx context.Context, host Host, req *Request, a *attempt) {
	parsed, ok := routepath.Parse(req.URL)
	if !ok {
		d.structuralFallback(ctx, host)
		a.result = Failure(CodeInvalidURL, "")
		a.result.Route = d.fallback
		return
	}

	entry, pathParams, ok := d.routes.Match(parsed.Path)
	if !ok {
		d.structuralFallback(ctx, host)
		a.result = Failure(CodeRouteNotFound, "")
		a.result.Route = d.fallback
		return
	}
	a.pattern = entry.Pattern

	rc, err := d.builder.build(ctx, req.URL, parsed.Query, req.Partial)
	if err != nil {
		a.result = Failure(CodeRoutingError, err.Error())
		a.result.Pattern = entry.Pattern
		return
	}
	rc.Host = host
	a.rc = rc

	if entry.RequiresAuth && !rc.IsAuthenticated {
		d.rememberPending(ctx, req.URL)
		d.navigate(ctx, host, d.authDest, map[string]any{"redirect": req.URL})
		res := Action(CodeAuthRequired, ActionAuthenticate, map[string]any{"url": req.URL})
		res.Route = d.authDest
		res.Pattern = entry.Pattern
		a.result = res
		return
	}

	if entry.Permission != "" && !rc.User.HasPermission(entry.Permission) {
		res := Action(CodePermissionDenied, ActionPermissions, map[string]any{"permission": entry.Permission})
		res.Pattern = entry.Pattern
		a.result = res
		return
	}

	res, err := entry.Value(ctx, mergeParams(pathParams, parsed.Query), rc)
	switch {
	case err != nil:
		d.logger.Warn("route handler failed", "pattern", entry.Pattern, "error", err)
		res = Failure(CodeHandlingError, err.Error())
	case !res.Success && res.ErrorCode == "":
		res.ErrorCode = CodeHandlingError
		if res.ErrorMessage == "" {
			res.ErrorMessage = CodeHandlingError.Message()
		}
	}
	if res.Pattern == "" {
		res.Pattern = entry.Pattern
	}
	a.result = res
}

func (d *Dispatcher) rememberPending(ctx context.Context, raw string) {
	if d.store == nil {
		return
	}
	if err := d.store.Set(ctx, session.PendingLinkKey, raw); err != nil {
		d.logger.Warn("could not remember pending link", "url", raw, "error", err)
	}
}

// NavigateFallback sends the current host to the fallback destination. It
// does nothing without a host.
func (d *Dispatcher) NavigateFallback(ctx context.Context) {
	d.mu.Lock()
	host := d.host
	d.mu.Unlock()
	d.navigate(ctx, host, d.fallback, nil)
}

// structuralFallback navigates to the fallback destination after an
// unreadable or unmatched link, unless ctx defers that to the caller.
func (d *Dispatcher) structuralFallback(ctx context.Context, host Host) {
	if fallbackDeferred(ctx) {
		return
	}
	d.navigate(ctx, host, d.fallback, nil)
}

// navigate is used for the dispatcher's own fallback navigations. Failures
// are logged; the Result already describes the outcome.
func (d *Dispatcher) navigate(ctx context.Context, host Host, destination string, params map[string]any) {
	if host == nil {
		return
	}
	if err := ctx.Err(); err != nil {
		d.logger.Warn("fallback navigation skipped", "destination", destination, "error", err)
		return
	}
	if err := host.Navigate(ctx, destination, params); err != nil {
		d.logger.Warn("fallback navigation failed", "destination", destination, "error", err)
	}
}

func (d *Dispatcher) observeQueue(depth int) {
	for _, obs := range d.observers {
		obs.ObserveQueueDepth(depth)
	}
}

func (d *Dispatcher) trackRouted(ctx context.Context, req *Request, a attempt, elapsed time.Duration) {
	props := analytics.Props{
		"url":         req.URL,
		"pattern":     a.pattern,
		"success":     a.result.Success,
		"route":       a.result.Route,
		"error_code":  string(a.result.ErrorCode),
		"source":      string(sourceOrDefault(req.Partial.Source)),
		"campaign":    req.Partial.Campaign,
		"user_id":     "",
		"replay":      req.Replay,
		"duration_ms": elapsed.Milliseconds(),
	}
	if a.rc != nil {
		props["source"] = string(a.rc.Source)
		props["campaign"] = a.rc.Campaign
		props["user_id"] = a.rc.UserID()
		props["request_id"] = a.rc.RequestID
	}
	d.track(ctx, analytics.EventRouted, props)
}

// track reports an event. Tracking failures are logged, never propagated.
func (d *Dispatcher) track(ctx context.Context, event string, props analytics.Props) {
	if err := d.tracker.Track(ctx, event, props); err != nil {
		d.logger.Warn("analytics tracking failed", "event", event, "error", err)
	}
}

func sourceOrDefault(s Source) Source {
	if s == "" {
		return SourceApp
	}
	return s
}

// mergeParams combines query and path parameters. Path parameters win.
func mergeParams(path router.Params, query url.Values) router.Params {
	out := make(router.Params, len(path)+len(query))
	for k, vs := range query {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	for k, v := range path {
		out[k] = v
	}
	return out
}
