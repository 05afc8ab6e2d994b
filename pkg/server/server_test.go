package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/waqiti-dev/deeplink"
	"github.com/waqiti-dev/deeplink/pkg/auth"
	"github.com/waqiti-dev/deeplink/pkg/dispatch"
	"github.com/waqiti-dev/deeplink/pkg/linktest"
	"github.com/waqiti-dev/deeplink/pkg/router"
	"github.com/waqiti-dev/deeplink/pkg/session"
)

var testSecret = []byte("test-secret")

func navigateTo(dest string) dispatch.Handler {
	return func(ctx context.Context, params router.Params, rc *dispatch.Context) (dispatch.Result, error) {
		out := map[string]any{}
		for k, v := range params {
			out[k] = v
		}
		if err := rc.Navigate(ctx, dest, out); err != nil {
			return dispatch.Result{}, err
		}
		return dispatch.Success(dest, out), nil
	}
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *deeplink.Manager) {
	t.Helper()
	store := session.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	d := dispatch.New(auth.ContextProvider{}, dispatch.WithStore(store))
	for _, r := range []dispatch.Route{
		{Definition: router.Definition{Pattern: "/home"}, Handler: navigateTo("Home")},
		{Definition: router.Definition{Pattern: "/pay/:merchantId", RequiresAuth: true}, Handler: navigateTo("Payment")},
	} {
		if err := d.Register(r); err != nil {
			t.Fatal(err)
		}
	}
	m := deeplink.New(deeplink.DefaultConfig(), d, nil)

	opts = append([]Option{WithVerifier(auth.NewJWTVerifier(testSecret))}, opts...)
	return New(m, nil, opts...), m
}

func bearer(t *testing.T, sub string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return "Bearer " + token
}

func do(t *testing.T, s *Server, method, target, body, authz string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) dispatch.Result {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res dispatch.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return res
}

func TestHealth(t *testing.T) {
	s, m := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"hostReady":false`) {
		t.Errorf("body = %s, want hostReady false", rec.Body.String())
	}

	m.SetHost(context.Background(), linktest.NewHost())
	if rec := do(t, s, http.MethodGet, "/healthz", "", ""); !strings.Contains(rec.Body.String(), `"hostReady":true`) {
		t.Errorf("body = %s, want hostReady true", rec.Body.String())
	}
}

func TestRouteQueuesWithoutHost(t *testing.T) {
	s, m := newTestServer(t)

	res := decodeResult(t, do(t, s, http.MethodPost, "/v1/links/route", `{"url":"waqiti://home","source":"qr"}`, ""))
	if !res.Queued || res.ErrorCode != dispatch.CodeNavigationNotReady {
		t.Fatalf("result = %+v, want queued", res)
	}

	host := linktest.NewHost()
	if n := m.SetHost(context.Background(), host); n != 1 {
		t.Errorf("replayed %d, want 1", n)
	}
	linktest.ExpectNavigated(t, host, "Home")
}

func TestRouteUsesBearerIdentity(t *testing.T) {
	s, m := newTestServer(t)
	host := linktest.NewHost()
	m.SetHost(context.Background(), host)

	res := decodeResult(t, do(t, s, http.MethodPost, "/v1/links/route", `{"url":"waqiti://pay/m1"}`, ""))
	if res.ErrorCode != dispatch.CodeAuthRequired || res.Route != "Login" {
		t.Fatalf("anonymous result = %+v, want AUTH_REQUIRED to Login", res)
	}

	res = decodeResult(t, do(t, s, http.MethodPost, "/v1/links/route", `{"url":"waqiti://pay/m1"}`, "Bearer not-a-token"))
	if res.ErrorCode != dispatch.CodeAuthRequired {
		t.Errorf("invalid token result = %+v, want AUTH_REQUIRED", res)
	}

	res = decodeResult(t, do(t, s, http.MethodPost, "/v1/links/route", `{"url":"waqiti://pay/m1"}`, bearer(t, "u1")))
	linktest.ExpectSuccess(t, res, "Payment")
	nav := linktest.ExpectNavigated(t, host, "Payment")
	if nav.Params["merchantId"] != "m1" {
		t.Errorf("navigation params = %v", nav.Params)
	}
}

func TestRouteFailureIsNotHTTPError(t *testing.T) {
	s, m := newTestServer(t)
	m.SetHost(context.Background(), linktest.NewHost())

	res := decodeResult(t, do(t, s, http.MethodPost, "/v1/links/route", `{"url":"waqiti://nowhere"}`, ""))
	if res.ErrorCode != dispatch.CodeRouteNotFound || res.Route != "Home" {
		t.Errorf("result = %+v, want ROUTE_NOT_FOUND to Home", res)
	}
}

func TestResume(t *testing.T) {
	s, m := newTestServer(t)
	m.SetHost(context.Background(), linktest.NewHost())

	if rec := do(t, s, http.MethodPost, "/v1/links/resume", "", bearer(t, "u1")); rec.Code != http.StatusNotFound {
		t.Fatalf("resume with nothing pending: status = %d, want 404", rec.Code)
	}

	do(t, s, http.MethodPost, "/v1/links/route", `{"url":"waqiti://pay/m1"}`, "")

	res := decodeResult(t, do(t, s, http.MethodPost, "/v1/links/resume", `{"source":"app"}`, bearer(t, "u1")))
	linktest.ExpectSuccess(t, res, "Payment")

	if rec := do(t, s, http.MethodPost, "/v1/links/resume", "", bearer(t, "u1")); rec.Code != http.StatusNotFound {
		t.Errorf("second resume: status = %d, want 404", rec.Code)
	}
}

func TestBadRequests(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"route empty body", http.MethodPost, "/v1/links/route", ""},
		{"route malformed json", http.MethodPost, "/v1/links/route", `{"url":`},
		{"route missing url", http.MethodPost, "/v1/links/route", `{"source":"qr"}`},
		{"route unknown source", http.MethodPost, "/v1/links/route", `{"url":"waqiti://home","source":"carrier-pigeon"}`},
		{"resume unknown source", http.MethodPost, "/v1/links/resume", `{"source":"fax"}`},
		{"generate missing pattern", http.MethodPost, "/v1/links/generate", `{"params":{}}`},
		{"generate missing param", http.MethodPost, "/v1/links/generate", `{"pattern":"/pay/:merchantId"}`},
		{"generate invalid pattern", http.MethodPost, "/v1/links/generate", `{"pattern":"/a/:b?/c","params":{"b":"x"}}`},
		{"test missing url", http.MethodGet, "/v1/links/test", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.target, tt.body, "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" {
				t.Errorf("error body = %s", rec.Body.String())
			}
		})
	}
}

func TestBodyLimit(t *testing.T) {
	s, _ := newTestServer(t)
	big := `{"url":"waqiti://home","campaign":"` + strings.Repeat("x", int(s.Config().MaxBodyBytes)) + `"}`
	if rec := do(t, s, http.MethodPost, "/v1/links/route", big, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGenerate(t *testing.T) {
	s, _ := newTestServer(t)

	body := `{"pattern":"/pay/:merchantId","params":{"merchantId":"m1","amount":25.5},"source":"qr","campaign":"spring"}`
	rec := do(t, s, http.MethodPost, "/v1/links/generate", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	want := "waqiti://pay/m1?amount=25.5&utm_campaign=spring&utm_source=qr"
	if out["url"] != want {
		t.Errorf("url = %q, want %q", out["url"], want)
	}

	rec = do(t, s, http.MethodPost, "/v1/links/generate", `{"pattern":"/home","universal":true}`, "")
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out["url"] != "https://waqiti.com/home" {
		t.Errorf("universal url = %q", out["url"])
	}
}

func TestTestURL(t *testing.T) {
	s, m := newTestServer(t)
	host := linktest.NewHost()
	m.SetHost(context.Background(), host)

	rec := do(t, s, http.MethodGet, "/v1/links/test?url="+"waqiti%3A%2F%2Fpay%2Fm1%3Famount%3D5", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var res deeplink.TestResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Matches || res.Route == nil || res.Route.Pattern != "/pay/:merchantId" {
		t.Fatalf("result = %+v", res)
	}
	if res.Params["merchantId"] != "m1" || res.Params["amount"] != "5" {
		t.Errorf("params = %v", res.Params)
	}
	linktest.ExpectNoNavigation(t, host)
}

func TestRoutes(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/v1/routes", "", "")
	var defs []router.Definition
	if err := json.Unmarshal(rec.Body.Bytes(), &defs); err != nil {
		t.Fatal(err)
	}
	if len(defs) != 2 || defs[0].Pattern != "/home" || defs[1].Pattern != "/pay/:merchantId" || !defs[1].RequiresAuth {
		t.Errorf("routes = %+v", defs)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "deeplink_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	s, _ := newTestServer(t, WithGatherer(reg))
	rec := do(t, s, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "deeplink_test_total 1") {
		t.Errorf("metrics = %d %s", rec.Code, rec.Body.String())
	}

	s, _ = newTestServer(t)
	if rec := do(t, s, http.MethodGet, "/metrics", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("metrics without gatherer: status = %d, want 404", rec.Code)
	}
}

func TestConfigDefaults(t *testing.T) {
	got := (&Config{Address: ":9000"}).withDefaults()
	if got.Address != ":9000" || got.HostPath != "/v1/host" || got.CheckOrigin == nil || got.MaxBodyBytes != 64*1024 {
		t.Errorf("withDefaults() = %+v", got)
	}
	if (*Config)(nil).withDefaults().Address != ":8080" {
		t.Error("nil config did not use defaults")
	}

	orig := &Config{TrustedProxies: []string{"10.0.0.1"}}
	clone := orig.Clone()
	clone.TrustedProxies[0] = "changed"
	if orig.TrustedProxies[0] != "10.0.0.1" {
		t.Error("Clone shares TrustedProxies")
	}
}

func TestSameOriginCheck(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://links.example.com", true},
		{"https://evil.example.com", false},
		{"://bad", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "http://links.example.com/v1/host", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := SameOriginCheck(req); got != tt.want {
			t.Errorf("SameOriginCheck(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestShutdownWithoutListen(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() = %v", err)
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	s.config.Address = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("ListenAndServe() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after cancel")
	}
}
