package middleware

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/waqiti-dev/deeplink/pkg/dispatch"
)

func newRecordingProvider(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, sr
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestOpenTelemetryMiddleware_RecordsSuccess(t *testing.T) {
	tp, sr := newRecordingProvider(t)
	mw := OpenTelemetry(
		WithTracerProvider(tp),
		WithAttributeExtractor(func(*dispatch.Request) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	)

	req := &dispatch.Request{URL: "waqiti://pay/m1?amount=5", Partial: dispatch.Partial{Source: dispatch.SourceQR, Campaign: "spring"}}
	mw.Handle(context.Background(), req, func(ctx context.Context, _ *dispatch.Request) dispatch.Result {
		if !trace.SpanContextFromContext(ctx).IsValid() {
			t.Fatal("expected a span in the context passed to next")
		}
		return dispatch.Result{Success: true, Route: "Payment", Pattern: "/pay/:merchantId"}
	})

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	s := spans[0]
	if s.Name() != SpanName {
		t.Errorf("span name = %q, want %q", s.Name(), SpanName)
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}

	attrs := spanAttrs(s)
	checks := map[attribute.Key]string{
		"deeplink.source":   "qr",
		"deeplink.campaign": "spring",
		"deeplink.pattern":  "/pay/:merchantId",
		"deeplink.route":    "Payment",
		"deeplink.outcome":  "success",
		"test.attr":         "ok",
	}
	for k, want := range checks {
		if got := attrs[k].AsString(); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if _, ok := attrs["deeplink.url"]; ok {
		t.Error("deeplink.url recorded without WithIncludeURL")
	}
}

func TestOpenTelemetryMiddleware_FailureSetsErrorStatus(t *testing.T) {
	tp, sr := newRecordingProvider(t)
	mw := OpenTelemetry(WithTracerProvider(tp), WithIncludeURL(true))

	mw.Handle(context.Background(), &dispatch.Request{URL: "/x", Replay: true, EntryID: "e1"}, resultNext(
		dispatch.Failure(dispatch.CodeRouteTimeout, "")))

	s := sr.Ended()[0]
	if s.Status().Code != codes.Error || s.Status().Description != "ROUTE_TIMEOUT" {
		t.Errorf("status = %+v, want Error ROUTE_TIMEOUT", s.Status())
	}
	attrs := spanAttrs(s)
	if attrs["deeplink.error_category"].AsString() != "internal" {
		t.Errorf("error_category = %q", attrs["deeplink.error_category"].AsString())
	}
	if !attrs["deeplink.replay"].AsBool() || attrs["deeplink.entry_id"].AsString() != "e1" {
		t.Errorf("replay attributes missing: %v", attrs)
	}
	if attrs["deeplink.url"].AsString() != "/x" {
		t.Errorf("deeplink.url = %q, want /x", attrs["deeplink.url"].AsString())
	}
	if attrs["deeplink.source"].AsString() != "app" {
		t.Errorf("deeplink.source = %q, want app", attrs["deeplink.source"].AsString())
	}
}

func TestOpenTelemetryMiddleware_FilterSkipsTracing(t *testing.T) {
	tp, sr := newRecordingProvider(t)
	mw := OpenTelemetry(
		WithTracerProvider(tp),
		WithRequestFilter(func(req *dispatch.Request) bool { return !req.Replay }),
	)

	nextCalled := false
	mw.Handle(context.Background(), &dispatch.Request{Replay: true}, func(ctx context.Context, _ *dispatch.Request) dispatch.Result {
		nextCalled = true
		if trace.SpanContextFromContext(ctx).IsValid() {
			t.Fatal("expected no span when filter skips tracing")
		}
		return dispatch.Success("Home", nil)
	})

	if !nextCalled {
		t.Fatal("expected next to be called")
	}
	if n := len(sr.Ended()); n != 0 {
		t.Fatalf("ended spans = %d, want 0", n)
	}
}

func TestOpenTelemetryMiddleware_GlobalProviderIsSafe(t *testing.T) {
	res := OpenTelemetry().Handle(context.Background(), &dispatch.Request{}, resultNext(dispatch.Success("Home", nil)))
	if !res.Success {
		t.Fatalf("result not passed through: %+v", res)
	}
}
