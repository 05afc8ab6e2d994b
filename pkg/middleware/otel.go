package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/waqiti-dev/deeplink/pkg/dispatch"
)

// Default tracer name for link routing spans.
const defaultTracerName = "github.com/waqiti-dev/deeplink"

// SpanName is the name of the span started for each routing call.
const SpanName = "deeplink.route"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer.
	TracerName string

	// TracerProvider supplies the tracer. Default: the global provider.
	TracerProvider trace.TracerProvider

	// IncludeURL records the raw link on the span. Links can carry
	// personal data in their query string, so this is off by default.
	IncludeURL bool

	// Filter determines which requests to trace.
	// Return true to trace the request, false to skip.
	// If nil, all requests are traced.
	Filter func(req *dispatch.Request) bool

	// AttributeExtractor adds custom attributes for each traced request.
	AttributeExtractor func(req *dispatch.Request) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludeURL enables recording the raw link on spans.
func WithIncludeURL(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeURL = include
	}
}

// WithRequestFilter sets a filter function for requests.
func WithRequestFilter(filter func(req *dispatch.Request) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(req *dispatch.Request) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
	}
}

// OpenTelemetry creates dispatch middleware that starts one span per routing
// call, replays included.
//
// The span carries the link source and replay flag on start, and the matched
// pattern, outcome and destination on completion. Failed results set the span
// status to Error with the error code. The span context is passed down the
// chain, so handlers and collaborators inherit it through ctx.
//
// Example:
//
//	d := dispatch.New(provider, dispatch.WithMiddleware(
//	    middleware.OpenTelemetry(middleware.WithTracerName("waqiti-links")),
//	))
func OpenTelemetry(opts ...OTelOption) dispatch.Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(config.TracerName)

	return dispatch.MiddlewareFunc(func(ctx context.Context, req *dispatch.Request, next dispatch.Next) dispatch.Result {
		if config.Filter != nil && !config.Filter(req) {
			return next(ctx, req)
		}

		source := req.Partial.Source
		if source == "" {
			source = dispatch.SourceApp
		}
		attrs := []attribute.KeyValue{
			attribute.String("deeplink.source", string(source)),
			attribute.Bool("deeplink.replay", req.Replay),
		}
		if req.EntryID != "" {
			attrs = append(attrs, attribute.String("deeplink.entry_id", req.EntryID))
		}
		if req.Partial.Campaign != "" {
			attrs = append(attrs, attribute.String("deeplink.campaign", req.Partial.Campaign))
		}
		if config.IncludeURL {
			attrs = append(attrs, attribute.String("deeplink.url", req.URL))
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(req)...)
		}

		spanCtx, span := tracer.Start(ctx, SpanName,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		res := next(spanCtx, req)

		span.SetAttributes(
			attribute.String("deeplink.outcome", res.Outcome()),
			attribute.Bool("deeplink.queued", res.Queued),
		)
		if res.Pattern != "" {
			span.SetAttributes(attribute.String("deeplink.pattern", res.Pattern))
		}
		if res.Route != "" {
			span.SetAttributes(attribute.String("deeplink.route", res.Route))
		}

		if res.Success {
			span.SetStatus(codes.Ok, "")
		} else {
			span.SetAttributes(attribute.String("deeplink.error_category", string(res.Category())))
			span.SetStatus(codes.Error, string(res.ErrorCode))
		}
		return res
	})
}
