package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/waqiti-dev/deeplink/pkg/dispatch"
)

// Logging creates dispatch middleware that writes one structured record per
// routing call. Successes log at debug level. Structural and domain failures
// log at info, and internal failures at warn.
func Logging(logger *slog.Logger) dispatch.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return dispatch.MiddlewareFunc(func(ctx context.Context, req *dispatch.Request, next dispatch.Next) dispatch.Result {
		start := time.Now()
		res := next(ctx, req)

		level := slog.LevelDebug
		if !res.Success {
			level = slog.LevelInfo
			if res.Category() == dispatch.CategoryInternal {
				level = slog.LevelWarn
			}
		}
		if !logger.Enabled(ctx, level) {
			return res
		}

		attrs := []slog.Attr{
			slog.String("outcome", res.Outcome()),
			slog.String("pattern", res.Pattern),
			slog.String("route", res.Route),
			slog.Bool("replay", req.Replay),
			slog.Duration("duration", time.Since(start)),
		}
		if !res.Success {
			attrs = append(attrs, slog.String("error", res.ErrorMessage))
		}
		logger.LogAttrs(ctx, level, "link routed", attrs...)
		return res
	})
}
