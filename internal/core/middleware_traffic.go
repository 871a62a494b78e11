package core

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/httprate"
	"github.com/klauspost/compress/gzhttp"

	"dashboard/internal/types"
)

// compressionMinSize is the smallest body gzhttp will compress. Short error
// bodies and status payloads are cheaper to send as-is.
const compressionMinSize = 1024

// RateLimit returns a per-client gate using a sliding window counter from
// go-chi/httprate. Clients are keyed by their real IP (X-Forwarded-For,
// X-Real-IP, then RemoteAddr).
//
// httprate sets the X-RateLimit-* headers on every response. When the limit
// is hit it also sets Retry-After, which is mirrored into the body as
// retryAfterSeconds on a 429 RATE_LIMITED error.
//
// When rate limiting is disabled the middleware passes through.
func (s *Server) RateLimit() func(http.Handler) http.Handler {
	if s.Config == nil || !s.Config.RateLimit.Enabled || s.Config.RateLimit.Requests <= 0 {
		return passThrough
	}

	limit := s.Config.RateLimit
	windowSeconds := int(limit.Window.Seconds())
	if windowSeconds < 1 {
		windowSeconds = 1
	}

	onLimit := func(w http.ResponseWriter, r *http.Request) {
		retryAfter := windowSeconds
		if v, err := strconv.Atoi(w.Header().Get("Retry-After")); err == nil && v > 0 {
			retryAfter = v
		}

		types.LoggerFromContext(r.Context(), s.Logger).Warn("rate limit exceeded",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("retry_after_seconds", retryAfter),
		)
		if rec, ok := s.Metrics.(RateLimitRecorder); ok {
			rec.RecordRateLimited()
		}

		appErr := types.NewAppError(types.ErrCodeRateLimited, "too many requests, retry later", nil)
		appErr.RetryAfterSeconds = retryAfter
		Error(w, r, appErr)
	}

	return httprate.Limit(
		limit.Requests,
		limit.Window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(onLimit),
	)
}

// Compression returns gzip middleware from klauspost/compress. Clients that
// do not send Accept-Encoding: gzip receive uncompressed bodies.
//
// When compression is disabled, or the wrapper cannot be built, the
// middleware passes through.
func (s *Server) Compression() func(http.Handler) http.Handler {
	if s.Config == nil || !s.Config.Server.EnableCompression {
		return passThrough
	}

	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(compressionMinSize))
	if err != nil {
		s.Logger.Error("compression disabled", "error", err)
		return passThrough
	}

	return func(next http.Handler) http.Handler {
		return wrap(next)
	}
}

func passThrough(next http.Handler) http.Handler {
	return next
}
