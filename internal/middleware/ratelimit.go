package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/zentra/emojigen/internal/utils"
)

// Counter counts hits per key inside a window. database.RateCounter is the
// Redis-backed implementation.
type Counter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimitMiddleware limits requests per user, or per IP for anonymous callers
func RateLimitMiddleware(counter Counter, rps int) func(http.Handler) http.Handler {
	return limit(counter, rps, time.Second, func(r *http.Request) string {
		if userID, ok := GetUserID(r.Context()); ok {
			return "user:" + userID
		}
		return "ip:" + getClientIP(r)
	})
}

// StrictRateLimitMiddleware applies a per-minute budget per path and caller.
// Generation calls a paid provider, so it gets this one.
func StrictRateLimitMiddleware(counter Counter, perMinute int) func(http.Handler) http.Handler {
	return limit(counter, perMinute, time.Minute, func(r *http.Request) string {
		caller := getClientIP(r)
		if userID, ok := GetUserID(r.Context()); ok {
			caller = userID
		}
		return fmt.Sprintf("strict:%s:%s", r.URL.Path, caller)
	})
}

func limit(counter Counter, max int, window time.Duration, keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if max <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			count, err := counter.Increment(r.Context(), keyFn(r), window)
			if err != nil {
				// Fail open: a Redis outage should not take the API down with it.
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(max) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", max))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

			if count > int64(max) {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
				utils.RespondError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
