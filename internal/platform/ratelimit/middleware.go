package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"cpfregistry/internal/platform/metrics"
	dErrors "cpfregistry/pkg/domain-errors"
	"cpfregistry/pkg/platform/httputil"
	"cpfregistry/pkg/requestcontext"
)

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(r *http.Request) string

// Options configures Middleware. Store is required; the rest are optional.
type Options struct {
	Store   *Store
	Stats   StatsStore
	KeyFn   KeyFunc
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// ClientIPKey charges requests to the client IP captured by middleware.ClientIP,
// falling back to the raw remote address.
func ClientIPKey(r *http.Request) string {
	if ip := requestcontext.ClientIP(r.Context()); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// Middleware rejects requests over the per-key rate with 429 and Retry-After.
func Middleware(opts Options) func(http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = ClientIPKey
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			dec := opts.Store.Decide(key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(opts.Store.Burst()))
			if opts.Stats != nil {
				ev := StatsEvent{
					Key:     key,
					Allowed: dec.Allowed,
					Method:  r.Method,
					Route:   routeOf(r),
					At:      requestcontext.Now(r.Context()),
				}
				if err := opts.Stats.Record(r.Context(), ev); err != nil {
					opts.Logger.WarnContext(r.Context(), "failed to record rate limit stats",
						"request_id", requestcontext.RequestID(r.Context()),
						"error", err,
					)
				}
			}

			if !dec.Allowed {
				opts.Metrics.IncrementRateLimited()
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(dec.RetryAfter)))
				httputil.WriteError(w, dErrors.New(dErrors.CodeTooManyRequests, "too many requests, please try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// routeOf returns the full chi pattern for r. Group middleware runs before
// mounted subrouters have matched, so the pattern is resolved against the root
// routes. Unmatched requests report "*" so raw paths never become stats keys.
func routeOf(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "*"
	}
	if rctx.Routes != nil {
		path := r.URL.RawPath
		if path == "" {
			path = r.URL.Path
		}
		tctx := chi.NewRouteContext()
		if rctx.Routes.Match(tctx, r.Method, path) {
			if p := tctx.RoutePattern(); p != "" {
				return p
			}
		}
	}
	if p := rctx.RoutePattern(); p != "" && !strings.HasSuffix(p, "/*") {
		return p
	}
	return "*"
}
