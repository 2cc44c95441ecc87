package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"cpfregistry/internal/platform/metrics"
	"cpfregistry/internal/platform/middleware"
	"cpfregistry/internal/platform/ratelimit"
	dErrors "cpfregistry/pkg/domain-errors"
	"cpfregistry/pkg/platform/httputil"
)

// Routes is implemented by feature handlers that mount their own endpoints.
type Routes interface {
	Register(r chi.Router)
}

// Deps carries everything NewRouter wires. Only Logger and Routes are required.
type Deps struct {
	Logger  *slog.Logger
	Routes  []Routes
	Health  HealthChecker
	Metrics *metrics.Metrics
	// Gatherer backs GET /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer

	CORSOrigins    []string
	TrustProxy     bool
	RequestTimeout time.Duration

	// RateLimit nil disables limiting on API routes.
	RateLimit      *ratelimit.Store
	RateLimitStats ratelimit.StatsStore
}

// NewRouter wires the middleware chain, operational endpoints, and feature
// routes. Health and metrics endpoints are not rate limited.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientIP(deps.TrustProxy))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Latency(deps.Metrics))
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORS(deps.CORSOrigins))
	r.Use(chimw.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeMethodNotAllowed, "method not allowed"))
	})

	r.Get("/health", healthHandler(deps.Health, logger))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Group(func(api chi.Router) {
		api.Use(middleware.ContentTypeJSON)
		if deps.RateLimit != nil {
			api.Use(ratelimit.Middleware(ratelimit.Options{
				Store:   deps.RateLimit,
				Stats:   deps.RateLimitStats,
				Logger:  logger,
				Metrics: deps.Metrics,
			}))
		}
		for _, routes := range deps.Routes {
			routes.Register(api)
		}
	})

	return r
}
