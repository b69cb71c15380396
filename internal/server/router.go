// Package server assembles the HTTP surface: the API dispatcher behind the
// rate limiter, health and metrics endpoints, and optional static files.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telhawk-systems/schoolhub/common/logging"
	"github.com/telhawk-systems/schoolhub/common/middleware"
	"github.com/telhawk-systems/schoolhub/internal/dispatch"
	"github.com/telhawk-systems/schoolhub/internal/ratelimit"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type Options struct {
	// API serves everything under /api/.
	API     http.Handler
	Limiter ratelimit.Limiter
	Logger  *logging.Logger

	TrustProxy  bool
	CORSOrigins []string
	// StaticDir is served under /static/ when set.
	StaticDir string
	// MetricsPath exposes Prometheus metrics when set.
	MetricsPath string
	Checks      map[string]HealthCheck
}

// NewRouter constructs the root handler.
func NewRouter(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NoOpLimiter{}
	}

	mux := http.NewServeMux()

	api := ratelimit.Middleware(opts.Limiter, opts.TrustProxy, opts.Logger.Logger)(opts.API)
	mux.Handle(dispatch.Prefix, api)

	mux.HandleFunc("GET /healthz", health(opts.Checks))

	if opts.MetricsPath != "" {
		mux.Handle("GET "+opts.MetricsPath, promhttp.Handler())
	}
	if opts.StaticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", dispatch.TokenHeader, "X-Device-Id", middleware.RequestIDHeader},
		ExposedHeaders: []string{
			"RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "RateLimit-Policy",
			"Retry-After", middleware.RequestIDHeader,
		},
	})

	return middleware.RequestID(logging.AccessLog(opts.Logger)(cors(mux)))
}

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func health(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := healthStatus{Status: "ok"}
		code := http.StatusOK

		if len(checks) > 0 {
			out.Checks = make(map[string]string, len(checks))
			for name, check := range checks {
				if err := check(r.Context()); err != nil {
					out.Checks[name] = err.Error()
					out.Status = "degraded"
					code = http.StatusServiceUnavailable
					continue
				}
				out.Checks[name] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(out)
	}
}
