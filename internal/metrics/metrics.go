package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LabelUnknown is used for module and function when a route does not resolve.
const LabelUnknown = "unknown"

var (
	// API dispatch metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schoolhub_api_requests_total",
			Help: "Total number of API requests by module, function and response code",
		},
		[]string{"module", "function", "code"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schoolhub_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"module", "function"},
	)

	HandlerPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schoolhub_api_handler_panics_total",
			Help: "Total number of recovered handler panics",
		},
		[]string{"module", "function"},
	)

	// Rate limiting metrics
	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "schoolhub_ratelimit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	RateLimitErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "schoolhub_ratelimit_errors_total",
			Help: "Total number of rate limiter store failures (requests were allowed)",
		},
	)

	// Token metrics
	TokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schoolhub_tokens_issued_total",
			Help: "Total number of tokens issued by kind",
		},
		[]string{"kind"},
	)

	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schoolhub_auth_failures_total",
			Help: "Total number of authentication failures by reason",
		},
		[]string{"reason"},
	)

	// Event publishing metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schoolhub_events_published_total",
			Help: "Total number of domain events published by subject and status",
		},
		[]string{"subject", "status"},
	)
)

// Auth failure reasons.
const (
	ReasonInvalidToken       = "invalid_token"
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonMissingRole        = "missing_role"
	ReasonInsufficientRole   = "insufficient_role"
)
