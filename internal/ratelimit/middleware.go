package ratelimit

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/telhawk-systems/schoolhub/common/httputil"
	"github.com/telhawk-systems/schoolhub/common/logging"
	"github.com/telhawk-systems/schoolhub/internal/metrics"
	"github.com/telhawk-systems/schoolhub/internal/response"
)

// rejection has no code field, unlike the dispatch envelope.
type rejection struct {
	OK     bool   `json:"ok"`
	Errors string `json:"errors"`
}

// Middleware limits requests per client address. Store failures let the
// request through.
func Middleware(limiter Limiter, trustProxy bool, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := httputil.GetClientIP(r, trustProxy)

			d, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				metrics.RateLimitErrors.Inc()
				logger.WarnContext(r.Context(), "rate limiter unavailable, allowing request",
					logging.IP(ip), logging.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if d.Limit > 0 {
				setHeaders(w.Header(), d)
			}

			if !d.Allowed {
				metrics.RateLimitRejections.Inc()
				w.Header().Set("Retry-After", strconv.Itoa(seconds(d)))
				httputil.WriteJSON(w, http.StatusTooManyRequests, rejection{Errors: response.MsgRateLimited})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func seconds(d Decision) int {
	return int(math.Ceil(d.ResetAfter.Seconds()))
}

func setHeaders(h http.Header, d Decision) {
	h.Set("RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("RateLimit-Reset", strconv.Itoa(seconds(d)))
	h.Set("RateLimit-Policy", policy(d))
}

// policy formats the quota as "<limit>;w=<window seconds>".
func policy(d Decision) string {
	return fmt.Sprintf("%d;w=%d", d.Limit, int(d.Window.Seconds()))
}
