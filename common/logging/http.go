package logging

import (
	"net/http"
	"time"
)

// statusRecorder captures the status written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// AccessLog logs one line per request with method, path, status and duration.
// It must run inside RequestID for the request_id field to be present.
func AccessLog(l *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			l.WithContext(r.Context()).InfoContext(r.Context(), "request",
				Method(r.Method),
				Path(r.URL.Path),
				Status(rec.status),
				Duration(time.Since(start)),
			)
		})
	}
}
