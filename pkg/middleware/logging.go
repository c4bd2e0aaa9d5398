package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RequestLogger wraps a handler with per-request logging. Requests that end
// in a server error are logged at WARN so they surface without debug logging
// enabled; everything else stays at DEBUG. A nil logger disables the wrapper.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			}
			if accountID := r.Header.Get("X-Account-ID"); accountID != "" {
				fields = append(fields, zap.String("account_id", accountID))
			}

			if rec.status >= http.StatusInternalServerError {
				logger.Warn("HTTP request", fields...)
			} else {
				logger.Debug("HTTP request", fields...)
			}
		})
	}
}

// statusRecorder captures the status code written by the handler. Handlers
// that never call WriteHeader implicitly return 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
