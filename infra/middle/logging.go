package middle

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/commercekit/paybridge/infra/logger"
)

// statusWriter wraps http.ResponseWriter to capture the status code
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (sw *statusWriter) WriteHeader(statusCode int) {
	sw.statusCode = statusCode
	sw.ResponseWriter.WriteHeader(statusCode)
}

// RequestLoggingMiddleware assigns a request ID and logs each request
func RequestLoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
				r.Header.Set("X-Request-ID", requestID)
			}
			w.Header().Set("X-Request-ID", requestID)

			sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(sw, r)

			logger.Info("Request completed", logger.LogContext{
				Gateway:   extractGatewayFromURL(r.URL.Path),
				RequestID: requestID,
				Fields: map[string]any{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      sw.statusCode,
					"duration_ms": time.Since(start).Milliseconds(),
					"client_ip":   GetClientIP(r),
				},
			})
		})
	}
}

// extractGatewayFromURL pulls the gateway name out of callback and
// payment paths like /v1/callback/ogone or /v1/payments/ogone/status.
func extractGatewayFromURL(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if (part == "callback" || part == "payments") && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
