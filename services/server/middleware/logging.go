package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// TimeNow is swapped in tests.
var TimeNow = time.Now

// RequestID reuses an incoming X-Request-Id or mints a new one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestIDFromContext returns the id set by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogRoutes logs the method, original URL and local time of every request
// before handing it on.
func LogRoutes(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("module", "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := TimeNow().Local()
			logger.InfoContext(r.Context(),
				fmt.Sprintf("%s: %s - %s", r.Method, r.URL.RequestURI(), now.Format("1/2/2006, 3:04:05 PM")),
				"method", r.Method,
				"path", r.URL.RequestURI(),
				"requested_at", now.Format(time.RFC3339),
				"request_id", RequestIDFromContext(r.Context()),
			)
			next.ServeHTTP(w, r)
		})
	}
}
