package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"topstories/services/server/middleware"
)

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RouterOptions wires the router's collaborators.
type RouterOptions struct {
	DistDir     string
	RateLimiter *middleware.RateLimiter
	Logger      *slog.Logger
}

// NewRouter registers the static bundle, the health check and the reserved
// top stories API route.
func NewRouter(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.LogRoutes(opts.Logger))
	if opts.RateLimiter != nil {
		r.Use(opts.RateLimiter.Handler)
	}

	r.Get("/healthz", HealthCheck)
	r.Get("/api/top-arts-stories", TopArtsStories)
	r.Handle("/*", http.FileServer(http.Dir(opts.DistDir)))
	return r
}

// HealthCheck reports that the process is serving.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": middleware.TimeNow().UTC().Format(time.RFC3339),
	})
}

// TopArtsStories is reserved for a server-side top stories endpoint and
// is not implemented yet.
func TopArtsStories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotImplemented, apiError{
		Status:  "error",
		Code:    "not_implemented",
		Message: "top arts stories endpoint is not implemented",
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
