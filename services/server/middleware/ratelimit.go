package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	cleanupEvery = time.Minute
	idleAfter    = 5 * time.Minute
)

// client tracks one remote address.
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client IP.
type RateLimiter struct {
	rps            rate.Limit
	burst          int
	trustForwarded bool
	logger         *slog.Logger

	mu      sync.Mutex
	clients map[string]*client
}

// RateLimitOptions configures NewRateLimiter.
type RateLimitOptions struct {
	RPS   float64
	Burst int
	// TrustForwardedFor keys clients by the first X-Forwarded-For hop.
	// Enable it only behind a proxy that overwrites the header.
	TrustForwardedFor bool
	Logger            *slog.Logger
}

// NewRateLimiter allows opts.RPS requests per second with opts.Burst per
// client. Idle clients are evicted until ctx is done.
func NewRateLimiter(ctx context.Context, opts RateLimitOptions) *RateLimiter {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	rl := &RateLimiter{
		rps:            rate.Limit(opts.RPS),
		burst:          opts.Burst,
		trustForwarded: opts.TrustForwardedFor,
		logger:         opts.Logger.With("module", "middleware"),
		clients:        make(map[string]*client),
	}
	go rl.cleanup(ctx)
	return rl
}

// Handler wraps next with the limiter.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, rl.trustForwarded)
		if !rl.allow(ip) {
			rl.logger.WarnContext(r.Context(), "rate limit exceeded", "ip", ip, "request_id", RequestIDFromContext(r.Context()))
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	c, ok := rl.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = time.Now()
	rl.mu.Unlock()
	return c.limiter.Allow()
}

func (rl *RateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle(time.Now())
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	evicted := 0
	for ip, c := range rl.clients {
		if now.Sub(c.lastSeen) > idleAfter {
			delete(rl.clients, ip)
			evicted++
		}
	}
	if evicted > 0 {
		rl.logger.Debug("evicted idle clients", "count", evicted)
	}
	return evicted
}

// clientIP is the remote host, or the first X-Forwarded-For hop when
// trustForwarded is set.
func clientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
