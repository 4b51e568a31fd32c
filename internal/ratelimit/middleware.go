package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/mollie-recurring/internal/common"
	"github.com/noah-isme/mollie-recurring/internal/obs"
)

// Config derives the limiter key for a request and the allowance per window.
// A nil Key disables limiting.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler rejects requests over their allowance with 429 RATE_LIMITED. When
// the store fails the request is let through and OnError is told about it.
type Handler struct {
	// Name labels the rate_limited_total metric.
	Name    string
	Limiter Limiter
	Config  Config
	OnError func(*http.Request, error)
}

// Middleware wraps next with the limiter.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Config.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(r, err)
			}
			next.ServeHTTP(w, r)
			return
		}

		hdr := w.Header()
		hdr.Set("X-RateLimit-Limit", strconv.Itoa(max(h.Config.Max, 0)))
		hdr.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
		hdr.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
		if allowed {
			next.ServeHTTP(w, r)
			return
		}

		retryAfter := int(math.Ceil(time.Until(resetAt).Seconds()))
		retryAfter = max(retryAfter, 0)
		hdr.Set("Retry-After", strconv.Itoa(retryAfter))
		if obs.RateLimitedTotal != nil {
			obs.RateLimitedTotal.WithLabelValues(h.name()).Inc()
		}
		common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", map[string]any{
			"retryAfterSeconds": retryAfter,
		})
	})
}

func (h Handler) name() string {
	if h.Name == "" {
		return "default"
	}
	return h.Name
}
