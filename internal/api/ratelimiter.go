package api

import (
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter scopes reported in rejection logs and responses.
const (
	scopeAPI   = "api"
	scopeSolve = "solve"
)

type rateLimiter interface {
	Allow() bool
}

// bucket is a token bucket guarding one group of routes.
type bucket struct {
	limiter *rate.Limiter
}

// newBucket returns nil when rps or burst is not positive, leaving the scope
// unlimited.
func newBucket(rps float64, burst int) rateLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return &bucket{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (b *bucket) Allow() bool {
	return b.limiter.Allow()
}

// retryAfter is the refill time of a single token, in whole seconds.
func (b *bucket) retryAfter() int {
	seconds := math.Ceil(1 / float64(b.limiter.Limit()))
	if seconds < 1 || math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		return 1
	}
	return int(seconds)
}

func rateLimitMiddleware(scope string, limiter rateLimiter, logger *zap.Logger, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	retry := 1
	if b, ok := limiter.(*bucket); ok {
		retry = b.retryAfter()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}
		logger.Warn("request rate limited",
			zap.String("scope", scope),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFromContext(r.Context())),
		)
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		writeError(w, http.StatusTooManyRequests, "Too many requests", scope+" rate limit exceeded, please retry shortly")
	})
}
