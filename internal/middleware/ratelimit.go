package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/terraconstructs/hrconsole/internal/telemetry"
)

const (
	limiterCacheSize = 10000
	limiterIdleTTL   = 10 * time.Minute
)

// RateLimiter throttles requests per client address with a token bucket.
// Buckets of clients idle for longer than limiterIdleTTL are forgotten.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	clients *expirable.LRU[string, *rate.Limiter]
	metrics *telemetry.RateLimitMetrics
}

// NewRateLimiter allows perSecond sustained requests with the given burst.
// metrics may be nil.
func NewRateLimiter(perSecond float64, burst int, metrics *telemetry.RateLimitMetrics) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		clients: expirable.NewLRU[string, *rate.Limiter](limiterCacheSize, nil, limiterIdleTTL),
		metrics: metrics,
	}
}

// Allow consumes one token from key's bucket.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	limiter, ok := l.clients.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.clients.Add(key, limiter)
	}
	res := limiter.Reserve()
	if !res.OK() {
		return false, time.Second
	}
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return false, delay
	}
	return true, 0
}

// Middleware answers 429 with Retry-After once a client exhausts its bucket.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := l.Allow(clientKey(r))
		if !ok {
			if l.metrics != nil {
				l.metrics.RecordRejected(r.Context(), r.URL.Path)
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			WriteJSON(w, http.StatusTooManyRequests, ErrorBody{Error: "too many requests", Kind: "rate_limited"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey is the client IP. chi's RealIP middleware has already replaced
// RemoteAddr with X-Forwarded-For / X-Real-IP when present.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
