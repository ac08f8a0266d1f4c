package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"groundops/internal/transport/http/api"
)

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*rateLimiter)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per key. Buckets idle for longer than
// limiterIdleTTL are swept on access.
type rateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	keyFn     RateLimitKeyFunc
	clients   map[string]*limiterEntry
	now       func() time.Time
	lastSweep time.Time
}

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(rl *rateLimiter) {
		if fn != nil {
			rl.keyFn = fn
		}
	}
}

func withClock(now func() time.Time) RateLimitOption {
	return func(rl *rateLimiter) {
		rl.now = now
	}
}

// RateLimit allows perMinute requests per key, bursting up to perMinute.
func RateLimit(perMinute int, opts ...RateLimitOption) func(http.Handler) http.Handler {
	rl := newRateLimiter(perMinute, clientIPKey, opts...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginRateLimit throttles login attempts per client IP and per submitted
// email, so one address cannot be brute forced from many IPs at full rate.
func LoginRateLimit(perMinute int, opts ...RateLimitOption) func(http.Handler) http.Handler {
	byIP := newRateLimiter(perMinute, clientIPKey, opts...)
	byEmail := newRateLimiter(perMinute, AuthEmailOrIPKey("email"), opts...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !byIP.enforce(w, r) || !byEmail.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newRateLimiter(perMinute int, keyFn RateLimitKeyFunc, opts ...RateLimitOption) *rateLimiter {
	perMinute = max(perMinute, 1)
	rl := &rateLimiter{
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   perMinute,
		keyFn:   keyFn,
		clients: map[string]*limiterEntry{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

func (rl *rateLimiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	key := rl.keyFn(r)
	now := rl.now()

	rl.mu.Lock()
	rl.sweep(now)
	entry, ok := rl.clients[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = entry
	}
	entry.lastSeen = now
	res := entry.limiter.ReserveN(now, 1)
	delay := res.DelayFrom(now)
	if delay > 0 {
		res.CancelAt(now)
	}
	rl.mu.Unlock()

	if delay <= 0 {
		return true
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func (rl *rateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < limiterIdleTTL {
		return
	}
	rl.lastSweep = now
	for key, entry := range rl.clients {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(rl.clients, key)
		}
	}
}

func AuthEmailOrIPKey(field string) RateLimitKeyFunc {
	normalizedField := strings.TrimSpace(field)
	if normalizedField == "" {
		normalizedField = "email"
	}
	return func(r *http.Request) string {
		email := extractJSONField(r, normalizedField)
		if email == "" {
			return clientIPKey(r)
		}
		return "email:" + strings.ToLower(email)
	}
}

func clientIPKey(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if value := strings.TrimSpace(first); value != "" {
			return value
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

// extractJSONField peeks at a string field of a JSON body and restores the
// body for the next handler.
func extractJSONField(r *http.Request, field string) string {
	if r == nil || r.Body == nil {
		return ""
	}
	contentType := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	if !strings.Contains(contentType, "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if len(raw) == 0 {
		return ""
	}
	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	value, _ := payload[field].(string)
	return strings.TrimSpace(value)
}
