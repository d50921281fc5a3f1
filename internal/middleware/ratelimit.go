package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts requests per client key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// MemoryLimiter keeps a sliding log of request times per key in process memory.
type MemoryLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	requests  map[string][]time.Time
	lastSweep time.Time
}

// NewMemoryLimiter allows max requests per key in any window.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		max:      max,
		window:   window,
		now:      time.Now,
		requests: make(map[string][]time.Time),
	}
}

// Allow records a request for key unless the key already used its budget
// in the trailing window.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()
	windowStart := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(windowStart)
		l.lastSweep = now
	}

	valid := l.requests[key][:0]
	for _, ts := range l.requests[key] {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= l.max {
		l.requests[key] = valid
		return Decision{
			Allowed:    false,
			Limit:      l.max,
			RetryAfter: valid[0].Add(l.window).Sub(now),
		}, nil
	}

	valid = append(valid, now)
	l.requests[key] = valid
	return Decision{Allowed: true, Limit: l.max, Remaining: l.max - len(valid)}, nil
}

// sweep drops keys with no request inside the window.
func (l *MemoryLimiter) sweep(windowStart time.Time) {
	for key, times := range l.requests {
		if len(times) == 0 || !times[len(times)-1].After(windowStart) {
			delete(l.requests, key)
		}
	}
}

var fixedWindowScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	return { count, ttl }
`)

// RedisLimiter counts requests in fixed windows shared by every API instance.
type RedisLimiter struct {
	client redis.Scripter
	max    int
	window time.Duration
	prefix string
}

// NewRedisLimiter allows max requests per key in each window, storing
// counters under prefix.
func NewRedisLimiter(client redis.Scripter, max int, window time.Duration, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, max: max, window: window, prefix: prefix}
}

// Allow increments the counter of key's current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	vals, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + ":" + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	count, ttl := int64(0), int64(0)
	if len(vals) == 2 {
		count, ttl = vals[0], vals[1]
	}
	d := Decision{Limit: l.max, Allowed: count <= int64(l.max)}
	if d.Allowed {
		d.Remaining = l.max - int(count)
	} else if ttl > 0 {
		d.RetryAfter = time.Duration(ttl) * time.Millisecond
	}
	return d, nil
}

// RateLimit rejects clients over the limiter's budget with 429. Limiter
// failures are logged and the request is let through.
func RateLimit(l Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := l.Allow(r.Context(), getClientIP(r))
			if err != nil {
				log.WithError(err).Warn("Rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				if secs < 0 {
					secs = 0
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	ip := r.RemoteAddr
	if colonIndex := strings.LastIndex(ip, ":"); colonIndex != -1 {
		ip = ip[:colonIndex]
	}
	return ip
}
