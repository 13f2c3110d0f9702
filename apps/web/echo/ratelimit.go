package echoweb

import (
	"math"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// loginLimiter throttles login attempts per client IP.
type loginLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*ipLimiter
}

func newLoginLimiter(perSecond float64, burst int) *loginLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &loginLimiter{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*ipLimiter),
	}
}

func (l *loginLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	il, ok := l.limiters[ip]
	if !ok {
		il = &ipLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = il
	}
	il.lastAccess = time.Now()
	return il.limiter.Allow()
}

// RetryAfter is the number of seconds until one more attempt is allowed, as sent in Retry-After.
func (l *loginLimiter) RetryAfter() string {
	secs := 1
	if l.limit != rate.Inf && l.limit > 0 {
		if s := int(math.Ceil(1.0 / float64(l.limit))); s > secs {
			secs = s
		}
	}
	return strconv.Itoa(secs)
}

// Cleanup forgets IPs idle for longer than ttl and returns how many went.
func (l *loginLimiter) Cleanup(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	l.mu.Lock()
	defer l.mu.Unlock()

	var n int
	for ip, il := range l.limiters {
		if il.lastAccess.Before(cutoff) {
			delete(l.limiters, ip)
			n++
		}
	}
	return n
}
