package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/upb/membership-backend/services"
	"github.com/upb/membership-backend/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// idleTTL is how long an untouched client bucket is kept
const idleTTL = 10 * time.Minute

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter is a token bucket per client IP
type IPRateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	perMinute int
	burst     int
	logger    *zap.Logger
	now       func() time.Time
}

// NewIPRateLimiter allows perMinute requests per client IP with the given burst
func NewIPRateLimiter(perMinute, burst int, logger *zap.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		buckets:   make(map[string]*bucket),
		limit:     rate.Limit(float64(perMinute) / 60),
		perMinute: perMinute,
		burst:     burst,
		logger:    logger,
		now:       time.Now,
	}
}

// Allow consumes one token from ip's bucket
func (l *IPRateLimiter) Allow(ip string) bool {
	if ip == "" {
		ip = "unknown"
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}

// Sweep drops buckets idle for longer than idleTTL and returns how many were removed
func (l *IPRateLimiter) Sweep() int {
	cutoff := l.now().Add(-idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for ip, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, ip)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked clients
func (l *IPRateLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// StartSweeper runs Sweep every interval until stopCh is closed
func (l *IPRateLimiter) StartSweeper(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := l.Sweep(); n > 0 {
					l.logger.Debug("rate limiter swept idle clients", zap.Int("removed", n))
				}
			case <-stopCh:
				return
			}
		}
	}()
}

// Limit rejects requests over the client's budget with 429
func (l *IPRateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		if !l.Allow(ip) {
			l.logger.Warn("rate limit exceeded",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("ip", ip),
				zap.String("path", r.URL.Path))
			retryAfter := int(math.Ceil(60 / float64(l.perMinute)))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			_ = utils.WriteTooManyRequests(w, services.ErrRateLimitExceeded.Message, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
