package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// localLimiter keeps one token bucket per key in process memory.
type localLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	idle    time.Duration
	sweep   time.Time
}

func newLocalLimiter(maxRequests int, window time.Duration) *localLimiter {
	if maxRequests < 1 {
		maxRequests = 1
	}
	return &localLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(window / time.Duration(maxRequests)),
		burst:   maxRequests,
		idle:    2 * window,
	}
}

func (l *localLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.sweep) > l.idle {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > l.idle {
				delete(l.buckets, k)
			}
		}
		l.sweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.limiter.AllowN(now, 1)
}

func (l *localLimiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func routeKey(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return c.ClientIP() + "|" + route
}

func tooManyRequests(c *gin.Context, endpoint string, window time.Duration) {
	RLBlocked.WithLabelValues(endpoint).Inc()
	c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
	abort(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
}

// LocalRateLimit throttles each client+route pair with an in-process token
// bucket refilling maxRequests per window.
func LocalRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	l := newLocalLimiter(maxRequests, window)
	return func(c *gin.Context) {
		if !l.allow(routeKey(c), time.Now()) {
			tooManyRequests(c, c.FullPath(), window)
			return
		}
		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
