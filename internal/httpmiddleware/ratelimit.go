package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ClientLimiter throttles requests per client IP with a token bucket that
// refills continuously at perMinute.
//
// A bucket left idle long enough to be full again is indistinguishable from
// a fresh one, so it is dropped on the next sweep.
type ClientLimiter struct {
	burst     float64
	perSecond float64
	refillAll time.Duration
	now       func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientBucket
	lastSweep time.Time
}

type clientBucket struct {
	tokens float64
	seen   time.Time
}

// NewClientLimiter allows burst requests at once and perMinute sustained.
// A non-positive perMinute disables limiting.
func NewClientLimiter(burst, perMinute int) *ClientLimiter {
	if burst <= 0 {
		burst = perMinute
	}
	l := &ClientLimiter{
		burst:     float64(burst),
		perSecond: float64(perMinute) / 60,
		clients:   make(map[string]*clientBucket),
		now:       time.Now,
	}
	if perMinute > 0 {
		l.refillAll = time.Duration(l.burst / l.perSecond * float64(time.Second))
	}
	return l
}

// GinMiddleware answers 429 with the usual JSON envelope once a client runs
// out of tokens.
func (l *ClientLimiter) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.perSecond <= 0 {
			c.Next()
			return
		}
		if !l.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "请求过于频繁，请稍后再试"})
			return
		}
		c.Next()
	}
}

func (l *ClientLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b := l.clients[client]
	if b == nil {
		b = &clientBucket{tokens: l.burst, seen: now}
		l.clients[client] = b
	}
	b.tokens = min(l.burst, b.tokens+now.Sub(b.seen).Seconds()*l.perSecond)
	b.seen = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops refilled buckets at most once per refill period.
func (l *ClientLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.refillAll {
		return
	}
	l.lastSweep = now
	for client, b := range l.clients {
		if now.Sub(b.seen) >= l.refillAll {
			delete(l.clients, client)
		}
	}
}

// tracked returns the number of clients holding a bucket.
func (l *ClientLimiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
