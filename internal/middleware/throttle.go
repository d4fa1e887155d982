package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ProstoyVadila/ml-service/internal/metrics"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttler keeps one token bucket per client IP.
type Throttler struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	idle    time.Duration
	pruned  time.Time
	now     func() time.Time
}

// NewThrottler allows perMinute requests per client per minute, with bursts
// of the same size. Clients idle for longer than a minute are forgotten.
func NewThrottler(perMinute int) *Throttler {
	return &Throttler{
		clients: make(map[string]*client),
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
		idle:    time.Minute,
		now:     time.Now,
	}
}

// Clients returns the number of tracked clients.
func (t *Throttler) Clients() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clients)
}

// Allow reports whether a request from key may proceed now.
func (t *Throttler) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if now.Sub(t.pruned) > t.idle {
		for k, cl := range t.clients {
			if now.Sub(cl.lastSeen) > t.idle {
				delete(t.clients, k)
			}
		}
		t.pruned = now
	}

	cl, ok := t.clients[key]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// Throttling rejects clients over their rate with 429.
func Throttling(t *Throttler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !t.Allow(c.ClientIP()) {
			metrics.RejectedRequests.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   gin.H{"code": "TOO_MANY_REQUESTS", "message": "Too Many Requests"},
			})
			return
		}
		c.Next()
	}
}
