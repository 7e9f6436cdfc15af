// ===============================
// internal/middleware/ratelimit.go - Per-IP Rate Limiting
// ===============================

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateClass is a request budget applied per client IP
type RateClass struct {
	Name      string
	PerMinute int
}

// Request classes, matched by path
var (
	ClassIngest  = RateClass{Name: "ingest", PerMinute: 10}
	ClassMedia   = RateClass{Name: "media", PerMinute: 600}
	ClassDefault = RateClass{Name: "default", PerMinute: 200}
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps a token bucket per IP and class
type RateLimiter struct {
	visitors map[string]*visitor
	mutex    sync.Mutex
	idle     time.Duration

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewRateLimiter(cleanupEvery, idle time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		idle:     idle,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go rl.cleanupRoutine(cleanupEvery)
	return rl
}

// Allow spends one token from the ip's bucket for class
func (rl *RateLimiter) Allow(ip string, class RateClass) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	key := class.Name + "|" + ip
	v, exists := rl.visitors[key]
	if !exists {
		every := time.Minute / time.Duration(class.PerMinute)
		v = &visitor{limiter: rate.NewLimiter(rate.Every(every), class.PerMinute)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

func (rl *RateLimiter) cleanupRoutine(every time.Duration) {
	defer close(rl.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	cutoff := time.Now().Add(-rl.idle)
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

// Close stops the cleanup goroutine
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
	<-rl.done
}

func classify(c *gin.Context) RateClass {
	path := c.Request.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/admin/"):
		return ClassIngest
	case strings.HasSuffix(path, "/media") || strings.HasSuffix(path, "/thumbnail"):
		return ClassMedia
	default:
		return ClassDefault
	}
}

// RateLimit rejects clients that exceed their class budget with 429
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip rate limiting for WebSocket upgrades
		if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			c.Next()
			return
		}

		class := classify(c)
		limit := strconv.Itoa(class.PerMinute)
		if !rl.Allow(c.ClientIP(), class) {
			c.Header("X-RateLimit-Limit", limit)
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests, please try again later",
				"limit":   class.PerMinute,
				"window":  time.Minute.String(),
			})
			return
		}

		c.Header("X-RateLimit-Limit", limit)
		c.Next()
	}
}
