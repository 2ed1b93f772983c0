package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// clientWindow tracks request counts for one client IP
type clientWindow struct {
	count     int
	windowEnd time.Time
}

// RateLimiter caps requests per client IP over a fixed window
type RateLimiter struct {
	mu          sync.Mutex
	clients     map[string]*clientWindow
	maxRequests int
	window      time.Duration
}

// NewRateLimiter creates a rate limiter allowing maxRequests per window per
// client IP and starts its cleanup loop
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	limiter := &RateLimiter{
		clients:     make(map[string]*clientWindow),
		maxRequests: maxRequests,
		window:      window,
	}
	go limiter.startCleanup()
	return limiter
}

// Allow records one request for ip and reports whether it is within the limit
func (rl *RateLimiter) Allow(ip string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	client, ok := rl.clients[ip]
	if !ok || now.After(client.windowEnd) {
		rl.clients[ip] = &clientWindow{count: 1, windowEnd: now.Add(rl.window)}
		return true
	}

	client.count++
	return client.count <= rl.maxRequests
}

// startCleanup periodically drops windows that have already closed
func (rl *RateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		rl.mu.Lock()
		for ip, client := range rl.clients {
			if now.After(client.windowEnd) {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimitMiddleware rejects clients that exceed the request budget
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "Too many requests, slow down",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
