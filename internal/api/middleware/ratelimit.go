package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	clientCleanupInterval = 10 * time.Minute
	clientIdleTimeout     = 30 * time.Minute
)

// clientLimiter stores the token bucket for a specific client.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware limits requests per client with a token bucket.
type RateLimiterMiddleware struct {
	clients    map[string]*clientLimiter
	mu         sync.Mutex
	refillRate rate.Limit
	bucketSize int
	logger     *slog.Logger
	now        func() time.Time
}

// NewRateLimiterMiddleware creates a RateLimiterMiddleware allowing bursts of
// bucketSize and refilling refillRate tokens per second.
func NewRateLimiterMiddleware(refillRate, bucketSize int, logger *slog.Logger) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		clients:    make(map[string]*clientLimiter),
		refillRate: rate.Limit(refillRate),
		bucketSize: bucketSize,
		logger:     logger,
		now:        time.Now,
	}
}

// getClientIdentifier keys limiters by client IP.
func getClientIdentifier(c *gin.Context) string {
	return c.ClientIP()
}

// getClientLimiter retrieves or creates the limiter for a given client identifier.
func (rm *RateLimiterMiddleware) getClientLimiter(identifier string) *rate.Limiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	cl, exists := rm.clients[identifier]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(rm.refillRate, rm.bucketSize)}
		rm.clients[identifier] = cl
	}
	cl.lastSeen = rm.now()
	return cl.limiter
}

// Cleanup removes clients idle for longer than the idle timeout and returns
// how many were removed.
func (rm *RateLimiterMiddleware) Cleanup() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	count := 0
	cutoff := rm.now().Add(-clientIdleTimeout)
	for id, client := range rm.clients {
		if client.lastSeen.Before(cutoff) {
			delete(rm.clients, id)
			count++
		}
	}
	return count
}

// RunCleanup calls Cleanup periodically until stop is closed.
func (rm *RateLimiterMiddleware) RunCleanup(stop <-chan struct{}) {
	ticker := time.NewTicker(clientCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := rm.Cleanup(); n > 0 {
				rm.logger.Debug("rate limiter cleanup", "removed", n)
			}
		}
	}
}

// Limit creates the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := getClientIdentifier(c)
		if !rm.getClientLimiter(clientKey).Allow() {
			rm.logger.Warn("rate limit exceeded", "client", clientKey, "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
