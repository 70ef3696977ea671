package middleware

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// IPRateLimiter limits the number of requests a single IP may perform within
// a fixed time window.
type IPRateLimiter struct {
	ips        map[string]*ipLimitInfo
	mu         sync.RWMutex
	maxRequest int
	window     time.Duration
}

// ipLimitInfo tracks the limiter state of one IP.
type ipLimitInfo struct {
	count      int
	resetTime  time.Time
	lastAccess time.Time
}

// NewIPRateLimiter creates a rate limiter allowing maxRequest requests per
// IP per window of windowMinutes.
func NewIPRateLimiter(maxRequest int, windowMinutes int) *IPRateLimiter {
	limiter := &IPRateLimiter{
		ips:        make(map[string]*ipLimitInfo),
		maxRequest: maxRequest,
		window:     time.Duration(windowMinutes) * time.Minute,
	}

	// Cleanup goroutine keeps the map from growing without bound.
	go limiter.cleanupOldEntries()

	return limiter
}

// cleanupOldEntries periodically drops IPs that have been idle for more than
// two windows.
func (rl *IPRateLimiter) cleanupOldEntries() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, info := range rl.ips {
			if now.Sub(info.lastAccess) > rl.window*2 {
				delete(rl.ips, ip)
			}
		}
		count := len(rl.ips)
		rl.mu.Unlock()
		log.Printf("[RATE LIMITER] Cleanup done. Tracked IPs: %d", count)
	}
}

// isAllowed reports whether the IP may perform another request and updates
// its counter.
func (rl *IPRateLimiter) isAllowed(ip string) (bool, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	info, exists := rl.ips[ip]
	if !exists || now.After(info.resetTime) {
		rl.ips[ip] = &ipLimitInfo{
			count:      1,
			resetTime:  now.Add(rl.window),
			lastAccess: now,
		}
		return true, now.Add(rl.window)
	}

	info.lastAccess = now
	if info.count >= rl.maxRequest {
		return false, info.resetTime
	}
	info.count++
	return true, info.resetTime
}

// Middleware returns the Gin middleware enforcing the limit. Requests over
// the limit get a 429 with a Retry-After header.
func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		allowed, resetTime := rl.isAllowed(ip)
		if !allowed {
			retryAfter := int(time.Until(resetTime).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, try again later",
			})
			return
		}
		c.Next()
	}
}
