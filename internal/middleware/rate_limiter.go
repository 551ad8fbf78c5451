package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"clubebar/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ── API rate limiter ──────────────────────────────────────────────────────────

// rateEntry tracks request counts per IP within a fixed window.
type rateEntry struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

// rateLimiter owns its own map so tests and route groups do not share counters.
type rateLimiter struct {
	limit   int
	window  time.Duration
	mu      sync.Mutex
	entries map[string]*rateEntry
}

// RateLimiter allows limit requests per window per client IP. Registers sit
// behind the club NAT, so the limit is sized for a whole bar, not one device.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	rl := &rateLimiter{limit: limit, window: window, entries: make(map[string]*rateEntry)}
	go rl.purge(purgeInterval)
	return rl.handle
}

func (rl *rateLimiter) handle(c *gin.Context) {
	ip := c.ClientIP()

	rl.mu.Lock()
	entry, exists := rl.entries[ip]
	if !exists {
		entry = &rateEntry{}
		rl.entries[ip] = entry
	}
	rl.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	if now.After(entry.windowEnd) {
		entry.count = 0
		entry.windowEnd = now.Add(rl.window)
	}

	entry.count++
	if entry.count > rl.limit {
		retry := int(time.Until(entry.windowEnd).Seconds()) + 1
		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Muitas requisições. Tente novamente em instantes."))
		return
	}
	c.Next()
}

// ── Purge goroutine ───────────────────────────────────────────────────────────
// Drops expired entries so IPs that never come back do not pile up.

const purgeInterval = 5 * time.Minute

func (rl *rateLimiter) purge(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		rl.mu.Lock()
		purged := 0
		for ip, entry := range rl.entries {
			entry.mu.Lock()
			if now.After(entry.windowEnd) {
				delete(rl.entries, ip)
				purged++
			}
			entry.mu.Unlock()
		}
		remaining := len(rl.entries)
		rl.mu.Unlock()

		if purged > 0 {
			log.Debug().
				Int("entries_purged", purged).
				Int("entries_remaining", remaining).
				Msg("rate limiter map purged")
		}
	}
}
