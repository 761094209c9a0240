package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"cierrecaja/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ── Per-IP rate limiter ───────────────────────────────────────────────────────

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	limit    rate.Limit
	burst    int
	entryTTL time.Duration
}

// NewIPRateLimiter allows perMinute requests per IP with bursts of the same
// size. Idle entries are purged in the background.
func NewIPRateLimiter(perMinute int) *IPRateLimiter {
	if perMinute <= 0 {
		perMinute = 300
	}
	rl := &IPRateLimiter{
		limiters: make(map[string]*ipLimiter),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
		entryTTL: 10 * time.Minute,
	}
	go rl.purgeLoop(5 * time.Minute)
	return rl
}

func (rl *IPRateLimiter) get(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	e, ok := rl.limiters[ip]
	if !ok {
		e = &ipLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ip] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (rl *IPRateLimiter) purgeLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		if n := rl.purge(time.Now()); n > 0 {
			log.Debug().Int("entries_purged", n).Msg("rate limiter purged")
		}
	}
}

func (rl *IPRateLimiter) purge(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	purged := 0
	for ip, e := range rl.limiters {
		if now.Sub(e.lastSeen) > rl.entryTTL {
			delete(rl.limiters, ip)
			purged++
		}
	}
	return purged
}

// Middleware rejects requests over the limit with 429.
func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.get(c.ClientIP(), time.Now()).Allow() {
			c.Header("X-RateLimit-Limit", strconv.Itoa(rl.burst))
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}
