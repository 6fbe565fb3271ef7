package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/hospital-api/pkg/httputil"
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
	// IdleTimeout drops per-client limiters that have not been used for this long.
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
}

// RateLimiter keeps one token bucket per client IP. Buckets live in an
// expiring cache so idle clients are evicted by its janitor.
type RateLimiter struct {
	clients *cache.Cache
	config  RateLimiterConfig
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 10 * time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = config.IdleTimeout
	}
	return &RateLimiter{
		clients: cache.New(config.IdleTimeout, config.CleanupInterval),
		config:  config,
	}
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	key := "ip:" + ip
	if cached, found := rl.clients.Get(key); found {
		l := cached.(*rate.Limiter)
		// Touch the entry so an active client keeps its bucket.
		rl.clients.SetDefault(key, l)
		return l
	}

	l := rate.NewLimiter(rl.config.Rate, rl.config.Burst)
	if err := rl.clients.Add(key, l, cache.DefaultExpiration); err != nil {
		// Another request for the same client won the race.
		if cached, found := rl.clients.Get(key); found {
			return cached.(*rate.Limiter)
		}
	}
	return l
}

// Clients reports how many client buckets are currently held.
func (rl *RateLimiter) Clients() int {
	return rl.clients.ItemCount()
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httputil.Response{
				Status:    httputil.StatusError,
				Message:   "rate limit exceeded",
				RequestID: c.GetString(httputil.ContextRequestID),
			})
			return
		}
		c.Next()
	}
}
