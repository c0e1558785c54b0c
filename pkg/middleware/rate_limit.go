package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/blobdrive/pkg/configs"
)

const (
	limiterIdle         = 10 * time.Minute
	limiterSweepEvery   = time.Minute
	maxLimiterEntries   = 10000
	rateLimitedMessage  = "rate limit exceeded, request too frequent, please try again later"
	shareLimitedMessage = "too many share link lookups, please try again later"
)

// keyedLimiters 按键维护令牌桶，空闲超过 limiterIdle 的键被回收.
type keyedLimiters struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	entries   map[string]*limiterEntry
	lastSweep time.Time
	now       func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newKeyedLimiters(rps float64, burst int) *keyedLimiters {
	return &keyedLimiters{
		limit:   rate.Limit(rps),
		burst:   max(burst, 1),
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

func (k *keyedLimiters) allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if now.Sub(k.lastSweep) > limiterSweepEvery || len(k.entries) > maxLimiterEntries {
		k.sweep(now)
	}

	e, ok := k.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.entries[key] = e
	}

	e.lastSeen = now

	return e.limiter.AllowN(now, 1)
}

func (k *keyedLimiters) sweep(now time.Time) {
	for key, e := range k.entries {
		if now.Sub(e.lastSeen) > limiterIdle {
			delete(k.entries, key)
		}
	}

	k.lastSweep = now
}

// RateLimitMiddleware 返回一个基于配置的限流中间件.
// Key 选择维度：global、ip、identity（未识别身份时按 IP）、header:Header-Name.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	keyMode := strings.ToLower(strings.TrimSpace(cfg.Key))

	if keyMode == "global" || keyMode == "" {
		limiter := rate.NewLimiter(rate.Limit(cfg.RPS), max(cfg.Burst, 1))

		return func(c *gin.Context) {
			if !limiter.Allow() {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": rateLimitedMessage})
				return
			}

			c.Next()
		}
	}

	limiters := newKeyedLimiters(cfg.RPS, cfg.Burst)

	// header 名保持原始大小写
	header := ""
	if strings.HasPrefix(keyMode, "header:") {
		header = strings.TrimSpace(cfg.Key[len("header:"):])
	}

	return func(c *gin.Context) {
		var key string

		switch {
		case header != "":
			key = c.GetHeader(header)
		case keyMode == "identity":
			key = Identity(c)
		}

		if key == "" {
			key = clientIP(c)
		}

		if key == "" {
			key = "unknown"
		}

		if !limiters.allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": rateLimitedMessage})
			return
		}

		c.Next()
	}
}

// ShareResolveLimit 分享解析的独立限流，按身份与 IP 计数，降低枚举 shareId 的速度.
// 不受 rate_limit.enabled 影响，速率为 0 时关闭.
func ShareResolveLimit(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if cfg.ShareResolveRPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiters := newKeyedLimiters(cfg.ShareResolveRPS, cfg.ShareResolveBurst)

	return func(c *gin.Context) {
		if !limiters.allow(Identity(c) + "|" + clientIP(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": shareLimitedMessage})
			return
		}

		c.Next()
	}
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err == nil {
			ip = host
		} else {
			ip = c.Request.RemoteAddr
		}
	}

	return ip
}
