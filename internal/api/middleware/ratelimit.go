package middleware

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// RateLimiter 基于Token Bucket的速率限流器
type RateLimiter struct {
	limiter       *rate.Limiter
	perSecond     float64
	burst         int
	allowedCount  atomic.Int64
	rejectedCount atomic.Int64
}

// NewRateLimiter 创建速率限流器
// perSecond: 稳定速率；burst: 桶容量
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = 2
	}
	if burst <= 0 {
		burst = int(perSecond*2) + 1
	}
	return &RateLimiter{
		limiter:   rate.NewLimiter(rate.Limit(perSecond), burst),
		perSecond: perSecond,
		burst:     burst,
	}
}

// Allow 检查是否允许请求（非阻塞）
func (l *RateLimiter) Allow() bool {
	if l.limiter.Allow() {
		l.allowedCount.Add(1)
		return true
	}
	l.rejectedCount.Add(1)
	return false
}

// Stats 获取统计信息
func (l *RateLimiter) Stats() RateLimiterStats {
	return RateLimiterStats{
		PerSecond:     l.perSecond,
		Burst:         l.burst,
		AllowedTotal:  l.allowedCount.Load(),
		RejectedTotal: l.rejectedCount.Load(),
	}
}

// RateLimiterStats 速率限流器统计信息
type RateLimiterStats struct {
	PerSecond     float64 `json:"per_second"`
	Burst         int     `json:"burst"`
	AllowedTotal  int64   `json:"allowed_total"`
	RejectedTotal int64   `json:"rejected_total"`
}

// RateLimit 限流中间件；超限返回429。rejected 可为 nil
func RateLimit(l *RateLimiter, rejected prometheus.Counter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow() {
			if rejected != nil {
				rejected.Inc()
			}
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "too many requests",
			})
			return
		}
		c.Next()
	}
}
