package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/token-arena/internal/repository"
	"go.uber.org/zap"
)

// RateLimitMiddleware 固定窗口限流中间件
// 已认证请求按代理ID计数，匿名请求按客户端IP计数
type RateLimitMiddleware struct {
	repo        repository.RateLimitRepository
	maxRequests int
	window      time.Duration
	log         *zap.Logger
}

// NewRateLimitMiddleware 创建限流中间件
func NewRateLimitMiddleware(repo repository.RateLimitRepository, maxRequests int, window time.Duration, log *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		repo:        repo,
		maxRequests: maxRequests,
		window:      window,
		log:         log,
	}
}

// Limit 限流处理
func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := m.identify(c)

		result, err := m.repo.Incr(c.Request.Context(), identifier, m.maxRequests, m.window)
		if err != nil {
			// 限流器故障时放行，不拦截正常流量
			m.log.Error("限流计数失败", zap.String("identifier", identifier), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", m.maxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetAt.Unix()))

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":     "RATE_LIMIT_EXCEEDED",
				"message":  "请求过于频繁",
				"reset_at": result.ResetAt.Unix(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// identify 计算限流标识
func (m *RateLimitMiddleware) identify(c *gin.Context) string {
	if agentID, ok := GetAgentID(c); ok {
		return "agent:" + agentID
	}
	return "ip:" + c.ClientIP()
}
