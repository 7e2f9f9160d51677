package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/token-arena/internal/service"
)

// AuthMiddleware 认证中间件，支持JWT与API密钥两种方式
type AuthMiddleware struct {
	authService service.AuthService
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(authService service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// RequireAuth 需要认证的中间件
// 优先使用Bearer令牌，其次X-API-Key
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := m.extractToken(c); token != "" {
			claims, err := m.authService.ValidateAccessToken(c.Request.Context(), token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{
					"code":    "INVALID_TOKEN",
					"message": "无效的令牌",
				})
				c.Abort()
				return
			}
			c.Set("agentID", claims.AgentID)
			c.Next()
			return
		}

		if apiKey := c.GetHeader("X-API-Key"); apiKey != "" {
			agent, err := m.authService.VerifyAPIKey(c.Request.Context(), apiKey, c.ClientIP())
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{
					"code":    "INVALID_API_KEY",
					"message": "无效的API密钥",
				})
				c.Abort()
				return
			}
			c.Set("agentID", agent.AgentID)
			c.Next()
			return
		}

		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "NO_CREDENTIALS",
			"message": "缺少认证凭据",
		})
		c.Abort()
	}
}

// OptionalAuth 可选认证的中间件（不强制要求凭据）
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := m.extractToken(c); token != "" {
			if claims, err := m.authService.ValidateAccessToken(c.Request.Context(), token); err == nil {
				c.Set("agentID", claims.AgentID)
			}
		} else if apiKey := c.GetHeader("X-API-Key"); apiKey != "" {
			if agent, err := m.authService.VerifyAPIKey(c.Request.Context(), apiKey, c.ClientIP()); err == nil {
				c.Set("agentID", agent.AgentID)
			}
		}
		c.Next()
	}
}

// extractToken 从请求中提取Bearer令牌
func (m *AuthMiddleware) extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if bearerToken != "" {
		parts := strings.Split(bearerToken, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}
	return ""
}

// GetAgentID 从上下文获取代理ID
func GetAgentID(c *gin.Context) (string, bool) {
	if agentID, exists := c.Get("agentID"); exists {
		if id, ok := agentID.(string); ok {
			return id, true
		}
	}
	return "", false
}

// IsAuthenticated 检查是否已认证
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get("agentID")
	return exists
}
