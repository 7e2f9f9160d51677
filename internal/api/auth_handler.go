package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/token-arena/internal/middleware"
	"github.com/wfunc/token-arena/internal/service"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// RegisterAgent 注册代理并签发API密钥
// @Summary 注册代理
// @Description 注册代理并签发一把新的API密钥，完整密钥只返回一次
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body service.RegisterRequest true "注册信息"
// @Success 201 {object} service.RegisterResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v2/auth/keys [post]
func (h *AuthHandler) RegisterAgent(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	req.IP = c.ClientIP()

	resp, err := h.authService.RegisterAgent(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// tokenRequest 换取令牌请求体
type tokenRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

// IssueToken 用API密钥换取JWT令牌
// @Summary 签发令牌
// @Description 验证API密钥并签发访问令牌与刷新令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body tokenRequest true "API密钥"
// @Success 200 {object} service.TokenResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v2/auth/token [post]
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// 也接受放在请求头里的密钥
		if key := c.GetHeader("X-API-Key"); key != "" {
			req.APIKey = key
		} else {
			badRequest(c, err)
			return
		}
	}

	resp, err := h.authService.IssueToken(c.Request.Context(), req.APIKey, c.ClientIP())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// refreshRequest 刷新令牌请求体
type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken 刷新访问令牌
// @Summary 刷新令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body refreshRequest true "刷新令牌"
// @Success 200 {object} service.TokenResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v2/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListAPIKeys 查询自己名下的密钥
// @Summary 密钥列表
// @Tags Auth
// @Security Bearer
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v2/auth/keys [get]
func (h *AuthHandler) ListAPIKeys(c *gin.Context) {
	agentID, _ := middleware.GetAgentID(c)

	keys, err := h.authService.ListAPIKeys(c.Request.Context(), agentID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "ok",
		Data:    keys,
	})
}

// RevokeAPIKey 吊销指定前缀的密钥
// @Summary 吊销密钥
// @Tags Auth
// @Security Bearer
// @Produce json
// @Param prefix path string true "密钥前缀"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v2/auth/keys/{prefix} [delete]
func (h *AuthHandler) RevokeAPIKey(c *gin.Context) {
	agentID, _ := middleware.GetAgentID(c)
	prefix := c.Param("prefix")

	if err := h.authService.RevokeAPIKey(c.Request.Context(), agentID, prefix); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "密钥已吊销"})
}
