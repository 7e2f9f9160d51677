package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/token-arena/internal/middleware"
	"github.com/wfunc/token-arena/internal/service"
)

// GameHandler 限时游戏处理器
type GameHandler struct {
	gameService service.GameService
}

// NewGameHandler 创建限时游戏处理器
func NewGameHandler(gameService service.GameService) *GameHandler {
	return &GameHandler{
		gameService: gameService,
	}
}

// startGameRequest 开始游戏请求体
type startGameRequest struct {
	Duration int `json:"duration" binding:"required,min=1"`
}

// StartGame 开始限时会话
// @Summary 开始游戏
// @Description 创建一个限时烧token会话，时长单位为秒
// @Tags Game
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body startGameRequest true "会话参数"
// @Success 201 {object} service.StartGameResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v2/games/start [post]
func (h *GameHandler) StartGame(c *gin.Context) {
	agentID, _ := middleware.GetAgentID(c)

	var req startGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.gameService.StartGame(c.Request.Context(), agentID, req.Duration)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// actionRequest 动作请求体
type actionRequest struct {
	Method string `json:"method" binding:"required"`
}

// ExecuteAction 在会话内执行一次烧token动作
// @Summary 执行动作
// @Tags Game
// @Security Bearer
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param request body actionRequest true "动作参数"
// @Success 200 {object} engine.ActionResult
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v2/games/{id}/actions [post]
func (h *GameHandler) ExecuteAction(c *gin.Context) {
	agentID, _ := middleware.GetAgentID(c)
	gameID := c.Param("id")

	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.gameService.ExecuteAction(c.Request.Context(), agentID, gameID, req.Method)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStatus 查询会话状态
// @Summary 会话状态
// @Tags Game
// @Security Bearer
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} engine.StatusView
// @Failure 404 {object} ErrorResponse
// @Router /api/v2/games/{id} [get]
func (h *GameHandler) GetStatus(c *gin.Context) {
	agentID, _ := middleware.GetAgentID(c)
	gameID := c.Param("id")

	status, err := h.gameService.GetStatus(c.Request.Context(), agentID, gameID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// FinishGame 主动结束会话
// @Summary 结束游戏
// @Tags Game
// @Security Bearer
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} engine.Summary
// @Failure 404 {object} ErrorResponse
// @Router /api/v2/games/{id}/finish [post]
func (h *GameHandler) FinishGame(c *gin.Context) {
	agentID, _ := middleware.GetAgentID(c)
	gameID := c.Param("id")

	summary, err := h.gameService.FinishGame(c.Request.Context(), agentID, gameID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetHistory 查询历史会话
// @Summary 历史会话
// @Tags Game
// @Security Bearer
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} SuccessResponse
// @Router /api/v2/games [get]
func (h *GameHandler) GetHistory(c *gin.Context) {
	agentID, _ := middleware.GetAgentID(c)
	page, pageSize := parsePagination(c)

	games, total, err := h.gameService.GetHistory(c.Request.Context(), agentID, page, pageSize)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "ok",
		Data: gin.H{
			"games": games,
			"total": total,
		},
	})
}

// parsePagination 解析分页参数
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	return page, pageSize
}
