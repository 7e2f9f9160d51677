package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/token-arena/internal/service"
)

// LeaderboardHandler 排行榜处理器
type LeaderboardHandler struct {
	leaderboardService service.LeaderboardService
}

// NewLeaderboardHandler 创建排行榜处理器
func NewLeaderboardHandler(leaderboardService service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
	}
}

// Top 按总分取排行榜
// @Summary 排行榜
// @Tags Leaderboard
// @Produce json
// @Param limit query int false "条目数，默认10，最多100"
// @Success 200 {object} SuccessResponse
// @Router /api/v2/leaderboard [get]
func (h *LeaderboardHandler) Top(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	entries, err := h.leaderboardService.Top(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "ok",
		Data: gin.H{
			"leaderboard": entries,
		},
	})
}

// AgentRank 查询单个代理的名次
// @Summary 代理名次
// @Tags Leaderboard
// @Produce json
// @Param id path string true "代理ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v2/leaderboard/agents/{id} [get]
func (h *LeaderboardHandler) AgentRank(c *gin.Context) {
	entry, err := h.leaderboardService.AgentRank(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "ok",
		Data:    entry,
	})
}
