package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/token-arena/internal/service"
)

// ChallengeHandler 挑战题库处理器
type ChallengeHandler struct {
	challengeService service.ChallengeService
}

// NewChallengeHandler 创建挑战题库处理器
func NewChallengeHandler(challengeService service.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
	}
}

// ListChallenges 分页列出挑战
// @Summary 挑战列表
// @Tags Challenge
// @Produce json
// @Param difficulty query string false "难度过滤" Enums(easy, medium, hard, extreme)
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v2/challenges [get]
func (h *ChallengeHandler) ListChallenges(c *gin.Context) {
	page, pageSize := parsePagination(c)
	difficulty := c.Query("difficulty")

	challenges, total, err := h.challengeService.ListChallenges(c.Request.Context(), difficulty, page, pageSize)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "ok",
		Data: gin.H{
			"challenges": challenges,
			"total":      total,
		},
	})
}

// GetChallenge 按ID查询挑战
// @Summary 挑战详情
// @Tags Challenge
// @Produce json
// @Param id path string true "挑战ID"
// @Success 200 {object} models.Challenge
// @Failure 404 {object} ErrorResponse
// @Router /api/v2/challenges/{id} [get]
func (h *ChallengeHandler) GetChallenge(c *gin.Context) {
	challenge, err := h.challengeService.GetChallenge(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, challenge)
}
