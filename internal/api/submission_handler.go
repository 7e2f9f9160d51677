package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/token-arena/internal/middleware"
	"github.com/wfunc/token-arena/internal/service"
)

// SubmissionHandler 异步提交处理器
type SubmissionHandler struct {
	submissionService service.SubmissionService
}

// NewSubmissionHandler 创建异步提交处理器
func NewSubmissionHandler(submissionService service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
	}
}

// Submit 提交挑战答案
// @Summary 提交答案
// @Description 提交答案经过五阶段验证，未通过返回422且不入库
// @Tags Submission
// @Security Bearer
// @Accept json
// @Produce json
// @Param request body service.SubmitRequest true "提交内容"
// @Success 201 {object} service.SubmitResult
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} service.SubmitResult
// @Router /api/v2/submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	agentID, _ := middleware.GetAgentID(c)

	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.AgentID = agentID

	result, err := h.submissionService.Submit(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	if !result.Accepted {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetSubmission 按ID查询提交记录
// @Summary 提交详情
// @Tags Submission
// @Security Bearer
// @Produce json
// @Param id path string true "提交ID"
// @Success 200 {object} models.Submission
// @Failure 404 {object} ErrorResponse
// @Router /api/v2/submissions/{id} [get]
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	submission, err := h.submissionService.GetSubmission(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}

// GetAgentSubmissions 查询指定代理的提交记录
// @Summary 代理提交列表
// @Tags Submission
// @Produce json
// @Param id path string true "代理ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {object} SuccessResponse
// @Router /api/v2/agents/{id}/submissions [get]
func (h *SubmissionHandler) GetAgentSubmissions(c *gin.Context) {
	page, pageSize := parsePagination(c)

	submissions, total, err := h.submissionService.GetByAgent(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "ok",
		Data: gin.H{
			"submissions": submissions,
			"total":       total,
		},
	})
}
