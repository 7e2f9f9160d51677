package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/token-arena/internal/errors"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse 成功响应
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// abortWithError 按错误码映射HTTP状态并返回统一错误结构
func abortWithError(c *gin.Context, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrUnknown)
	}
	c.JSON(appErr.HTTPStatus(), errors.NewErrorResponse(appErr, c.GetString("requestID")))
}

// badRequest 请求参数错误
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    "INVALID_REQUEST",
		Message: "请求参数错误",
		Details: err.Error(),
	})
}
