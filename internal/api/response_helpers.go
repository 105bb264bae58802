// internal/api/response_helpers.go
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/videoxlab/videox/internal/errors"
)

// APIResponse 统一响应信封
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Error     string      `json:"error,omitempty"`
	Code      string      `json:"code,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// ResponseHelper 响应助手类
type ResponseHelper struct{}

// NewResponseHelper 创建响应助手
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// Success 成功响应
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}

	if len(message) > 0 {
		response.Message = message[0]
	}

	c.JSON(http.StatusOK, response)
}

// Created 创建成功响应
func (rh *ResponseHelper) Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, &APIResponse{
		Success:   true,
		Data:      data,
		Message:   "资源创建成功",
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	})
}

// Error 错误响应
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string) {
	c.JSON(statusCode, &APIResponse{
		Success:   false,
		Error:     message,
		Code:      errorCode,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	})
}

// BadRequest 请求参数错误
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string) {
	rh.Error(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// HandleError 把应用错误转换为用户可读的HTTP响应
// 所有错误都在操作边界被捕获，不向上抛出未处理异常
func (rh *ResponseHelper) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	// 提供商错误：封闭分类各自对应固定的用户消息
	if pe, ok := apperrors.IsProviderError(err); ok {
		rh.Error(c, http.StatusBadGateway, "PROVIDER_ERROR", pe.UserMessage())
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		rh.Error(c, statusForErrorType(appErr.Type), appErr.Code, appErr.Message)
		return
	}

	rh.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "操作失败，请重试")
}

// statusForErrorType 错误类型到HTTP状态码的映射
func statusForErrorType(errType apperrors.ErrorType) int {
	switch errType {
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeConfig:
		return http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeInvariant:
		return http.StatusConflict
	case apperrors.ErrorTypeExtractionParse:
		return http.StatusUnprocessableEntity
	case apperrors.ErrorTypeLoad, apperrors.ErrorTypeSave, apperrors.ErrorTypeProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// getRequestID 读取中间件注入的请求ID
func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}
