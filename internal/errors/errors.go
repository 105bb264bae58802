// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	// 编辑会话相关错误类型
	ErrorTypeLoad            ErrorType = "load_error"             // 加载项目/分镜失败
	ErrorTypeInvariant       ErrorType = "invariant_error"        // 违反业务不变式（如删除最后一个分镜）
	ErrorTypeSave            ErrorType = "save_error"             // 持久化调用失败
	ErrorTypeConfig          ErrorType = "config_error"           // 生成凭据缺失
	ErrorTypeExtractionParse ErrorType = "extraction_parse_error" // 模型响应无法解析为结构化数据
	ErrorTypeProvider        ErrorType = "provider_error"         // 模型提供商调用失败
	ErrorTypeValidation      ErrorType = "validation_error"
	ErrorTypeNotFound        ErrorType = "not_found"
)

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // 用户友好的错误代码
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewLoadError 创建加载错误
func NewLoadError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeLoad, message, originalError)
}

// NewInvariantError 创建不变式错误
func NewInvariantError(message string) *AppError {
	return NewAppError(ErrorTypeInvariant, message, nil)
}

// NewSaveError 创建保存错误
func NewSaveError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeSave, message, originalError)
}

// NewConfigError 创建配置错误
func NewConfigError(message string) *AppError {
	return NewAppError(ErrorTypeConfig, message, nil)
}

// NewExtractionParseError 创建解析错误
func NewExtractionParseError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeExtractionParse, message, originalError)
}

// NewValidationError 创建验证错误
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// IsType 检查错误链中是否存在指定类型的 AppError
func IsType(err error, errType ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == errType
	}
	return false
}

// IsLoadError 检查是否为加载错误
func IsLoadError(err error) bool { return IsType(err, ErrorTypeLoad) }

// IsInvariantError 检查是否为不变式错误
func IsInvariantError(err error) bool { return IsType(err, ErrorTypeInvariant) }

// IsSaveError 检查是否为保存错误
func IsSaveError(err error) bool { return IsType(err, ErrorTypeSave) }

// IsConfigError 检查是否为配置错误
func IsConfigError(err error) bool { return IsType(err, ErrorTypeConfig) }

// IsExtractionParseError 检查是否为解析错误
func IsExtractionParseError(err error) bool { return IsType(err, ErrorTypeExtractionParse) }

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeLoad:
		return "LOAD_ERROR"
	case ErrorTypeInvariant:
		return "INVARIANT_ERROR"
	case ErrorTypeSave:
		return "SAVE_ERROR"
	case ErrorTypeConfig:
		return "CONFIG_ERROR"
	case ErrorTypeExtractionParse:
		return "EXTRACTION_PARSE_ERROR"
	case ErrorTypeProvider:
		return "PROVIDER_ERROR"
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError 包装现有错误
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		// 如果已经是 AppError，只更新消息
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
		}
	}

	return NewAppError(errType, message, err)
}
