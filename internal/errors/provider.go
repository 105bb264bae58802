// internal/errors/provider.go
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ProviderErrorKind 提供商错误的封闭分类
type ProviderErrorKind string

const (
	ProviderErrInvalidKey   ProviderErrorKind = "invalid_key"   // 凭据缺失或无效
	ProviderErrQuota        ProviderErrorKind = "quota"         // 配额耗尽或被限流
	ProviderErrUnknownModel ProviderErrorKind = "unknown_model" // 模型不存在或无权限
	ProviderErrNetwork      ProviderErrorKind = "network"       // 网络连接失败
	ProviderErrHTTP         ProviderErrorKind = "http"          // 其他 4xx/5xx
	ProviderErrUnrecognized ProviderErrorKind = "unrecognized"  // 无法归类
)

// ProviderError 模型提供商调用失败
// 分类依据是 HTTP 状态码加上提供商返回的错误代码字段，
// 不对错误消息做子串匹配
type ProviderError struct {
	Kind       ProviderErrorKind
	Provider   string
	StatusCode int
	APICode    string // 提供商响应体中的 error.code / error.type
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s: %s (HTTP %d)", e.Provider, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// UserMessage 每个分类对应一条固定的用户可读消息
// 所有分类共用同一重试策略：不自动重试，由用户重新发起
func (e *ProviderError) UserMessage() string {
	switch e.Kind {
	case ProviderErrInvalidKey:
		return "API 密钥无效或未授权，请在设置中检查密钥"
	case ProviderErrQuota:
		return "配额不足或请求过于频繁，请稍后重试"
	case ProviderErrUnknownModel:
		return "所选模型不存在或当前密钥无权访问"
	case ProviderErrNetwork:
		return "无法连接到模型服务，请检查网络与接口地址"
	case ProviderErrHTTP:
		return fmt.Sprintf("模型服务返回异常状态 (HTTP %d)", e.StatusCode)
	default:
		return "模型调用失败，请重试"
	}
}

// providerAPICodeKinds 已知的提供商错误代码到分类的映射
// OpenAI 兼容接口在响应体 error.code / error.type 中返回这些值
var providerAPICodeKinds = map[string]ProviderErrorKind{
	"invalid_api_key":        ProviderErrInvalidKey,
	"invalid_request_error":  ProviderErrHTTP,
	"insufficient_quota":     ProviderErrQuota,
	"rate_limit_exceeded":    ProviderErrQuota,
	"model_not_found":        ProviderErrUnknownModel,
	"authentication_error":   ProviderErrInvalidKey,
	"permission_error":       ProviderErrInvalidKey,
	"tokens_exceeded_error":  ProviderErrQuota,
	"engine_overloaded_error": ProviderErrQuota,
}

// ClassifyProviderError 根据 HTTP 状态码与提供商错误代码归类
// transportErr 非空表示请求根本没有得到 HTTP 响应
func ClassifyProviderError(provider string, statusCode int, apiCode string, transportErr error) *ProviderError {
	pe := &ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		APICode:    apiCode,
		Err:        transportErr,
	}

	if transportErr != nil {
		var netErr net.Error
		if errors.As(transportErr, &netErr) {
			pe.Kind = ProviderErrNetwork
			return pe
		}
		// 非 net.Error 的传输层失败（DNS、TLS、连接拒绝）同样按网络错误处理
		pe.Kind = ProviderErrNetwork
		return pe
	}

	// 错误代码字段优先于状态码
	if kind, ok := providerAPICodeKinds[apiCode]; ok {
		pe.Kind = kind
		return pe
	}

	switch {
	case statusCode == 401 || statusCode == 403:
		pe.Kind = ProviderErrInvalidKey
	case statusCode == 429:
		pe.Kind = ProviderErrQuota
	case statusCode == 404:
		pe.Kind = ProviderErrUnknownModel
	case statusCode >= 400:
		pe.Kind = ProviderErrHTTP
	default:
		pe.Kind = ProviderErrUnrecognized
	}
	return pe
}

// IsProviderError 提取错误链中的 ProviderError
func IsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
