// internal/errors/provider_test.go
package errors

import (
	"errors"
	"net"
	"testing"
)

// timeoutError 模拟满足 net.Error 的超时错误
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

// TestClassifyProviderErrorMatrix 封闭分类：状态码与错误代码的组合
// 必须落进确定的类别，不依赖错误消息文本
func TestClassifyProviderErrorMatrix(t *testing.T) {
	cases := []struct {
		name       string
		statusCode int
		apiCode    string
		transport  error
		want       ProviderErrorKind
	}{
		{"401无代码", 401, "", nil, ProviderErrInvalidKey},
		{"403无代码", 403, "", nil, ProviderErrInvalidKey},
		{"429无代码", 429, "", nil, ProviderErrQuota},
		{"404无代码", 404, "", nil, ProviderErrUnknownModel},
		{"500无代码", 500, "", nil, ProviderErrHTTP},
		{"400无代码", 400, "", nil, ProviderErrHTTP},
		{"200无代码", 200, "", nil, ProviderErrUnrecognized},
		{"无状态无代码", 0, "", nil, ProviderErrUnrecognized},

		// 错误代码字段优先于状态码
		{"invalid_api_key代码", 400, "invalid_api_key", nil, ProviderErrInvalidKey},
		{"authentication_error代码", 500, "authentication_error", nil, ProviderErrInvalidKey},
		{"insufficient_quota代码", 403, "insufficient_quota", nil, ProviderErrQuota},
		{"rate_limit代码", 400, "rate_limit_exceeded", nil, ProviderErrQuota},
		{"model_not_found代码", 400, "model_not_found", nil, ProviderErrUnknownModel},
		{"未知代码回退状态码", 429, "brand_new_code", nil, ProviderErrQuota},

		// 传输层失败一律归为网络错误
		{"超时", 0, "", timeoutError{}, ProviderErrNetwork},
		{"连接拒绝", 0, "", errors.New("dial tcp: connection refused"), ProviderErrNetwork},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pe := ClassifyProviderError("openai", tc.statusCode, tc.apiCode, tc.transport)
			if pe.Kind != tc.want {
				t.Fatalf("状态 %d 代码 %q: 分类 %s, 期望 %s",
					tc.statusCode, tc.apiCode, pe.Kind, tc.want)
			}
			if pe.Provider != "openai" {
				t.Fatalf("提供商名称丢失: %+v", pe)
			}
		})
	}
}

// TestProviderErrorUserMessages 每个分类的用户消息互不相同，
// 前端据此区分引导（改密钥、换模型、查网络）
func TestProviderErrorUserMessages(t *testing.T) {
	kinds := []ProviderErrorKind{
		ProviderErrInvalidKey,
		ProviderErrQuota,
		ProviderErrUnknownModel,
		ProviderErrNetwork,
		ProviderErrHTTP,
		ProviderErrUnrecognized,
	}

	seen := make(map[string]ProviderErrorKind)
	for _, kind := range kinds {
		msg := (&ProviderError{Kind: kind, StatusCode: 500}).UserMessage()
		if msg == "" {
			t.Fatalf("分类 %s 缺少用户消息", kind)
		}
		if prev, dup := seen[msg]; dup {
			t.Fatalf("分类 %s 与 %s 的用户消息重复: %q", kind, prev, msg)
		}
		seen[msg] = kind
	}
}

// TestProviderErrorUnwrap 传输层错误保留在错误链上，可用 errors.As 提取
func TestProviderErrorUnwrap(t *testing.T) {
	cause := timeoutError{}
	pe := ClassifyProviderError("openai", 0, "", cause)

	var netErr net.Error
	if !errors.As(pe, &netErr) {
		t.Fatal("错误链上应能提取 net.Error")
	}
	if !netErr.Timeout() {
		t.Fatal("超时属性丢失")
	}

	got, ok := IsProviderError(pe)
	if !ok || got.Kind != ProviderErrNetwork {
		t.Fatalf("IsProviderError 提取失败: %v", pe)
	}
}
