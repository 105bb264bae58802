// internal/llm/interface_test.go
package llm

import (
	"context"
	"testing"
)

type countingProvider struct {
	initCalls *int
}

func (p *countingProvider) Initialize(config map[string]string) error {
	*p.initCalls++
	return nil
}

func (p *countingProvider) GetName() string { return "counting" }

func (p *countingProvider) CompleteText(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return &CompletionResponse{Text: "ok"}, nil
}

// TestProviderCacheReuseAndInvalidate 缓存复用实例，
// 失效后下一次 Get 用新配置重新初始化
func TestProviderCacheReuseAndInvalidate(t *testing.T) {
	initCalls := 0
	Register("cache-test", func() Provider {
		return &countingProvider{initCalls: &initCalls}
	})

	cache := NewProviderCache()
	cfg := map[string]string{"api_key": "k1"}

	first, err := cache.Get("cache-test", cfg)
	if err != nil {
		t.Fatalf("创建提供者失败: %v", err)
	}
	second, err := cache.Get("cache-test", cfg)
	if err != nil {
		t.Fatalf("获取缓存实例失败: %v", err)
	}
	if first != second {
		t.Fatal("同名提供者应复用缓存实例")
	}
	if initCalls != 1 {
		t.Fatalf("实例只应初始化一次, 实际 %d 次", initCalls)
	}

	// 配置变更后失效，再取会重新初始化
	cache.Invalidate("cache-test")
	third, err := cache.Get("cache-test", map[string]string{"api_key": "k2"})
	if err != nil {
		t.Fatalf("重建提供者失败: %v", err)
	}
	if third == first {
		t.Fatal("失效后应创建新实例")
	}
	if initCalls != 2 {
		t.Fatalf("期望重新初始化, 实际初始化 %d 次", initCalls)
	}
}

// TestProviderCacheUnknownName 未注册的提供者名称返回可识别错误
func TestProviderCacheUnknownName(t *testing.T) {
	cache := NewProviderCache()
	if _, err := cache.Get("no-such-provider", nil); err == nil {
		t.Fatal("期望未知提供者错误")
	}
}
