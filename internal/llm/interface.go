// internal/llm/interface.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrUnknownProvider = errors.New("未知的AI提供者")

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 对话消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest 请求参数标准化
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float32   `json:"temperature,omitempty"`
}

// CompletionResponse 响应结构标准化
type CompletionResponse struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
	TokensUsed   int    `json:"tokens_used,omitempty"`
	ModelName    string `json:"model_name,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
}

// Provider 定义所有LLM提供者必须实现的接口
type Provider interface {
	// 初始化提供者，传入配置
	Initialize(config map[string]string) error

	// 获取提供者名称
	GetName() string

	// 文本生成
	CompleteText(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ProviderFactory 提供者工厂函数类型
type ProviderFactory func() Provider

var (
	factoryMutex sync.RWMutex
	factories    = make(map[string]ProviderFactory)
)

// Register 注册提供者工厂，由各 provider 包的 init 调用
func Register(name string, factory ProviderFactory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	factories[name] = factory
}

// ListProviders 返回所有已注册的提供者名称
func ListProviders() []string {
	factoryMutex.RLock()
	defer factoryMutex.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

// newProvider 创建并初始化指定名称的提供者实例
func newProvider(name string, config map[string]string) (Provider, error) {
	factoryMutex.RLock()
	factory, exists := factories[name]
	factoryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	provider := factory()
	if err := provider.Initialize(config); err != nil {
		return nil, err
	}
	return provider, nil
}

// ProviderCache 按提供者名称缓存已初始化的客户端实例
// 作为显式依赖传入使用方，替代包级单例；配置变更后调用 Invalidate
type ProviderCache struct {
	mutex     sync.Mutex
	instances map[string]Provider
}

// NewProviderCache 创建提供者缓存
func NewProviderCache() *ProviderCache {
	return &ProviderCache{
		instances: make(map[string]Provider),
	}
}

// Get 返回缓存的提供者实例，不存在时创建并初始化
func (c *ProviderCache) Get(name string, config map[string]string) (Provider, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if provider, ok := c.instances[name]; ok {
		return provider, nil
	}

	provider, err := newProvider(name, config)
	if err != nil {
		return nil, err
	}

	c.instances[name] = provider
	return provider, nil
}

// Invalidate 丢弃指定提供者的缓存实例
func (c *ProviderCache) Invalidate(name string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.instances, name)
}

// InvalidateAll 丢弃所有缓存实例
func (c *ProviderCache) InvalidateAll() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.instances = make(map[string]Provider)
}
