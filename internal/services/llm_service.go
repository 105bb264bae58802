// internal/services/llm_service.go
package services

import (
	"context"
	"crypto/md5"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/videoxlab/videox/internal/config"
	apperrors "github.com/videoxlab/videox/internal/errors"
	"github.com/videoxlab/videox/internal/llm"
	"github.com/videoxlab/videox/internal/utils"
)

// LLMService 提供统一的大语言模型调用接口
// 提供者实例缓存作为显式依赖注入（配置变更后由调用方失效），
// 不使用包级单例
type LLMService struct {
	providers *llm.ProviderCache
	cache     *llmCache
}

// llmCache 完成结果的内存缓存
type llmCache struct {
	entries    map[string]*llmCacheEntry
	mutex      sync.RWMutex
	expiration time.Duration
}

type llmCacheEntry struct {
	Text      string
	CreatedAt time.Time
}

// NewLLMService 创建LLM服务
func NewLLMService(providers *llm.ProviderCache) *LLMService {
	return &LLMService{
		providers: providers,
		cache: &llmCache{
			entries:    make(map[string]*llmCacheEntry),
			expiration: 30 * time.Minute,
		},
	}
}

// ValidateCredentials 抽取调用前的快速失败检查
// 密钥、模型标识、接口地址三者缺一不可；返回的 ConfigError
// 准确列出缺失的字段，不发起任何网络调用
func ValidateCredentials(cfg *config.AppConfig) error {
	if cfg == nil {
		return apperrors.NewConfigError("缺少生成凭据: api_key, default_model, base_url")
	}

	var missing []string
	if cfg.LLMConfig["api_key"] == "" {
		missing = append(missing, "api_key")
	}
	if cfg.LLMConfig["default_model"] == "" {
		missing = append(missing, "default_model")
	}
	if cfg.LLMConfig["base_url"] == "" {
		missing = append(missing, "base_url")
	}

	if len(missing) > 0 {
		return apperrors.NewConfigError("缺少生成凭据: " + strings.Join(missing, ", "))
	}
	return nil
}

// Ready 当前配置是否足以发起生成调用
func (s *LLMService) Ready() bool {
	return ValidateCredentials(config.GetCurrentConfig()) == nil
}

// ReadyState 给状态接口的可读描述
func (s *LLMService) ReadyState() string {
	if err := ValidateCredentials(config.GetCurrentConfig()); err != nil {
		return err.Error()
	}
	return "Ready"
}

// InvalidateProvider 丢弃指定提供者的缓存客户端（配置变更后调用）
func (s *LLMService) InvalidateProvider(name string) {
	s.providers.Invalidate(name)
}

// Chat 发送一组对话消息并返回模型的文本输出
func (s *LLMService) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	cfg := config.GetCurrentConfig()
	if err := ValidateCredentials(cfg); err != nil {
		return "", err
	}

	model := cfg.LLMConfig["default_model"]
	cacheKey := s.generateCacheKey(messages, cfg.LLMProvider, model)
	if text, ok := s.cache.get(cacheKey); ok {
		utils.GetLogger().Debug("命中LLM响应缓存", map[string]interface{}{"key": cacheKey[:8]})
		return text, nil
	}

	provider, err := s.providers.Get(cfg.LLMProvider, cfg.LLMConfig)
	if err != nil {
		return "", err
	}

	resp, err := provider.CompleteText(ctx, llm.CompletionRequest{
		Messages:    messages,
		Model:       model,
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}

	s.cache.put(cacheKey, resp.Text)
	return resp.Text, nil
}

// generateCacheKey 由消息内容、提供者和模型生成缓存键
func (s *LLMService) generateCacheKey(messages []llm.Message, provider, model string) string {
	var b strings.Builder
	b.WriteString(provider)
	b.WriteString("|")
	b.WriteString(model)
	for _, msg := range messages {
		b.WriteString("|")
		b.WriteString(msg.Role)
		b.WriteString(":")
		b.WriteString(msg.Content)
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(b.String())))
}

func (c *llmCache) get(key string) (string, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[key]
	if !exists || time.Since(entry.CreatedAt) > c.expiration {
		return "", false
	}
	return entry.Text, true
}

func (c *llmCache) put(key, text string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = &llmCacheEntry{
		Text:      text,
		CreatedAt: time.Now(),
	}
}
