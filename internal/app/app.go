// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/videoxlab/videox/internal/api"
	"github.com/videoxlab/videox/internal/config"
	"github.com/videoxlab/videox/internal/di"
	"github.com/videoxlab/videox/internal/gateway"
	"github.com/videoxlab/videox/internal/llm"
	"github.com/videoxlab/videox/internal/services"
	"github.com/videoxlab/videox/internal/utils"

	// 注册LLM提供者
	_ "github.com/videoxlab/videox/internal/llm/providers/openai"
)

// App 应用实例
type App struct {
	server   *http.Server
	stopChan chan struct{}
}

var (
	instance *App
	once     sync.Once
)

// GetApp 获取应用单例
func GetApp() *App {
	once.Do(func() {
		instance = &App{
			stopChan: make(chan struct{}),
		}
	})
	return instance
}

// InitServices 按依赖顺序初始化所有服务并注册到容器
func InitServices() error {
	cfg := config.GetCurrentConfig()
	if cfg == nil {
		return fmt.Errorf("配置尚未初始化")
	}

	container := di.GetContainer()

	// 1. 持久化网关客户端
	gw := gateway.NewHTTPGateway(cfg.BackendURL)
	container.Register("gateway", gw)

	// 2. LLM提供者缓存（显式依赖，配置变更时失效）
	providerCache := llm.NewProviderCache()
	container.Register("provider_cache", providerCache)

	// 3. LLM服务
	llmService := services.NewLLMService(providerCache)
	container.Register("llm", llmService)

	// 4. 保存调度器与编辑会话存储
	scheduler := services.NewSaveScheduler(services.DefaultDebounceInterval)
	sessionService := services.NewSessionService(gw, scheduler)
	container.Register("session", sessionService)

	// 5. 消息集线器，会话反馈消息经由它推送到界面
	hub := api.NewMessageHub()
	sessionService.SetNotifier(hub.Broadcast)
	container.Register("hub", hub)

	// 6. 项目与抽取服务
	container.Register("project", services.NewProjectService(gw))
	container.Register("extract", services.NewExtractService(llmService, sessionService))

	return nil
}

// Run 启动HTTP服务器，阻塞直到 Shutdown 被调用
func (a *App) Run(router http.Handler, port string) error {
	a.server = &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-a.stopChan:
		return nil
	}
}

// Shutdown 优雅关停：先停HTTP服务器，再销毁编辑会话
// 会话销毁会排空防抖计时器，窗口内未到期的编辑随之丢弃
func (a *App) Shutdown(ctx context.Context) error {
	defer close(a.stopChan)

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			utils.GetLogger().Error("HTTP服务器关停失败", map[string]interface{}{"error": err.Error()})
		}
	}

	if session, ok := di.GetContainer().Get("session").(*services.SessionService); ok && session != nil {
		session.Close()
	}

	return nil
}
