// internal/api/router.go
package api

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/videoxlab/videox/internal/config"
	"github.com/videoxlab/videox/internal/di"
	"github.com/videoxlab/videox/internal/services"
)

// SetupRouter 配置HTTP路由
// 只从容器获取服务，不创建新实例
func SetupRouter() (*gin.Engine, error) {
	cfg := config.GetCurrentConfig()
	container := di.GetContainer()

	projectService, ok := container.Get("project").(*services.ProjectService)
	if !ok {
		return nil, fmt.Errorf("项目服务未正确初始化")
	}

	sessionService, ok := container.Get("session").(*services.SessionService)
	if !ok {
		return nil, fmt.Errorf("会话服务未正确初始化")
	}

	extractService, ok := container.Get("extract").(*services.ExtractService)
	if !ok {
		return nil, fmt.Errorf("抽取服务未正确初始化")
	}

	llmService, ok := container.Get("llm").(*services.LLMService)
	if !ok {
		return nil, fmt.Errorf("LLM服务未正确初始化")
	}

	hub, ok := container.Get("hub").(*MessageHub)
	if !ok {
		return nil, fmt.Errorf("消息集线器未正确初始化")
	}

	handler := NewHandler(projectService, sessionService, extractService, llmService, hub)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-Request-ID")
	r.Use(cors.New(corsConfig))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/projects", handler.ListProjects)
		apiGroup.POST("/projects", handler.CreateProject)
		apiGroup.DELETE("/projects/:id", handler.DeleteProject)
		apiGroup.POST("/projects/:id/load", handler.LoadProject)

		apiGroup.GET("/session", handler.GetSession)

		apiGroup.POST("/shots", handler.AppendShot)
		apiGroup.DELETE("/shots", handler.DeleteAllShots)
		apiGroup.PATCH("/shots/:id", handler.MutateShot)
		apiGroup.POST("/shots/:id/flush", handler.FlushShot)
		apiGroup.DELETE("/shots/:id", handler.DeleteShot)
		apiGroup.POST("/shots/insert", handler.InsertShot)

		apiGroup.PUT("/script", handler.UpdateScript)
		apiGroup.POST("/script/save", handler.SaveScript)
		apiGroup.PUT("/characters", handler.UpdateCharacters)
		apiGroup.POST("/characters/save", handler.SaveCharacters)

		apiGroup.POST("/extract/characters", handler.ExtractCharacters)
		apiGroup.POST("/extract/storyboard", handler.ExtractStoryboard)

		apiGroup.GET("/status", handler.GetStatus)
		apiGroup.PUT("/settings/llm", handler.UpdateLLMSettings)
		apiGroup.PUT("/settings/prompts", handler.UpdatePrompts)
	}

	r.GET("/ws", hub.HandleWS)

	return r, nil
}
