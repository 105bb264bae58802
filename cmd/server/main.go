// cmd/server/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/videoxlab/videox/internal/api"
	"github.com/videoxlab/videox/internal/app"
	"github.com/videoxlab/videox/internal/config"
	"github.com/videoxlab/videox/internal/utils"
)

func main() {
	log.Println("🚀 启动 VideoX 编辑会话服务...")

	// 1. 加载基础配置
	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("✅ 基础配置加载完成，端口: %s", baseConfig.Port)

	// 2. 初始化配置系统
	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		log.Fatalf("初始化配置系统失败: %v", err)
	}
	log.Println("✅ 配置系统初始化完成")

	// 3. 初始化日志
	if err := utils.InitLogger(filepath.Join(baseConfig.LogDir, "videox.log")); err != nil {
		log.Printf("⚠️ 初始化日志文件失败: %v", err)
	}
	if baseConfig.DebugMode {
		utils.GetLogger().SetLogLevel(utils.DEBUG)
	}

	// 4. 初始化所有服务（按依赖顺序）
	if err := app.InitServices(); err != nil {
		log.Fatalf("初始化服务失败: %v", err)
	}
	log.Println("✅ 所有服务初始化完成")

	// 5. 设置路由
	router, err := api.SetupRouter()
	if err != nil {
		log.Fatalf("❌ 设置路由失败: %v", err)
	}
	log.Println("✅ 路由设置完成")

	// 6. 启动服务器 + 优雅关停
	application := app.GetApp()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("收到关停信号，正在退出...")
		if err := application.Shutdown(context.Background()); err != nil {
			log.Printf("关停失败: %v", err)
		}
	}()

	log.Printf("🌐 服务器启动在端口 %s", baseConfig.Port)
	if err := application.Run(router, baseConfig.Port); err != nil {
		log.Fatalf("❌ 服务器运行失败: %v", err)
	}
	log.Println("已退出")
}
