// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// AppConfig 包含应用程序的所有配置
type AppConfig struct {
	// 基础配置
	Port       string `json:"port"`
	DataDir    string `json:"data_dir"`
	LogDir     string `json:"log_dir"`
	DebugMode  bool   `json:"debug_mode"`
	BackendURL string `json:"backend_url"` // 持久化网关地址

	// LLM相关配置
	LLMProvider string            `json:"llm_provider"`
	LLMConfig   map[string]string `json:"llm_config"` // api_key / default_model / base_url

	// 抽取提示词（为空时使用内置默认值）
	CharacterPrompt  string `json:"character_prompt,omitempty"`
	StoryboardPrompt string `json:"storyboard_prompt,omitempty"`
}

// Load 从环境变量加载基础配置
func Load() (*AppConfig, error) {
	// 尝试加载.env文件（可选）
	godotenv.Load()

	config := &AppConfig{
		Port:        getEnv("PORT", "8080"),
		DataDir:     getEnvPath("DATA_DIR", "data"),
		LogDir:      getEnvPath("LOG_DIR", "logs"),
		DebugMode:   getEnvBool("DEBUG_MODE", true),
		BackendURL:  getEnv("BACKEND_URL", "http://localhost:8000"),
		LLMProvider: getEnv("LLM_PROVIDER", "openai"),
		LLMConfig: map[string]string{
			"api_key":       getEnv("LLM_API_KEY", ""),
			"default_model": getEnv("LLM_MODEL", ""),
			"base_url":      getEnv("LLM_BASE_URL", ""),
		},
	}

	if config.LLMConfig["api_key"] == "" {
		// 只记录警告，不返回错误：密钥可以稍后在设置接口中补充
		log.Println("警告: 未设置LLM API密钥，抽取功能在配置完成前不可用")
	}

	return config, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，如果不存在则返回默认值
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("警告: 创建目录失败 %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

// InitConfig 初始化配置管理器：环境变量打底，data/config.json 覆盖
func InitConfig(dataDir string) error {
	configFile = filepath.Join(dataDir, "config.json")

	baseConfig, err := Load()
	if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	currentConfig = baseConfig

	// 如果存在已保存的配置文件，合并其中的可变部分
	data, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	var saved AppConfig
	if err := json.Unmarshal(data, &saved); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}

	if saved.LLMProvider != "" {
		currentConfig.LLMProvider = saved.LLMProvider
	}
	for key, value := range saved.LLMConfig {
		if value != "" {
			currentConfig.LLMConfig[key] = value
		}
	}
	if saved.BackendURL != "" {
		currentConfig.BackendURL = saved.BackendURL
	}
	if saved.CharacterPrompt != "" {
		currentConfig.CharacterPrompt = saved.CharacterPrompt
	}
	if saved.StoryboardPrompt != "" {
		currentConfig.StoryboardPrompt = saved.StoryboardPrompt
	}

	return nil
}

// GetCurrentConfig 获取当前配置（只读快照）
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		return nil
	}

	snapshot := *currentConfig
	snapshot.LLMConfig = make(map[string]string, len(currentConfig.LLMConfig))
	for key, value := range currentConfig.LLMConfig {
		snapshot.LLMConfig[key] = value
	}
	return &snapshot
}

// UpdateLLMConfig 更新LLM提供商配置并持久化
// 返回提供商名称是否发生了变化（调用方需要据此失效已缓存的客户端）
func UpdateLLMConfig(provider string, llmConfig map[string]string) (bool, error) {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return false, fmt.Errorf("配置尚未初始化")
	}

	providerChanged := provider != "" && provider != currentConfig.LLMProvider
	if provider != "" {
		currentConfig.LLMProvider = provider
	}
	for key, value := range llmConfig {
		currentConfig.LLMConfig[key] = value
	}

	return providerChanged, saveLocked()
}

// UpdatePrompts 更新抽取提示词并持久化，空字符串表示恢复默认
func UpdatePrompts(characterPrompt, storyboardPrompt *string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("配置尚未初始化")
	}

	if characterPrompt != nil {
		currentConfig.CharacterPrompt = *characterPrompt
	}
	if storyboardPrompt != nil {
		currentConfig.StoryboardPrompt = *storyboardPrompt
	}

	return saveLocked()
}

// saveLocked 持久化当前配置，调用方必须持有写锁
func saveLocked() error {
	if configFile == "" {
		return nil
	}

	data, err := json.MarshalIndent(currentConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}
