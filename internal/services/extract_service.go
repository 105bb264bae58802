// internal/services/extract_service.go
package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/videoxlab/videox/internal/config"
	apperrors "github.com/videoxlab/videox/internal/errors"
	"github.com/videoxlab/videox/internal/llm"
	"github.com/videoxlab/videox/internal/models"
	"github.com/videoxlab/videox/internal/utils"
)

// 内置抽取提示词，可被配置中的用户自定义提示词覆盖
const (
	defaultCharacterPrompt = `你是剧本分析助手。阅读用户提供的剧本，找出其中出现的所有角色，` +
		`为每个角色写一段外貌与性格描述（用于后续文生图）。` +
		`只输出一个JSON对象，键是角色名，值是描述字符串，不要输出任何解释或前言。` +
		`示例: {"李雷": "二十岁出头的青年，短发，穿灰色风衣"}`

	defaultStoryboardPrompt = `你是分镜师。把用户提供的剧本拆分成按时间顺序排列的分镜列表。` +
		`每个分镜包含: original_text (该分镜对应的原文片段), image_prompt (用于文生图的英文提示词), ` +
		`characters (出现的角色名数组，可为空)。` +
		`只输出一个JSON对象 {"shots": [...]}, 不要输出任何解释或前言。` +
		`已知角色设定会以JSON附在剧本之后，生成 image_prompt 时应参考这些设定。`
)

// ExtractService 抽取流水线：调用生成网关，把非受限的模型文本
// 转换为经过校验的领域记录，再原子地提交进编辑会话
//
// 全有或全无：解析失败、凭据缺失时不提交任何内容，
// 已有分镜/角色/脚本保持原样；所有失败都不自动重试
type ExtractService struct {
	llm     *LLMService
	session *SessionService
}

// NewExtractService 创建抽取服务
func NewExtractService(llmService *LLMService, session *SessionService) *ExtractService {
	return &ExtractService{
		llm:     llmService,
		session: session,
	}
}

// characterPrompt 返回角色抽取系统提示词（用户自定义优先）
func characterPrompt(cfg *config.AppConfig) string {
	if cfg != nil && cfg.CharacterPrompt != "" {
		return cfg.CharacterPrompt
	}
	return defaultCharacterPrompt
}

// storyboardPrompt 返回分镜抽取系统提示词（用户自定义优先）
func storyboardPrompt(cfg *config.AppConfig) string {
	if cfg != nil && cfg.StoryboardPrompt != "" {
		return cfg.StoryboardPrompt
	}
	return defaultStoryboardPrompt
}

// ExtractCharacters 从脚本中抽取角色表
// 成功后立即持久化，避免用户直接关闭会话时丢失抽取结果
func (s *ExtractService) ExtractCharacters(ctx context.Context) (models.CharacterMap, error) {
	cfg := config.GetCurrentConfig()
	if err := ValidateCredentials(cfg); err != nil {
		return nil, err
	}

	script := s.session.Script()
	if strings.TrimSpace(script) == "" {
		return nil, apperrors.NewValidationError("脚本为空，无法抽取角色", nil)
	}

	raw, err := s.llm.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: characterPrompt(cfg)},
		{Role: llm.RoleUser, Content: script},
	})
	if err != nil {
		return nil, err
	}

	extracted, err := parseCharacterMap(raw)
	if err != nil {
		// 不提交：已有角色表保持原样
		return nil, err
	}

	s.session.MergeCharacters(extracted)
	if err := s.session.SaveCharacters(ctx); err != nil {
		return nil, err
	}

	utils.GetLogger().Info("角色抽取完成", map[string]interface{}{
		"extracted": len(extracted),
	})
	return extracted, nil
}

// ExtractStoryboard 从脚本中抽取分镜列表
// 通过 ReplaceAllShots 原子提交，脚本与角色表随同写入、保持不变
func (s *ExtractService) ExtractStoryboard(ctx context.Context) ([]models.Shot, error) {
	cfg := config.GetCurrentConfig()
	if err := ValidateCredentials(cfg); err != nil {
		return nil, err
	}

	script := s.session.Script()
	if strings.TrimSpace(script) == "" {
		return nil, apperrors.NewValidationError("脚本为空，无法抽取分镜", nil)
	}

	// 已知角色设定作为上下文附在剧本之后
	userContent := script
	if characters := s.session.Characters(); len(characters) > 0 {
		if charJSON, err := json.Marshal(characters); err == nil {
			userContent += "\n\n角色设定:\n" + string(charJSON)
		}
	}

	raw, err := s.llm.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: storyboardPrompt(cfg)},
		{Role: llm.RoleUser, Content: userContent},
	})
	if err != nil {
		return nil, err
	}

	drafts, err := parseStoryboard(raw)
	if err != nil {
		// 不提交：已有分镜保持原样
		return nil, err
	}

	if err := s.session.ReplaceAllShots(ctx, drafts); err != nil {
		return nil, err
	}

	utils.GetLogger().Info("分镜抽取完成", map[string]interface{}{
		"shots": len(drafts),
	})
	return s.session.Shots(), nil
}
