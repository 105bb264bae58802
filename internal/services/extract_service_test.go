// internal/services/extract_service_test.go
package services

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/videoxlab/videox/internal/config"
	apperrors "github.com/videoxlab/videox/internal/errors"
	"github.com/videoxlab/videox/internal/llm"
	"github.com/videoxlab/videox/internal/models"
)

// fakeProvider 返回固定文本的模型提供者，记录调用次数
type fakeProvider struct {
	name     string
	response string
	err      error
	calls    int32
}

func (p *fakeProvider) Initialize(config map[string]string) error { return nil }
func (p *fakeProvider) GetName() string                           { return p.name }

func (p *fakeProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Text: p.response, ProviderName: p.name}, nil
}

func (p *fakeProvider) callCount() int32 {
	return atomic.LoadInt32(&p.calls)
}

// setupExtract 准备完整的抽取测试环境：
// 注册独立命名的假提供者，初始化配置，加载单镜项目并写入脚本
func setupExtract(t *testing.T, providerName, response string) (*ExtractService, *fakeGateway, *fakeProvider) {
	t.Helper()

	provider := &fakeProvider{name: providerName, response: response}
	llm.Register(providerName, func() llm.Provider { return provider })

	dataDir := t.TempDir()
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("LOG_DIR", t.TempDir())
	t.Setenv("LLM_PROVIDER", providerName)
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("LLM_MODEL", "test-model")
	t.Setenv("LLM_BASE_URL", "http://llm.test/v1")
	if err := config.InitConfig(dataDir); err != nil {
		t.Fatalf("初始化配置失败: %v", err)
	}

	gw := newFakeGateway("第一镜")
	session := newTestSession(t, gw, 50*time.Millisecond)
	session.UpdateScript("夜晚。爱丽丝走进空荡的剧院。")

	extract := NewExtractService(NewLLMService(llm.NewProviderCache()), session)
	return extract, gw, provider
}

// TestExtractCharactersMissingCredentials 凭据缺失时返回 ConfigError，
// 错误信息准确列出缺失字段，且不发起任何模型调用
func TestExtractCharactersMissingCredentials(t *testing.T) {
	extract, _, provider := setupExtract(t, "fake-missing-creds", `{"A": "a"}`)

	// 抹掉其中两项凭据
	if _, err := config.UpdateLLMConfig("", map[string]string{
		"default_model": "",
		"base_url":      "",
	}); err != nil {
		t.Fatalf("更新配置失败: %v", err)
	}

	_, err := extract.ExtractCharacters(context.Background())
	if !apperrors.IsConfigError(err) {
		t.Fatalf("期望 ConfigError, 实际 %v", err)
	}
	if !strings.Contains(err.Error(), "default_model") || !strings.Contains(err.Error(), "base_url") {
		t.Fatalf("错误信息应列出缺失字段: %v", err)
	}
	if strings.Contains(err.Error(), "api_key") {
		t.Fatalf("api_key 未缺失，不应出现在错误信息中: %v", err)
	}
	if provider.callCount() != 0 {
		t.Fatalf("凭据缺失时不应调用模型, 实际 %d 次", provider.callCount())
	}
}

// TestExtractCharactersEmptyScript 脚本为空时直接拒绝
func TestExtractCharactersEmptyScript(t *testing.T) {
	extract, _, provider := setupExtract(t, "fake-empty-script", `{"A": "a"}`)
	extract.session.UpdateScript("   ")

	_, err := extract.ExtractCharacters(context.Background())
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("期望 ValidationError, 实际 %v", err)
	}
	if provider.callCount() != 0 {
		t.Fatalf("脚本为空时不应调用模型, 实际 %d 次", provider.callCount())
	}
}

// TestExtractCharactersCommit 成功路径：解析、合并进会话并立即持久化
func TestExtractCharactersCommit(t *testing.T) {
	response := "分析完成：\n```json\n{\"爱丽丝\": \"年轻的剧院清洁工\"}\n```"
	extract, gw, _ := setupExtract(t, "fake-char-commit", response)

	got, err := extract.ExtractCharacters(context.Background())
	if err != nil {
		t.Fatalf("抽取失败: %v", err)
	}
	if got["爱丽丝"] != "年轻的剧院清洁工" {
		t.Fatalf("抽取结果错误: %+v", got)
	}

	// 会话与远端都已更新
	if desc := extract.session.Characters()["爱丽丝"]; desc != "年轻的剧院清洁工" {
		t.Fatalf("会话角色表未更新: %+v", extract.session.Characters())
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.characters["爱丽丝"] != "年轻的剧院清洁工" {
		t.Fatalf("角色表未持久化: %+v", gw.characters)
	}
}

// TestExtractCharactersParseFailureNoCommit 解析失败是全有或全无：
// 已有角色表一个字节都不能变
func TestExtractCharactersParseFailureNoCommit(t *testing.T) {
	extract, gw, _ := setupExtract(t, "fake-char-garbage", "抱歉，我不能输出JSON。")

	extract.session.UpdateCharacters(models.CharacterMap{"旧角色": "原有描述"})
	if err := extract.session.SaveCharacters(context.Background()); err != nil {
		t.Fatalf("预置角色表失败: %v", err)
	}

	_, err := extract.ExtractCharacters(context.Background())
	if !apperrors.IsExtractionParseError(err) {
		t.Fatalf("期望 ExtractionParseError, 实际 %v", err)
	}

	characters := extract.session.Characters()
	if len(characters) != 1 || characters["旧角色"] != "原有描述" {
		t.Fatalf("解析失败不应改动角色表: %+v", characters)
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if len(gw.characters) != 1 || gw.characters["旧角色"] != "原有描述" {
		t.Fatalf("解析失败不应触发持久化: %+v", gw.characters)
	}
}

// TestExtractStoryboardCommit 分镜抽取通过批量替换原子提交，
// 脚本与角色表随同写入、保持不变
func TestExtractStoryboardCommit(t *testing.T) {
	response := `{"shots": [
		{"original_text": "爱丽丝推开剧院大门", "image_prompt": "a woman opening theater doors at night"},
		{"original_text": "空荡的观众席", "image_prompt": "empty theater seats, dim light"}
	]}`
	extract, gw, _ := setupExtract(t, "fake-board-commit", response)

	extract.session.UpdateCharacters(models.CharacterMap{"爱丽丝": "清洁工"})
	if err := extract.session.SaveCharacters(context.Background()); err != nil {
		t.Fatalf("预置角色表失败: %v", err)
	}

	shots, err := extract.ExtractStoryboard(context.Background())
	if err != nil {
		t.Fatalf("抽取失败: %v", err)
	}
	if len(shots) != 2 {
		t.Fatalf("期望 2 个分镜, 实际 %d", len(shots))
	}
	if shots[0].Content != "爱丽丝推开剧院大门" || shots[1].Order <= shots[0].Order {
		t.Fatalf("分镜内容或顺序错误: %+v", shots)
	}

	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.script != "夜晚。爱丽丝走进空荡的剧院。" {
		t.Fatalf("批量替换不应破坏脚本: %q", gw.script)
	}
	if gw.characters["爱丽丝"] != "清洁工" {
		t.Fatalf("批量替换不应破坏角色表: %+v", gw.characters)
	}
}

// TestExtractStoryboardParseFailureNoCommit 解析失败时已有分镜保持原样
func TestExtractStoryboardParseFailureNoCommit(t *testing.T) {
	extract, gw, _ := setupExtract(t, "fake-board-garbage", "这不是你要的格式。")

	_, err := extract.ExtractStoryboard(context.Background())
	if !apperrors.IsExtractionParseError(err) {
		t.Fatalf("期望 ExtractionParseError, 实际 %v", err)
	}

	if shots := extract.session.Shots(); len(shots) != 1 || shots[0].Content != "第一镜" {
		t.Fatalf("解析失败不应改动分镜: %+v", shots)
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.replaceCalls != 0 {
		t.Fatalf("解析失败不应触发批量替换, 实际 %d 次", gw.replaceCalls)
	}
}

// TestExtractProviderErrorPassthrough 提供者错误原样向上传递，不重试
func TestExtractProviderErrorPassthrough(t *testing.T) {
	extract, _, provider := setupExtract(t, "fake-provider-down", "")
	provider.err = apperrors.ClassifyProviderError("fake-provider-down", 429, "insufficient_quota", nil)

	_, err := extract.ExtractCharacters(context.Background())
	provErr, ok := apperrors.IsProviderError(err)
	if !ok {
		t.Fatalf("期望 ProviderError, 实际 %v", err)
	}
	if provErr.Kind != apperrors.ProviderErrQuota {
		t.Fatalf("错误类别应为额度不足, 实际 %s", provErr.Kind)
	}
	if provider.callCount() != 1 {
		t.Fatalf("失败不应自动重试, 实际调用 %d 次", provider.callCount())
	}
}
