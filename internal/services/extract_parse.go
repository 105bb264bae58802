// internal/services/extract_parse.go
package services

import (
	"encoding/json"
	"regexp"
	"strings"

	apperrors "github.com/videoxlab/videox/internal/errors"
	"github.com/videoxlab/videox/internal/models"
)

// 模型输出到结构化数据的解析策略，按顺序尝试，第一个成功者胜：
//  1. 整个响应就是JSON
//  2. Markdown围栏代码块中的JSON
//  3. 在任意位置找到第一个配平的 {...} 片段
// 三者都失败时返回 ExtractionParseError，调用方不得提交任何结果。

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\n?(.*?)```")

// jsonCandidates 按策略顺序产出候选JSON文本
func jsonCandidates(raw string) []string {
	var candidates []string

	// 策略1：整个响应（去除首尾空白后）就是一个JSON值
	trimmed := strings.TrimSpace(raw)
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		candidates = append(candidates, trimmed)
	}

	// 策略2：第一个围栏代码块
	if match := fencedJSONPattern.FindStringSubmatch(raw); match != nil {
		if block := strings.TrimSpace(match[1]); block != "" {
			candidates = append(candidates, block)
		}
	}

	// 策略3：从第一个 { 或 [ 开始做括号配平扫描
	if span := balancedJSONSpan(raw); span != "" {
		candidates = append(candidates, span)
	}

	return candidates
}

// balancedJSONSpan 找到第一个括号配平的JSON片段
// 扫描时跟踪字符串字面量与转义，避免被内容里的括号干扰
func balancedJSONSpan(s string) string {
	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return ""
	}
	s = s[start:]

	open := s[0]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}

	balance := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}
		if char == '\\' {
			escaped = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		if char == open {
			balance++
		} else if char == close {
			balance--
			if balance == 0 {
				return strings.TrimSpace(s[:i+1])
			}
		}
	}

	return ""
}

// parseCharacterMap 把模型输出解析为 {角色名: 描述} 映射
// 角色抽取期望扁平对象，键名不做重映射
func parseCharacterMap(raw string) (models.CharacterMap, error) {
	for _, candidate := range jsonCandidates(raw) {
		var parsed map[string]string
		if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
			continue
		}

		result := make(models.CharacterMap, len(parsed))
		for name, desc := range parsed {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			result[name] = desc
		}

		if len(result) > 0 {
			return result, nil
		}
	}

	return nil, apperrors.NewExtractionParseError("模型输出中没有可用的角色数据", nil)
}

// storyboardRecord 分镜抽取的单条记录
// 同一字段接受多种提供商偏好的键名，取第一个非空者
type storyboardRecord struct {
	OriginalText string   `json:"original_text"`
	Description  string   `json:"description"`
	Content      string   `json:"content"`
	ImagePrompt  string   `json:"image_prompt"`
	T2IPrompt    string   `json:"t2i_prompt"`
	Characters   []string `json:"characters"`
}

func (r storyboardRecord) toDraft() (models.ShotDraft, bool) {
	content := firstNonEmpty(r.OriginalText, r.Description, r.Content)
	if strings.TrimSpace(content) == "" {
		return models.ShotDraft{}, false
	}

	draft := models.ShotDraft{
		Content:   content,
		T2IPrompt: firstNonEmpty(r.ImagePrompt, r.T2IPrompt),
	}
	if r.Characters != nil {
		draft.Characters = r.Characters
	} else {
		draft.Characters = []string{}
	}
	return draft, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseStoryboard 把模型输出解析为有序分镜草稿列表
// 接受顶层数组，或对象里第一个数组类型的值（shots/storyboard/...键名不限）
func parseStoryboard(raw string) ([]models.ShotDraft, error) {
	for _, candidate := range jsonCandidates(raw) {
		if drafts := decodeStoryboardCandidate(candidate); len(drafts) > 0 {
			return drafts, nil
		}
	}

	return nil, apperrors.NewExtractionParseError("模型输出中没有可用的分镜数据", nil)
}

func decodeStoryboardCandidate(candidate string) []models.ShotDraft {
	var records []storyboardRecord

	if err := json.Unmarshal([]byte(candidate), &records); err != nil {
		// 不是顶层数组，尝试对象内的第一个数组值
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal([]byte(candidate), &wrapper); err != nil {
			return nil
		}

		found := false
		for _, value := range wrapper {
			var inner []storyboardRecord
			if err := json.Unmarshal(value, &inner); err == nil && len(inner) > 0 {
				records = inner
				found = true
				break
			}
		}
		if !found {
			return nil
		}
	}

	drafts := make([]models.ShotDraft, 0, len(records))
	for _, record := range records {
		if draft, ok := record.toDraft(); ok {
			drafts = append(drafts, draft)
		}
	}
	return drafts
}
