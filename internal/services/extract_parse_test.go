// internal/services/extract_parse_test.go
package services

import (
	"reflect"
	"testing"

	apperrors "github.com/videoxlab/videox/internal/errors"
)

// TestParseCharacterMapStrategies 三种包装形式解析出完全相同的映射：
// 纯JSON、markdown围栏、前后带说明文字
func TestParseCharacterMapStrategies(t *testing.T) {
	want := map[string]string{"Alice": "a hero"}

	cases := []struct {
		name string
		raw  string
	}{
		{"纯JSON", `{"Alice": "a hero"}`},
		{"围栏代码块", "好的，结果如下：\n```json\n{\"Alice\": \"a hero\"}\n```\n希望对你有帮助。"},
		{"带说明文字", `根据剧本，角色如下 {"Alice": "a hero"} 以上就是全部角色。`},
		{"无语言标记的围栏", "```\n{\"Alice\": \"a hero\"}\n```"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseCharacterMap(tc.raw)
			if err != nil {
				t.Fatalf("解析失败: %v", err)
			}
			if !reflect.DeepEqual(map[string]string(got), want) {
				t.Fatalf("解析结果 %+v, 期望 %+v", got, want)
			}
		})
	}
}

// TestParseCharacterMapNoJSON 完全没有JSON的输出返回解析错误
func TestParseCharacterMapNoJSON(t *testing.T) {
	_, err := parseCharacterMap("抱歉，我无法完成这个请求。")
	if !apperrors.IsExtractionParseError(err) {
		t.Fatalf("期望 ExtractionParseError, 实际 %v", err)
	}
}

// TestParseCharacterMapStringContainsBraces 字符串值里的花括号不干扰配平扫描
func TestParseCharacterMapStringContainsBraces(t *testing.T) {
	raw := `说明在前 {"Bob": "爱说 {placeholder} 的人"} 说明在后`
	got, err := parseCharacterMap(raw)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if got["Bob"] != "爱说 {placeholder} 的人" {
		t.Fatalf("字符串内花括号被破坏: %+v", got)
	}
}

// TestParseStoryboardFieldAliases 同一字段的不同键名都应被接受
func TestParseStoryboardFieldAliases(t *testing.T) {
	raw := `[
		{"original_text": "镜头一", "image_prompt": "prompt one", "characters": ["Alice"]},
		{"description": "镜头二", "t2i_prompt": "prompt two"},
		{"content": "镜头三"}
	]`

	drafts, err := parseStoryboard(raw)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(drafts) != 3 {
		t.Fatalf("期望 3 条分镜, 实际 %d", len(drafts))
	}

	if drafts[0].Content != "镜头一" || drafts[0].T2IPrompt != "prompt one" {
		t.Fatalf("original_text/image_prompt 解析错误: %+v", drafts[0])
	}
	if drafts[1].Content != "镜头二" || drafts[1].T2IPrompt != "prompt two" {
		t.Fatalf("description/t2i_prompt 解析错误: %+v", drafts[1])
	}
	if drafts[2].Content != "镜头三" {
		t.Fatalf("content 解析错误: %+v", drafts[2])
	}
	// characters 缺省时为空列表而非 nil
	if drafts[2].Characters == nil || len(drafts[2].Characters) != 0 {
		t.Fatalf("缺省角色列表应为空列表: %+v", drafts[2].Characters)
	}
}

// TestParseStoryboardWrapperObject 包在对象里的数组也能解析，键名不限
func TestParseStoryboardWrapperObject(t *testing.T) {
	for _, raw := range []string{
		`{"shots": [{"content": "镜头A"}]}`,
		`{"storyboard": [{"content": "镜头A"}]}`,
		"```json\n{\"shots\": [{\"content\": \"镜头A\"}]}\n```",
	} {
		drafts, err := parseStoryboard(raw)
		if err != nil {
			t.Fatalf("解析 %q 失败: %v", raw, err)
		}
		if len(drafts) != 1 || drafts[0].Content != "镜头A" {
			t.Fatalf("解析 %q 结果错误: %+v", raw, drafts)
		}
	}
}

// TestParseStoryboardSkipsEmptyRecords 没有正文的记录被跳过，全部为空则报错
func TestParseStoryboardSkipsEmptyRecords(t *testing.T) {
	drafts, err := parseStoryboard(`[{"content": ""}, {"content": "有内容"}]`)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(drafts) != 1 || drafts[0].Content != "有内容" {
		t.Fatalf("空记录未被跳过: %+v", drafts)
	}

	_, err = parseStoryboard(`[{"content": ""}]`)
	if !apperrors.IsExtractionParseError(err) {
		t.Fatalf("全空记录应返回 ExtractionParseError, 实际 %v", err)
	}
}
