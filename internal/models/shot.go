// internal/models/shot.go
package models

// Shot 分镜：故事板的基本单元
// ShotID 与 Order 均由后端分配，客户端只读
type Shot struct {
	ShotID     int64    `json:"shot_id"`
	Order      int      `json:"order"`
	Content    string   `json:"content"`
	T2IPrompt  string   `json:"t2i_prompt,omitempty"`
	Characters []string `json:"characters,omitempty"`
}

// ShotPatch 本地编辑补丁，nil 字段表示不修改
type ShotPatch struct {
	Content    *string   `json:"content,omitempty"`
	T2IPrompt  *string   `json:"t2i_prompt,omitempty"`
	Characters *[]string `json:"characters,omitempty"`
}

// IsEmpty 判断补丁是否不包含任何修改
func (p ShotPatch) IsEmpty() bool {
	return p.Content == nil && p.T2IPrompt == nil && p.Characters == nil
}

// Apply 将补丁合并到分镜上，返回合并后的副本
// 保存时总是发送合并后的完整记录，而不是补丁本身
func (p ShotPatch) Apply(s Shot) Shot {
	if p.Content != nil {
		s.Content = *p.Content
	}
	if p.T2IPrompt != nil {
		s.T2IPrompt = *p.T2IPrompt
	}
	if p.Characters != nil {
		s.Characters = append([]string(nil), (*p.Characters)...)
	}
	return s
}

// ShotDraft 尚未持久化的分镜内容（批量替换、插入时使用）
type ShotDraft struct {
	Content    string   `json:"content"`
	T2IPrompt  string   `json:"t2i_prompt,omitempty"`
	Characters []string `json:"characters,omitempty"`
}
