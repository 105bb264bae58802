// internal/models/project.go
package models

// Project 项目：拥有一份脚本、一张角色表和一个有序分镜列表
type Project struct {
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
}

// CharacterMap 角色表：角色名 -> 外观/行为描述
type CharacterMap map[string]string

// Clone 返回角色表的独立副本
func (m CharacterMap) Clone() CharacterMap {
	if m == nil {
		return nil
	}
	out := make(CharacterMap, len(m))
	for name, desc := range m {
		out[name] = desc
	}
	return out
}

// ProjectState 某个项目在远端的完整可编辑状态
type ProjectState struct {
	Shots      []Shot       `json:"shots"`
	Script     string       `json:"script,omitempty"`
	Characters CharacterMap `json:"characters,omitempty"`
}
