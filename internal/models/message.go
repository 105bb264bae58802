// internal/models/message.go
package models

import "time"

const (
	MessageSuccess = "success"
	MessageError   = "error"
)

// ShotMessage 针对某个实体的一次操作反馈，展示 3 秒后自动消失
type ShotMessage struct {
	ID        string    `json:"id"`
	ShotID    int64     `json:"shot_id"`
	Text      string    `json:"text"`
	Type      string    `json:"type"` // success | error
	CreatedAt time.Time `json:"created_at"`
}
