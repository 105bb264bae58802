// internal/gateway/gateway.go
package gateway

import (
	"context"

	"github.com/videoxlab/videox/internal/models"
)

// 插入位置
const (
	PositionAbove = "above"
	PositionBelow = "below"
)

// Gateway 持久化网关：远端存储的无状态请求/响应门面
// 本核心只消费它；order 字段完全由远端分配，客户端从不自行计算
type Gateway interface {
	// 项目
	ListProjects(ctx context.Context) ([]models.Project, error)
	CreateProject(ctx context.Context, name string) (*models.Project, error)
	DeleteProject(ctx context.Context, projectID int64) error

	// 分镜 / 脚本 / 角色
	FetchProjectState(ctx context.Context, projectID int64) (*models.ProjectState, error)
	CreateShot(ctx context.Context, projectID int64, content string) ([]models.Shot, error)
	UpdateShot(ctx context.Context, projectID int64, shot models.Shot) error
	DeleteShot(ctx context.Context, projectID, shotID int64) ([]models.Shot, error)
	InsertShot(ctx context.Context, projectID, referenceShotID int64, position, content string) ([]models.Shot, error)
	DeleteAllShots(ctx context.Context, projectID int64) error
	ReplaceAllShots(ctx context.Context, projectID int64, shots []models.ShotDraft, script *string, characters models.CharacterMap) ([]models.Shot, error)
	SaveScript(ctx context.Context, projectID int64, script string) error
	SaveCharacters(ctx context.Context, projectID int64, characters models.CharacterMap) (models.CharacterMap, error)
}
