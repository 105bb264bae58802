// internal/services/project_service.go
package services

import (
	"context"
	"strings"

	apperrors "github.com/videoxlab/videox/internal/errors"
	"github.com/videoxlab/videox/internal/gateway"
	"github.com/videoxlab/videox/internal/models"
)

// ProjectService 项目管理：网关之上的薄封装
type ProjectService struct {
	gw gateway.Gateway
}

// NewProjectService 创建项目服务
func NewProjectService(gw gateway.Gateway) *ProjectService {
	return &ProjectService{gw: gw}
}

// ListProjects 获取所有项目
func (s *ProjectService) ListProjects(ctx context.Context) ([]models.Project, error) {
	projects, err := s.gw.ListProjects(ctx)
	if err != nil {
		return nil, apperrors.NewLoadError("获取项目列表失败", err)
	}
	return projects, nil
}

// CreateProject 创建项目
func (s *ProjectService) CreateProject(ctx context.Context, name string) (*models.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("项目名称不能为空", nil)
	}

	project, err := s.gw.CreateProject(ctx, name)
	if err != nil {
		return nil, apperrors.NewSaveError("创建项目失败", err)
	}
	return project, nil
}

// DeleteProject 删除项目（显式用户指令）
func (s *ProjectService) DeleteProject(ctx context.Context, projectID int64) error {
	if err := s.gw.DeleteProject(ctx, projectID); err != nil {
		return apperrors.NewSaveError("删除项目失败", err)
	}
	return nil
}
