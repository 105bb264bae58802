// internal/services/ordering.go
package services

import (
	"context"
	"fmt"

	apperrors "github.com/videoxlab/videox/internal/errors"
	"github.com/videoxlab/videox/internal/gateway"
	"github.com/videoxlab/videox/internal/models"
)

// 排序引擎：把“在分镜 X 上方/下方插入”“删除分镜 X”的手势翻译成网关请求。
// order 的唯一权威是网关返回的列表，客户端不做任何增量下标运算。

// InsertShot 在参考分镜的上方或下方插入一个空白分镜
// 网关返回重排后的完整列表，内存列表整体替换
func (s *SessionService) InsertShot(ctx context.Context, referenceShotID int64, position string) ([]models.Shot, error) {
	if position != gateway.PositionAbove && position != gateway.PositionBelow {
		return nil, apperrors.NewValidationError(fmt.Sprintf("无效的插入位置: %s", position), nil)
	}

	s.mutex.Lock()
	if !s.loaded {
		s.mutex.Unlock()
		return nil, apperrors.NewValidationError("尚未加载项目", nil)
	}
	if s.indexOfLocked(referenceShotID) < 0 {
		s.mutex.Unlock()
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("找不到参考分镜 %d", referenceShotID), nil)
	}
	projectID := s.projectID
	s.mutex.Unlock()

	shots, err := s.gw.InsertShot(ctx, projectID, referenceShotID, position, "")
	if err != nil {
		s.setMessage(referenceShotID, "插入分镜失败", models.MessageError)
		return nil, apperrors.NewSaveError("插入分镜失败", err)
	}

	s.mutex.Lock()
	s.shots = sortShots(shots)
	result := copyShots(s.shots)
	s.mutex.Unlock()

	s.setMessage(referenceShotID, "已插入分镜", models.MessageSuccess)
	return result, nil
}

// AppendShot 在列表末尾创建新分镜
func (s *SessionService) AppendShot(ctx context.Context, content string) ([]models.Shot, error) {
	s.mutex.Lock()
	if !s.loaded {
		s.mutex.Unlock()
		return nil, apperrors.NewValidationError("尚未加载项目", nil)
	}
	projectID := s.projectID
	s.mutex.Unlock()

	shots, err := s.gw.CreateShot(ctx, projectID, content)
	if err != nil {
		return nil, apperrors.NewSaveError("创建分镜失败", err)
	}

	s.mutex.Lock()
	s.shots = sortShots(shots)
	result := copyShots(s.shots)
	s.mutex.Unlock()
	return result, nil
}

// DeleteShot 删除分镜并用网关返回的重排列表整体替换
// 项目必须始终保留至少一个分镜：删除最后一个在任何网络调用之前就被拒绝
func (s *SessionService) DeleteShot(ctx context.Context, shotID int64) ([]models.Shot, error) {
	s.mutex.Lock()
	if !s.loaded {
		s.mutex.Unlock()
		return nil, apperrors.NewValidationError("尚未加载项目", nil)
	}
	if s.indexOfLocked(shotID) < 0 {
		s.mutex.Unlock()
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("找不到分镜 %d", shotID), nil)
	}
	if len(s.shots) <= 1 {
		s.mutex.Unlock()
		return nil, apperrors.NewInvariantError("项目必须保留至少一个分镜")
	}
	projectID := s.projectID
	s.mutex.Unlock()

	// 被删除分镜的待执行保存已经没有意义
	s.scheduler.Cancel(shotID)

	shots, err := s.gw.DeleteShot(ctx, projectID, shotID)
	if err != nil {
		s.setMessage(shotID, "删除分镜失败", models.MessageError)
		return nil, apperrors.NewSaveError("删除分镜失败", err)
	}

	s.mutex.Lock()
	s.shots = sortShots(shots)
	result := copyShots(s.shots)
	s.mutex.Unlock()

	s.setMessage(shotID, "已删除分镜", models.MessageSuccess)
	return result, nil
}
