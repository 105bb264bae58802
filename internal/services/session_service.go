// internal/services/session_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/videoxlab/videox/internal/errors"
	"github.com/videoxlab/videox/internal/gateway"
	"github.com/videoxlab/videox/internal/models"
	"github.com/videoxlab/videox/internal/utils"
)

// MessageLifetime 操作反馈消息的展示时长
const MessageLifetime = 3 * time.Second

// MessageNotifier 操作反馈消息的推送回调（WebSocket集线器等）
type MessageNotifier func(models.ShotMessage)

// SessionService 编辑会话存储：当前项目分镜/脚本/角色表的内存权威副本
//
// 所有读写都经过本服务；每次修改都表达为对当前状态的函数式更新，
// 绝不写回闭包捕获的旧快照，避免防抖窗口内并发编辑互相覆盖。
// 任意时刻内存中的分镜列表 = 网关最近一次返回的列表 + 尚未确认保存的本地补丁。
type SessionService struct {
	mutex     sync.Mutex
	gw        gateway.Gateway
	scheduler *SaveScheduler

	projectID  int64
	loaded     bool
	shots      []models.Shot
	script     string
	characters models.CharacterMap

	messages map[int64]models.ShotMessage
	notify   MessageNotifier
}

// NewSessionService 创建编辑会话存储
func NewSessionService(gw gateway.Gateway, scheduler *SaveScheduler) *SessionService {
	if scheduler == nil {
		scheduler = NewSaveScheduler(DefaultDebounceInterval)
	}
	return &SessionService{
		gw:         gw,
		scheduler:  scheduler,
		characters: make(models.CharacterMap),
		messages:   make(map[int64]models.ShotMessage),
	}
}

// SetNotifier 注册反馈消息推送回调
func (s *SessionService) SetNotifier(notify MessageNotifier) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.notify = notify
}

// LoadProject 加载项目：拉取远端状态并整体替换内存状态
// 拉取失败时返回 LoadError，已加载的旧状态保持原样（不做部分覆盖）
func (s *SessionService) LoadProject(ctx context.Context, projectID int64) error {
	state, err := s.gw.FetchProjectState(ctx, projectID)
	if err != nil {
		return apperrors.NewLoadError("加载项目失败", err)
	}

	// 切换项目前排空旧项目的待执行保存，防抖窗口内的编辑随之丢弃
	s.scheduler.CancelAll()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.projectID = projectID
	s.loaded = true
	s.shots = sortShots(state.Shots)
	s.script = state.Script
	if state.Characters != nil {
		s.characters = state.Characters.Clone()
	} else {
		s.characters = make(models.CharacterMap)
	}
	s.messages = make(map[int64]models.ShotMessage)

	utils.GetLogger().Info("项目加载完成", map[string]interface{}{
		"project_id": projectID,
		"shots":      len(s.shots),
	})
	return nil
}

// Loaded 是否已加载项目
func (s *SessionService) Loaded() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.loaded
}

// ProjectID 当前项目ID
func (s *SessionService) ProjectID() int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.projectID
}

// Shots 返回按 order 排列的分镜列表副本
func (s *SessionService) Shots() []models.Shot {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return copyShots(s.shots)
}

// Script 返回当前脚本
func (s *SessionService) Script() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.script
}

// Characters 返回角色表副本
func (s *SessionService) Characters() models.CharacterMap {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.characters.Clone()
}

// Messages 返回当前未过期的反馈消息
func (s *SessionService) Messages() []models.ShotMessage {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	out := make([]models.ShotMessage, 0, len(s.messages))
	for _, msg := range s.messages {
		out = append(out, msg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// MutateShotLocal 立即应用本地补丁（乐观更新），并安排一次防抖保存
// 到期保存发送的是届时的完整合并记录，而非此刻的快照
func (s *SessionService) MutateShotLocal(shotID int64, patch models.ShotPatch) error {
	s.mutex.Lock()
	idx := s.indexOfLocked(shotID)
	if idx < 0 {
		s.mutex.Unlock()
		return apperrors.NewNotFoundError(fmt.Sprintf("找不到分镜 %d", shotID), nil)
	}

	s.shots[idx] = patch.Apply(s.shots[idx])
	s.mutex.Unlock()

	s.scheduler.Schedule(shotID, func() {
		s.saveShotNow(shotID)
	})
	return nil
}

// FlushShotSave 取消待执行防抖并立即持久化合并记录（失焦场景）
func (s *SessionService) FlushShotSave(shotID int64, patch models.ShotPatch) error {
	if !patch.IsEmpty() {
		s.mutex.Lock()
		idx := s.indexOfLocked(shotID)
		if idx < 0 {
			s.mutex.Unlock()
			return apperrors.NewNotFoundError(fmt.Sprintf("找不到分镜 %d", shotID), nil)
		}
		s.shots[idx] = patch.Apply(s.shots[idx])
		s.mutex.Unlock()
	}

	var saveErr error
	s.scheduler.Flush(shotID, func() {
		saveErr = s.saveShotNow(shotID)
	})
	return saveErr
}

// saveShotNow 在执行时刻读取分镜的当前合并状态并发送保存
// 保存失败时本地乐观编辑保持不变，用户重新编辑/失焦即可重试
func (s *SessionService) saveShotNow(shotID int64) error {
	s.mutex.Lock()
	idx := s.indexOfLocked(shotID)
	if idx < 0 {
		// 分镜在防抖窗口内被删除或被批量替换，丢弃这次过期保存
		s.mutex.Unlock()
		return nil
	}
	shot := s.shots[idx]
	projectID := s.projectID
	s.mutex.Unlock()

	if err := s.gw.UpdateShot(context.Background(), projectID, shot); err != nil {
		s.setMessage(shotID, "保存失败，内容仍保留在本地", models.MessageError)
		return apperrors.NewSaveError(fmt.Sprintf("保存分镜 %d 失败", shotID), err)
	}

	s.setMessage(shotID, "已保存", models.MessageSuccess)
	return nil
}

// DeleteAllShots 清空所有分镜后重新加载项目以复位状态
// confirmed 必须为 true：调用方需要先完成二次确认
func (s *SessionService) DeleteAllShots(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return apperrors.NewValidationError("清空分镜需要二次确认", nil)
	}

	s.mutex.Lock()
	if !s.loaded {
		s.mutex.Unlock()
		return apperrors.NewValidationError("尚未加载项目", nil)
	}
	projectID := s.projectID
	s.mutex.Unlock()

	s.scheduler.CancelAll()

	if err := s.gw.DeleteAllShots(ctx, projectID); err != nil {
		return apperrors.NewSaveError("清空分镜失败", err)
	}

	return s.LoadProject(ctx, projectID)
}

// ReplaceAllShots 原子批量替换：抽取流水线唯一的持久化入口
// 写入前读取当前脚本与角色表并随同发送，替换分镜不会丢掉无关状态
func (s *SessionService) ReplaceAllShots(ctx context.Context, drafts []models.ShotDraft) error {
	s.mutex.Lock()
	if !s.loaded {
		s.mutex.Unlock()
		return apperrors.NewValidationError("尚未加载项目", nil)
	}
	projectID := s.projectID
	script := s.script
	characters := s.characters.Clone()
	s.mutex.Unlock()

	// 旧分镜即将整体消失，它们的待执行保存已经没有意义
	s.scheduler.CancelAll()

	shots, err := s.gw.ReplaceAllShots(ctx, projectID, drafts, &script, characters)
	if err != nil {
		return apperrors.NewSaveError("批量替换分镜失败", err)
	}

	s.mutex.Lock()
	s.shots = sortShots(shots)
	s.mutex.Unlock()

	utils.GetLogger().Info("分镜批量替换完成", map[string]interface{}{
		"project_id": projectID,
		"shots":      len(shots),
	})
	return nil
}

// UpdateScript 本地更新脚本，立即可见；持久化只在 SaveScript 时发生
// 脚本是长文本，按键自动保存会与抽取流水线读取到一半的脚本相互竞争
func (s *SessionService) UpdateScript(text string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.script = text
}

// SaveScript 显式保存脚本
func (s *SessionService) SaveScript(ctx context.Context) error {
	s.mutex.Lock()
	if !s.loaded {
		s.mutex.Unlock()
		return apperrors.NewValidationError("尚未加载项目", nil)
	}
	projectID := s.projectID
	script := s.script
	s.mutex.Unlock()

	if err := s.gw.SaveScript(ctx, projectID, script); err != nil {
		return apperrors.NewSaveError("保存脚本失败", err)
	}
	return nil
}

// UpdateCharacters 本地整体替换角色表；持久化只在 SaveCharacters 时发生
func (s *SessionService) UpdateCharacters(characters models.CharacterMap) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.characters = characters.Clone()
	if s.characters == nil {
		s.characters = make(models.CharacterMap)
	}
}

// MergeCharacters 将新条目合并进角色表（抽取结果提交用），不覆盖整个表
func (s *SessionService) MergeCharacters(extracted models.CharacterMap) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for name, desc := range extracted {
		s.characters[name] = desc
	}
}

// SaveCharacters 显式保存角色表（整体替换式写入）
func (s *SessionService) SaveCharacters(ctx context.Context) error {
	s.mutex.Lock()
	if !s.loaded {
		s.mutex.Unlock()
		return apperrors.NewValidationError("尚未加载项目", nil)
	}
	projectID := s.projectID
	characters := s.characters.Clone()
	s.mutex.Unlock()

	saved, err := s.gw.SaveCharacters(ctx, projectID, characters)
	if err != nil {
		return apperrors.NewSaveError("保存角色表失败", err)
	}

	s.mutex.Lock()
	s.characters = saved.Clone()
	s.mutex.Unlock()
	return nil
}

// Close 销毁会话：排空所有待执行计时器，不做最后一次保存
// 防抖窗口内未到期的编辑会丢失，这是会话销毁时的既定取舍
func (s *SessionService) Close() {
	s.scheduler.Close()
}

// setMessage 登记一条反馈消息，到期自动清除
func (s *SessionService) setMessage(shotID int64, text, kind string) {
	msg := models.ShotMessage{
		ID:        uuid.NewString(),
		ShotID:    shotID,
		Text:      text,
		Type:      kind,
		CreatedAt: time.Now(),
	}

	s.mutex.Lock()
	s.messages[shotID] = msg
	notify := s.notify
	s.mutex.Unlock()

	if notify != nil {
		notify(msg)
	}

	time.AfterFunc(MessageLifetime, func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		// 只清除仍是自己的消息，后到的消息有自己的过期任务
		if current, ok := s.messages[shotID]; ok && current.ID == msg.ID {
			delete(s.messages, shotID)
		}
	})
}

// indexOfLocked 在分镜列表中定位，调用方必须持锁
func (s *SessionService) indexOfLocked(shotID int64) int {
	for i := range s.shots {
		if s.shots[i].ShotID == shotID {
			return i
		}
	}
	return -1
}

// sortShots 以 order 为唯一排序依据整理网关返回的列表
func sortShots(shots []models.Shot) []models.Shot {
	out := copyShots(shots)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func copyShots(shots []models.Shot) []models.Shot {
	out := make([]models.Shot, len(shots))
	copy(out, shots)
	return out
}
