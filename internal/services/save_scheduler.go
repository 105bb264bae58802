// internal/services/save_scheduler.go
package services

import (
	"sync"
	"time"
)

// DefaultDebounceInterval 分镜保存的防抖窗口
const DefaultDebounceInterval = 3000 * time.Millisecond

// SaveScheduler 决定被修改的分镜何时发送到持久化网关
// 按 shot_id 分键：同一分镜的连续编辑合并成一次网络调用，
// 不同分镜的计时器互相独立
type SaveScheduler struct {
	mutex    sync.Mutex
	interval time.Duration
	timers   map[int64]*time.Timer
	closed   bool
}

// NewSaveScheduler 创建保存调度器，interval <= 0 时使用默认防抖窗口
func NewSaveScheduler(interval time.Duration) *SaveScheduler {
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}
	return &SaveScheduler{
		interval: interval,
		timers:   make(map[int64]*time.Timer),
	}
}

// Schedule 为指定分镜安排一次防抖保存
// 已有待执行计时器时先取消，保证每个分镜至多一个待执行保存
func (s *SaveScheduler) Schedule(shotID int64, fire func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return
	}

	if timer, exists := s.timers[shotID]; exists {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(s.interval, func() {
		// 到期时必须仍是当前登记的计时器，否则说明已被取消或替换
		s.mutex.Lock()
		current, exists := s.timers[shotID]
		if !exists || current != timer {
			s.mutex.Unlock()
			return
		}
		delete(s.timers, shotID)
		s.mutex.Unlock()

		fire()
	})
	s.timers[shotID] = timer
}

// Cancel 取消指定分镜的待执行保存，不触发任何网络调用
func (s *SaveScheduler) Cancel(shotID int64) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	timer, exists := s.timers[shotID]
	if !exists {
		return false
	}
	timer.Stop()
	delete(s.timers, shotID)
	return true
}

// Flush 取消待执行计时器并立即同步执行保存（失焦场景）
// flush 总是赢过同一分镜的待执行防抖，因为计时器先被取消
func (s *SaveScheduler) Flush(shotID int64, fire func()) {
	s.Cancel(shotID)
	fire()
}

// CancelAll 取消全部待执行计时器，不触发保存（切换项目、批量替换）
func (s *SaveScheduler) CancelAll() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for shotID, timer := range s.timers {
		timer.Stop()
		delete(s.timers, shotID)
	}
}

// Close 关闭调度器并排空所有计时器
// 防抖窗口内尚未到期的编辑会丢失，这是会话销毁时的既定取舍
func (s *SaveScheduler) Close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.closed = true
	for shotID, timer := range s.timers {
		timer.Stop()
		delete(s.timers, shotID)
	}
}

// Pending 查询指定分镜是否有待执行保存
func (s *SaveScheduler) Pending(shotID int64) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, exists := s.timers[shotID]
	return exists
}

// PendingCount 当前待执行计时器数量
func (s *SaveScheduler) PendingCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.timers)
}
