package repository

import (
	"context"
	"sync"

	"alienx-go/internal/model"
)

// memoryContextRepository 是 ContextRepository 的进程内实现。
// 适用于单实例部署与测试；多实例部署应使用 Redis 实现。
type memoryContextRepository struct {
	mu         sync.RWMutex
	sessions   map[string]*sessionContext
	maxHistory int
}

type sessionContext struct {
	mu    sync.Mutex
	turns []model.Turn
}

// NewMemoryContextRepository 创建一个内存实现的 ContextRepository。
func NewMemoryContextRepository(maxHistory int) ContextRepository {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &memoryContextRepository{
		sessions:   make(map[string]*sessionContext),
		maxHistory: maxHistory,
	}
}

func (r *memoryContextRepository) session(sessionID string) *sessionContext {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.sessions[sessionID]; !ok {
		s = &sessionContext{}
		r.sessions[sessionID] = s
	}
	return s
}

// Append 追加一条消息，超过轮数上限时从头部淘汰。
func (r *memoryContextRepository) Append(_ context.Context, sessionID string, turn model.Turn) error {
	s := r.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, turn)
	if len(s.turns) > r.maxHistory {
		s.turns = s.turns[len(s.turns)-r.maxHistory:]
	}
	return nil
}

// Snapshot 返回会话上下文的副本，调用方可安全持有。
func (r *memoryContextRepository) Snapshot(_ context.Context, sessionID string) ([]model.Turn, error) {
	s := r.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]model.Turn, len(s.turns))
	copy(snapshot, s.turns)
	return snapshot, nil
}

// Clear 清空会话上下文。
func (r *memoryContextRepository) Clear(_ context.Context, sessionID string) error {
	s := r.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = nil
	return nil
}
