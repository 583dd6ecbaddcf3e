// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"alienx-go/internal/model"

	"github.com/go-redis/redis/v8"
)

// DefaultMaxHistory 是对话上下文的默认轮数上限（4 组用户/助手消息对）。
const DefaultMaxHistory = 8

// ContextRepository 定义了按会话维度管理对话上下文的操作接口。
// 上下文是一个 FIFO 有界序列：追加超过上限时最旧的条目先被淘汰。
type ContextRepository interface {
	// Append 将一条消息追加到会话上下文末尾，必要时从头部淘汰。
	Append(ctx context.Context, sessionID string, turn model.Turn) error
	// Snapshot 返回会话上下文的只读有序副本。
	Snapshot(ctx context.Context, sessionID string) ([]model.Turn, error)
	// Clear 清空会话上下文，可重复调用。
	Clear(ctx context.Context, sessionID string) error
}

// keyedMutex 为每个会话 ID 提供独立的互斥锁，
// 序列化同一会话的上下文变更而不阻塞无关会话。
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) *sync.Mutex {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m
}

type redisContextRepository struct {
	redisClient *redis.Client
	maxHistory  int
	keys        *keyedMutex
}

// NewRedisContextRepository 创建一个 Redis 实现的 ContextRepository。
// 上下文以 JSON 序列化存储，带 7 天过期时间。
func NewRedisContextRepository(redisClient *redis.Client, maxHistory int) ContextRepository {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &redisContextRepository{
		redisClient: redisClient,
		maxHistory:  maxHistory,
		keys:        newKeyedMutex(),
	}
}

func contextKey(sessionID string) string {
	return fmt.Sprintf("context:%s", sessionID)
}

// Append 在 Redis 中追加一条消息并裁剪到轮数上限。
func (r *redisContextRepository) Append(ctx context.Context, sessionID string, turn model.Turn) error {
	m := r.keys.lock(sessionID)
	defer m.Unlock()

	turns, err := r.load(ctx, sessionID)
	if err != nil {
		return err
	}

	turns = append(turns, turn)
	if len(turns) > r.maxHistory {
		turns = turns[len(turns)-r.maxHistory:]
	}

	jsonData, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("failed to marshal dialogue context: %w", err)
	}
	if err := r.redisClient.Set(ctx, contextKey(sessionID), jsonData, 7*24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to set dialogue context: %w", err)
	}
	return nil
}

// Snapshot 从 Redis 获取会话上下文的副本。
func (r *redisContextRepository) Snapshot(ctx context.Context, sessionID string) ([]model.Turn, error) {
	return r.load(ctx, sessionID)
}

// Clear 删除会话上下文，键不存在时也视为成功。
func (r *redisContextRepository) Clear(ctx context.Context, sessionID string) error {
	m := r.keys.lock(sessionID)
	defer m.Unlock()

	if err := r.redisClient.Del(ctx, contextKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear dialogue context: %w", err)
	}
	return nil
}

func (r *redisContextRepository) load(ctx context.Context, sessionID string) ([]model.Turn, error) {
	jsonData, err := r.redisClient.Get(ctx, contextKey(sessionID)).Result()
	if err == redis.Nil {
		return []model.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dialogue context: %w", err)
	}
	var turns []model.Turn
	if err := json.Unmarshal([]byte(jsonData), &turns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dialogue context: %w", err)
	}
	return turns, nil
}
