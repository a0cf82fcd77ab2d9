package repository

import (
	"context"
	"errors"
	"time"

	"carforum/internal/domain/assistant/model"
	"carforum/pkg/cache"
)

// DefaultTTL 会话记录保留时间，每次写入后刷新
const DefaultTTL = 24 * time.Hour

// ConversationRepository 聊天记录存储
type ConversationRepository interface {
	Load(ctx context.Context, sessionID string) ([]model.Turn, error)
	Append(ctx context.Context, sessionID string, turns ...model.Turn) error
	Clear(ctx context.Context, sessionID string) error
}

type conversationRepository struct {
	cache cache.CacheService
	ttl   time.Duration
}

// NewConversationRepository 基于缓存服务 (生产环境为 Redis) 存储
func NewConversationRepository(c cache.CacheService, ttl time.Duration) ConversationRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &conversationRepository{cache: c, ttl: ttl}
}

func key(sessionID string) string {
	return "chat:session:" + sessionID
}

// Load 不存在的会话返回空记录
func (r *conversationRepository) Load(ctx context.Context, sessionID string) ([]model.Turn, error) {
	var turns []model.Turn
	if err := r.cache.Get(ctx, key(sessionID), &turns); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return []model.Turn{}, nil
		}
		return nil, err
	}
	return turns, nil
}

// Append 同一会话的请求由同一用户串行发起，读改写即可
func (r *conversationRepository) Append(ctx context.Context, sessionID string, turns ...model.Turn) error {
	history, err := r.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	history = append(history, turns...)
	return r.cache.Set(ctx, key(sessionID), history, r.ttl)
}

func (r *conversationRepository) Clear(ctx context.Context, sessionID string) error {
	return r.cache.Delete(ctx, key(sessionID))
}
