package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"robochat/internal/pkg/cache"
	"robochat/internal/pkg/id"
)

// RedisStore 基于 Redis 的会话存储，多进程部署时共享会话与进行中标记
// 进行中标记的值为本进程生成的令牌，释放时只删除自己持有的标记
type RedisStore struct {
	cache   *cache.RedisCache
	ttl     time.Duration
	lockTTL time.Duration

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisStore 创建 Redis 会话存储
// lockTTL 为进行中标记的过期时间，进程崩溃时标记会自动失效
func NewRedisStore(c *cache.RedisCache, ttl, lockTTL time.Duration) *RedisStore {
	return &RedisStore{
		cache:   c,
		ttl:     ttl,
		lockTTL: lockTTL,
		tokens:  make(map[string]string),
	}
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Transcript, error) {
	t := NewTranscript()
	if err := s.cache.Get(ctx, cache.SessionKey(sessionID), t); err != nil {
		if cache.IsNil(err) {
			return NewTranscript(), nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return t, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, t *Transcript) error {
	if err := s.cache.Set(ctx, cache.SessionKey(sessionID), t, s.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.tokens, sessionID)
	s.mu.Unlock()
	return s.cache.Delete(ctx, cache.SessionKey(sessionID), cache.SessionBusyKey(sessionID))
}

func (s *RedisStore) TryAcquire(ctx context.Context, sessionID string) (bool, error) {
	token := id.NewLockToken()
	ok, err := s.cache.SetNX(ctx, cache.SessionBusyKey(sessionID), token, s.lockTTL)
	if err != nil {
		return false, fmt.Errorf("acquire session: %w", err)
	}
	if ok {
		s.mu.Lock()
		s.tokens[sessionID] = token
		s.mu.Unlock()
	}
	return ok, nil
}

// Release 释放本进程持有的进行中标记；标记已过期并被其他进程获取时保持不动
func (s *RedisStore) Release(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	token, ok := s.tokens[sessionID]
	delete(s.tokens, sessionID)
	s.mu.Unlock()
	if !ok {
		return nil
	}

	released, err := s.cache.DeleteIfEqual(ctx, cache.SessionBusyKey(sessionID), token)
	if err != nil {
		return fmt.Errorf("release session: %w", err)
	}
	if !released {
		log.Warn().Str("session_id", sessionID).Msg("session lock expired before release")
	}
	return nil
}

// Close Redis 连接由 server 统一关闭
func (s *RedisStore) Close() error {
	return nil
}
