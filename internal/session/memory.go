package session

import (
	"context"
	"sync"
	"time"

	"robochat/internal/model"
)

type memorySession struct {
	messages []model.Message
	busy     bool
	lastSeen time.Time
}

// MemoryStore 进程内会话存储，空闲超过 ttl 的会话被清理
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore 创建进程内会话存储；ttl <= 0 时不过期
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if ttl > 0 {
		go s.janitor(ttl / 2)
	}
	return s
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return NewTranscript(), nil
	}
	sess.lastSeen = s.now()
	return NewTranscript(sess.messages...), nil
}

func (s *MemoryStore) Save(_ context.Context, id string, t *Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreate(id)
	sess.messages = t.Messages()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) TryAcquire(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreate(id)
	if sess.busy {
		return false, nil
	}
	sess.busy = true
	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.busy = false
		sess.lastSeen = s.now()
	}
	return nil
}

// Close 停止过期清理
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	return nil
}

// Len 当前会话数
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// caller holds s.mu
func (s *MemoryStore) getOrCreate(id string) *memorySession {
	sess, ok := s.sessions[id]
	if !ok {
		sess = &memorySession{}
		s.sessions[id] = sess
	}
	sess.lastSeen = s.now()
	return sess
}

func (s *MemoryStore) janitor(interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep 清理空闲会话；请求中的会话保留
func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if !sess.busy && sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
