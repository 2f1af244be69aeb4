package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cavision/internal/quiz"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("quiz session not found")

// SessionStore keeps quiz sessions and each user's current-quiz pointer.
type SessionStore interface {
	// Start saves s and makes it the user's current quiz, discarding the previous one.
	Start(ctx context.Context, s *quiz.Session) error
	Save(ctx context.Context, s *quiz.Session) error
	Get(ctx context.Context, id string) (*quiz.Session, error)
	Current(ctx context.Context, userID string) (*quiz.Session, error)
}

func sessionKey(id string) string     { return "quiz:session:" + id }
func currentKey(userID string) string { return "quiz:current:" + userID }

type RedisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

func (r *RedisSessionStore) Start(ctx context.Context, s *quiz.Session) error {
	prev, err := r.rdb.Get(ctx, currentKey(s.UserID)).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to read current quiz: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if prev != "" && prev != s.ID {
			pipe.Del(ctx, sessionKey(prev))
		}
		pipe.Set(ctx, sessionKey(s.ID), s, r.ttl)
		pipe.Set(ctx, currentKey(s.UserID), s.ID, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to start quiz session: %w", err)
	}
	return nil
}

// Save stores s and extends the current-quiz pointer along with it.
func (r *RedisSessionStore) Save(ctx context.Context, s *quiz.Session) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(s.ID), s, r.ttl)
		pipe.Expire(ctx, currentKey(s.UserID), r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save quiz session: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Get(ctx context.Context, id string) (*quiz.Session, error) {
	var s quiz.Session
	err := r.rdb.Get(ctx, sessionKey(id)).Scan(&s)
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz session: %w", err)
	}
	return &s, nil
}

func (r *RedisSessionStore) Current(ctx context.Context, userID string) (*quiz.Session, error) {
	id, err := r.rdb.Get(ctx, currentKey(userID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read current quiz: %w", err)
	}
	return r.Get(ctx, id)
}

// MemorySessionStore is used when redis is not configured. Sessions do not
// survive a restart.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
	current  map[string]string
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string][]byte),
		current:  make(map[string]string),
	}
}

func (m *MemorySessionStore) Start(ctx context.Context, s *quiz.Session) error {
	data, err := s.MarshalBinary()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.current[s.UserID]; ok && prev != s.ID {
		delete(m.sessions, prev)
	}
	m.sessions[s.ID] = data
	m.current[s.UserID] = s.ID
	return nil
}

func (m *MemorySessionStore) Save(ctx context.Context, s *quiz.Session) error {
	data, err := s.MarshalBinary()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = data
	return nil
}

func (m *MemorySessionStore) Get(ctx context.Context, id string) (*quiz.Session, error) {
	m.mu.Lock()
	data, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	var s quiz.Session
	if err := s.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *MemorySessionStore) Current(ctx context.Context, userID string) (*quiz.Session, error) {
	m.mu.Lock()
	id, ok := m.current[userID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.Get(ctx, id)
}
