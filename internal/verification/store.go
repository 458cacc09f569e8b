package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mozpaylabs/mozpay-backend/pkg/redis"
)

// Store persists OTP sessions and phone cooldown locks.
type Store interface {
	SaveSession(ctx context.Context, session Session, ttl time.Duration) error
	GetSession(ctx context.Context, id string) (Session, bool, error)
	DeleteSession(ctx context.Context, id string) error

	LockPhone(ctx context.Context, phoneHash string, ttl time.Duration) error
	PhoneLocked(ctx context.Context, phoneHash string) (bool, error)
}

type redisAPI interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	VerificationSessionKey(sessionID string) string
	PhoneLockKey(phoneHash string) string
}

var _ redisAPI = (*redis.Client)(nil)

// RedisStore keeps sessions as JSON blobs under TTL'd keys.
type RedisStore struct {
	client redisAPI
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) SaveSession(ctx context.Context, session Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding verification session: %w", err)
	}
	return s.client.Set(ctx, s.client.VerificationSessionKey(session.ID.String()), payload, ttl)
}

func (s *RedisStore) GetSession(ctx context.Context, id string) (Session, bool, error) {
	raw, err := s.client.Get(ctx, s.client.VerificationSessionKey(id))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return Session{}, false, nil
		}
		return Session{}, false, err
	}
	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return Session{}, false, fmt.Errorf("decoding verification session: %w", err)
	}
	return session, true, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.client.VerificationSessionKey(id))
}

func (s *RedisStore) LockPhone(ctx context.Context, phoneHash string, ttl time.Duration) error {
	return s.client.Set(ctx, s.client.PhoneLockKey(phoneHash), "1", ttl)
}

func (s *RedisStore) PhoneLocked(ctx context.Context, phoneHash string) (bool, error) {
	_, err := s.client.Get(ctx, s.client.PhoneLockKey(phoneHash))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MemoryStore is the in-process Store used by tests and by dev setups without
// Redis. Expiry is enforced lazily on read.
type MemoryStore struct {
	mu       sync.Mutex
	clock    Clock
	sessions map[string]memoryEntry
	locks    map[string]time.Time
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

func NewMemoryStore(clock Clock) *MemoryStore {
	return &MemoryStore{
		clock:    clock,
		sessions: make(map[string]memoryEntry),
		locks:    make(map[string]time.Time),
	}
}

func (s *MemoryStore) SaveSession(_ context.Context, session Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID.String()] = memoryEntry{
		session:   session,
		expiresAt: s.clock.Now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return Session{}, false, nil
	}
	if !s.clock.Now().Before(entry.expiresAt) {
		delete(s.sessions, id)
		return Session{}, false, nil
	}
	return entry.session, true, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) LockPhone(_ context.Context, phoneHash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[phoneHash] = s.clock.Now().Add(ttl)
	return nil
}

func (s *MemoryStore) PhoneLocked(_ context.Context, phoneHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.locks[phoneHash]
	if !ok {
		return false, nil
	}
	if !s.clock.Now().Before(until) {
		delete(s.locks, phoneHash)
		return false, nil
	}
	return true, nil
}
