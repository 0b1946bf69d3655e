// Package idempotency replays the stored response of a POST retried with the
// same Idempotency-Key, so a client retry never creates a second case, link
// or statement.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Record is the stored outcome of a keyed request. Pending records mark a
// request that is still executing.
type Record struct {
	Pending     bool   `json:"pending,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Store reserves keys and keeps completed responses until they expire.
type Store interface {
	// Reserve claims key. When the key is already taken it returns false and
	// the existing record.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, *Record, error)
	Complete(ctx context.Context, key string, rec Record, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

const keyPrefix = "firledger:idem:"

var pendingRecord = Record{Pending: true}

// RedisStore keeps records in Redis using SETNX for the reservation.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, *Record, error) {
	pending, err := json.Marshal(pendingRecord)
	if err != nil {
		return false, nil, err
	}
	for range 2 {
		ok, err := s.client.SetNX(ctx, keyPrefix+key, pending, ttl).Result()
		if err != nil {
			return false, nil, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if ok {
			return true, nil, nil
		}
		raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			continue
		}
		if err != nil {
			return false, nil, fmt.Errorf("load idempotency key: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return false, nil, fmt.Errorf("decode idempotency record: %w", err)
		}
		return false, &rec, nil
	}
	return false, &pendingRecord, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("store idempotency record: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

type memoryEntry struct {
	rec       Record
	expiresAt time.Time
}

// InMemoryStore is the single-process store used without Redis and as the
// fallback while Redis is unreachable.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *InMemoryStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, *Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		rec := e.rec
		return false, &rec, nil
	}
	s.entries[key] = memoryEntry{rec: pendingRecord, expiresAt: now.Add(ttl)}
	return true, nil, nil
}

func (s *InMemoryStore) Complete(_ context.Context, key string, rec Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{rec: rec, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
