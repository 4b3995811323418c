// Package storage persists the editor's small state documents (settings and
// selections) as JSON blobs under fixed keys.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"localeditor/database"
	"localeditor/redis"
	"localeditor/utils"

	"go.uber.org/zap"
)

// ErrNotFound is returned by Get for keys that were never set or were deleted.
var ErrNotFound = errors.New("storage: key not found")

// Keys used by the editor.
const (
	KeySelections = "selections"
	KeySettings   = "settings"
)

// Backend names accepted by STORAGE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Store is a small key/value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Open picks a backend by name. Redis and PostgreSQL are created from their
// environment configuration; an unavailable backend is an error.
func Open(ctx context.Context, backend string, rs *redis.Service) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		if rs == nil {
			return nil, fmt.Errorf("storage: redis backend requested without a redis service")
		}
		return NewRedisStore(rs), nil
	case BackendPostgres:
		client, err := database.NewClient(ctx, database.GetConfigFromEnv())
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		store, err := NewPostgresStore(ctx, client)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}

// LoadJSON decodes key into a copy of defaults overlaid by merge. Missing
// keys yield defaults; corrupt payloads are logged and also yield defaults.
func LoadJSON[T any](ctx context.Context, s Store, key string, defaults T, merge func(saved, defaults T) T) T {
	data, err := s.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			utils.Logger.Error("Failed to read saved state", zap.String("key", key), zap.Error(err))
		}
		return defaults
	}

	var saved T
	if err := json.Unmarshal(data, &saved); err != nil {
		utils.Logger.Error("Failed to parse saved state", zap.String("key", key), zap.Error(err))
		return defaults
	}
	return merge(saved, defaults)
}

// SaveJSON encodes v under key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
