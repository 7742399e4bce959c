package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"intellab-testing/internal/domain"

	"github.com/redis/go-redis/v9"
)

// RedisSessionStore shares the auth session between load generator
// processes through a single Redis key. Implements domain.SessionStore.
type RedisSessionStore struct {
	client *redis.Client
	key    string
}

// NewRedisSessionStore creates a store from a redis:// URL.
func NewRedisSessionStore(url, key string) (*RedisSessionStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}

	return &RedisSessionStore{client: redis.NewClient(opts), key: key}, nil
}

// NewRedisSessionStoreWithClient wraps an existing client.
func NewRedisSessionStoreWithClient(client *redis.Client, key string) *RedisSessionStore {
	return &RedisSessionStore{client: client, key: key}
}

// Close closes the Redis connection.
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

// Load returns the cached session, if any.
func (s *RedisSessionStore) Load(ctx context.Context) (domain.AuthSession, bool, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.AuthSession{}, false, nil
	}
	if err != nil {
		return domain.AuthSession{}, false, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	var session domain.AuthSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.AuthSession{}, false, fmt.Errorf("%w: decode session: %w", domain.ErrStoreUnavailable, err)
	}
	return session, true, nil
}

// StoreIfEmpty caches session with SETNX and returns the session that won.
func (s *RedisSessionStore) StoreIfEmpty(ctx context.Context, session domain.AuthSession) (domain.AuthSession, error) {
	raw, err := json.Marshal(session)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("%w: encode session: %w", domain.ErrStoreUnavailable, err)
	}

	stored, err := s.client.SetNX(ctx, s.key, raw, 0).Result()
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if stored {
		return session, nil
	}

	winner, found, err := s.Load(ctx)
	if err != nil {
		return domain.AuthSession{}, err
	}
	if !found {
		// Deleted between SETNX and GET.
		return session, nil
	}
	return winner, nil
}

// Overwrite replaces the cached session.
func (s *RedisSessionStore) Overwrite(ctx context.Context, session domain.AuthSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: encode session: %w", domain.ErrStoreUnavailable, err)
	}

	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}
