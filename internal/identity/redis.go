package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the anonymous session id in redis, keyed by a
// caller-chosen profile name. Useful when the storefront runs as a
// multi-instance web frontend rather than a single process.
type RedisStore struct {
	client  *redis.Client
	profile string
}

func NewRedisStore(client *redis.Client, profile string) *RedisStore {
	return &RedisStore{client: client, profile: profile}
}

func (s *RedisStore) Load(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, sessionKey(s.profile)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return id, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string) error {
	// No TTL: the slot lives until logout replaces or reuses it.
	if err := s.client.Set(ctx, sessionKey(s.profile), sessionID, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func sessionKey(profile string) string {
	return fmt.Sprintf("session:%s", profile)
}
