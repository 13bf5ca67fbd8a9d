package repository

import (
	"context"
	"fmt"
	"time"

	"coworkd/internal/config"
	"coworkd/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisTokenStore keeps revoked token ids in redis so logout survives
// restarts and is shared across instances. Entries expire with the token.
type RedisTokenStore struct {
	client *redis.Client
}

// NewRedisClient builds a redis client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return s.client.Set(ctx, models.RevokedTokenPrefix+tokenID, "1", ttl).Err()
}

func (s *RedisTokenStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	_, err := s.client.Get(ctx, models.RevokedTokenPrefix+tokenID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
