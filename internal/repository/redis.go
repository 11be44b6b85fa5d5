package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotelbook/internal/config"
	"hotelbook/internal/models"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const recommendationPrefix = "recs:"

// RedisRecommendationCache stores JSON encoded results with a Redis TTL.
type RedisRecommendationCache struct {
	client *redis.Client
}

// NewRedisClient создает клиент Redis из конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisRecommendationCache(client *redis.Client) *RedisRecommendationCache {
	return &RedisRecommendationCache{client: client}
}

func (r *RedisRecommendationCache) Get(ctx context.Context, key string) (*models.RecommendationResult, bool, error) {
	if r.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, recommendationPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get recommendations from redis: %w", err)
	}

	var result models.RecommendationResult
	if err := json.Unmarshal(val, &result); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal recommendations: %w", err)
	}
	return &result, true, nil
}

func (r *RedisRecommendationCache) Set(ctx context.Context, key string, value *models.RecommendationResult, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if value == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = models.RecommendationCacheTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}
	if err := r.client.Set(ctx, recommendationPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set recommendations in redis: %w", err)
	}
	return nil
}

// InvalidateAll removes every cached result under the recommendation prefix.
func (r *RedisRecommendationCache) InvalidateAll(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, recommendationPrefix+"*", 200).Result()
		if err != nil {
			return fmt.Errorf("failed to scan recommendation keys: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete recommendation keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}
