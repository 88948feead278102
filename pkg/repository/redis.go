package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/marketplace/pkg/config"
	"github.com/example/marketplace/pkg/models"
	"github.com/go-redis/redis/v8"
)

const (
	tokenCacheTTL = 30 * time.Minute
	orderCacheTTL = time.Hour
)

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// Token cache, keyed by token key, holding the resolved user id.

type TokenCache struct {
	UserID uint `json:"user_id"`
}

func (r *RedisRepository) CacheToken(ctx context.Context, key string, userID uint) error {
	return r.SetJSON(ctx, fmt.Sprintf("token:%s", key), &TokenCache{UserID: userID}, tokenCacheTTL)
}

func (r *RedisRepository) GetTokenCache(ctx context.Context, key string) (uint, error) {
	var tc TokenCache
	if err := r.GetJSON(ctx, fmt.Sprintf("token:%s", key), &tc); err != nil {
		return 0, err
	}
	return tc.UserID, nil
}

// Finalized orders are immutable, so caching them whole is safe.

func (r *RedisRepository) CacheOrder(ctx context.Context, order *models.Order) error {
	return r.SetJSON(ctx, fmt.Sprintf("order:%s", order.ID), order, orderCacheTTL)
}

func (r *RedisRepository) GetOrderCache(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := r.GetJSON(ctx, fmt.Sprintf("order:%s", orderID), &order); err != nil {
		return nil, err
	}
	return &order, nil
}
