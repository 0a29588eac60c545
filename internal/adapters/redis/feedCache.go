package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const FeedKey = "feed:rss"

// FeedCacheRedis نگهداری XML فید RSS در Redis
type FeedCacheRedis struct {
	Client *redis.Client
	Key    string
	Logger *zap.Logger
}

func NewFeedCacheRedis(client *redis.Client, logger *zap.Logger) *FeedCacheRedis {
	return &FeedCacheRedis{
		Client: client,
		Key:    FeedKey,
		Logger: logger,
	}
}

func (r *FeedCacheRedis) Get(ctx context.Context) ([]byte, error) {
	b, err := r.Client.Get(ctx, r.Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *FeedCacheRedis) Set(ctx context.Context, body []byte, ttl time.Duration) error {
	return r.Client.Set(ctx, r.Key, body, ttl).Err()
}

// Invalidate حذف کلید فید تا در درخواست بعدی دوباره ساخته شود
func (r *FeedCacheRedis) Invalidate(ctx context.Context) error {
	if err := r.Client.Del(ctx, r.Key).Err(); err != nil {
		return err
	}
	r.Logger.Info("🧹 Feed cache invalidated", zap.String("key", r.Key))
	return nil
}
