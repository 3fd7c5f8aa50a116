package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PointCache stores resolved grid points. A nil PointCache disables caching.
type PointCache interface {
	Get(ctx context.Context, lat, lon float64) (*GridPoint, bool, error)
	Set(ctx context.Context, lat, lon float64, point *GridPoint) error
}

type RedisPointCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisPointCache(rdb *redis.Client, ttl time.Duration) *RedisPointCache {
	return &RedisPointCache{rdb: rdb, ttl: ttl}
}

func pointCacheKey(lat, lon float64) string {
	return fmt.Sprintf("nws:point:%.4f,%.4f", lat, lon)
}

func (c *RedisPointCache) Get(ctx context.Context, lat, lon float64) (*GridPoint, bool, error) {
	val, err := c.rdb.Get(ctx, pointCacheKey(lat, lon)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var point GridPoint
	if err := json.Unmarshal([]byte(val), &point); err != nil {
		return nil, false, err
	}
	return &point, true, nil
}

func (c *RedisPointCache) Set(ctx context.Context, lat, lon float64, point *GridPoint) error {
	data, err := json.Marshal(point)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, pointCacheKey(lat, lon), data, c.ttl).Err()
}
