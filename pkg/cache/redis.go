// Package cache 基于 Redis 的读穿透缓存
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"DividendRadar/pkg/config"
)

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache miss")

// RedisCache 带统一键前缀和单次请求超时的 Redis 缓存
type RedisCache struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
}

// NewRedisClient 按配置创建 Redis 客户端
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
}

// NewRedisCache 创建缓存，prefix 作为命名空间，例如 "finance"
func NewRedisCache(client redis.UniversalClient, prefix string, timeout time.Duration) *RedisCache {
	return &RedisCache{
		client:  client,
		prefix:  prefix,
		timeout: timeout,
	}
}

func (c *RedisCache) key(key string) string {
	return c.prefix + "::" + key
}

// Get 读取缓存，未命中返回 ErrMiss
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("读取缓存失败: %w", err)
	}
	return data, nil
}

// Put 写入缓存并设置过期时间
func (c *RedisCache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("写入缓存失败: %w", err)
	}
	return nil
}

// Evict 删除缓存，键不存在不算错误
func (c *RedisCache) Evict(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("删除缓存失败: %w", err)
	}
	return nil
}

// Ping 健康检查
func (c *RedisCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.client.Ping(ctx).Err()
}

// Nop 不缓存任何内容，本地模式下使用
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }

func (Nop) Put(context.Context, string, []byte, time.Duration) error { return nil }

func (Nop) Evict(context.Context, string) error { return nil }
