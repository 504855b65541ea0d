// 包 cache：远端响应缓存，Redis 为主，进程内 ristretto 为兜底
package cache

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/redis/go-redis/v9"

	"geoview/internal/logger"
	"geoview/internal/metrics"
)

// Cache：按键存取原始字节；未命中返回 false，写失败只记录日志
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
}

// Redis：基于 go-redis 的共享缓存
type Redis struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.L().Debug("redis_get_fail", "key", key, "err", err)
		}
		metrics.CacheMissesTotal.WithLabelValues("redis").Inc()
		return nil, false
	}
	metrics.CacheHitsTotal.WithLabelValues("redis").Inc()
	return b, true
}

func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	if err := r.rdb.Set(ctx, r.prefix+key, val, ttl).Err(); err != nil {
		logger.L().Debug("redis_set_fail", "key", key, "err", err)
	}
}

// Memory：进程内缓存，容量按字节计
type Memory struct {
	c *ristretto.Cache
}

func NewMemory(maxBytes int64) (*Memory, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Memory{c: c}, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		metrics.CacheMissesTotal.WithLabelValues("memory").Inc()
		return nil, false
	}
	metrics.CacheHitsTotal.WithLabelValues("memory").Inc()
	return v.([]byte), true
}

// Set：写入后等待缓冲落地，保证随后的 Get 可见
func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	m.c.SetWithTTL(key, val, int64(len(val)), ttl)
	m.c.Wait()
}

func (m *Memory) Close() { m.c.Close() }

// Nop：不缓存
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (Nop) Set(context.Context, string, []byte, time.Duration) {}

// FromEnv：REDIS_HOST 已配置且可 PING 通时使用 Redis，否则退回进程内缓存
// 约束：CACHE_MAX_BYTES 默认 64MiB
func FromEnv(ctx context.Context, rdb *redis.Client) Cache {
	if rdb != nil && os.Getenv("REDIS_HOST") != "" {
		err := rdb.Ping(ctx).Err()
		if err == nil {
			logger.L().Info("cache_backend", "backend", "redis")
			return NewRedis(rdb, "geoview:")
		}
		logger.L().Warn("redis_ping_fail", "err", err)
	}
	maxBytes := int64(64 << 20)
	if v := os.Getenv("CACHE_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			maxBytes = n
		}
	}
	m, err := NewMemory(maxBytes)
	if err != nil {
		logger.L().Warn("cache_init_fail", "err", err)
		return Nop{}
	}
	logger.L().Info("cache_backend", "backend", "memory", "max_bytes", maxBytes)
	return m
}
