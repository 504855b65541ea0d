package utils

import (
	"github.com/redis/go-redis/v9"

	"geoview/internal/logger"
)

// OpenRedisFromEnv：REDIS_HOST 未配置时返回 nil；REDIS_DB 解析失败回退到 0
func OpenRedisFromEnv() *redis.Client {
	host := getenv("REDIS_HOST", "")
	if host == "" {
		return nil
	}
	addr := host + ":" + getenv("REDIS_PORT", "6379")
	db := getenvInt("REDIS_DB", 0)
	if db < 0 {
		db = 0
	}
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: getenv("REDIS_PASS", ""), DB: db})
}
