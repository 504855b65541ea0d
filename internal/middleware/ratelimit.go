// 包 middleware：HTTP 入口的限流、来源 IP 白名单与真实 IP 解析
package middleware

import (
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

// TokenBucket：按秒补满的令牌桶
// 约束：不排队，超限直接返回 429
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	now      func() time.Time
	mu       sync.Mutex
}

func NewTokenBucket(qps int) *TokenBucket {
	return &TokenBucket{capacity: qps, tokens: qps, lastSec: time.Now().Unix(), now: time.Now}
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	nowSec := tb.now().Unix()
	if tb.lastSec != nowSec {
		tb.lastSec = nowSec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Limit：用令牌桶包装 handler
func Limit(tb *TokenBucket, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tb.Allow() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Wrap：按环境变量组装入口中间件
// RATE_LIMIT_ENABLED=true 启用限流，RATE_LIMIT_QPS 默认 200；ALLOW_IPS/ALLOW_CIDRS 非空时启用白名单
func Wrap(next http.Handler) http.Handler {
	h := next
	if al := AllowListFromEnv(); al != nil {
		h = al.Wrap(h)
	}
	if os.Getenv("RATE_LIMIT_ENABLED") == "true" {
		qps := 200
		if s := os.Getenv("RATE_LIMIT_QPS"); s != "" {
			if n, e := strconv.Atoi(s); e == nil && n > 0 {
				qps = n
			}
		}
		h = Limit(NewTokenBucket(qps), h)
	}
	return h
}
