// 包 remote：数据服务器 REST 客户端（服务器信息、数据集、地点组、色标、时间序列、资源维护）
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"geoview/internal/cache"
	"geoview/internal/logger"
	"geoview/internal/metrics"
)

const maxBodyBytes = 32 << 20

// StatusError：服务器返回非 200
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Client：单个数据服务器的客户端
// 约束：不带凭据的 GET 响应写入缓存；携带凭据的请求与时间序列请求不缓存
// 缓存键带代数，Invalidate 之后旧条目不再命中
type Client struct {
	baseURL string
	http    *http.Client
	cache   cache.Cache
	ttl     time.Duration
	gen     atomic.Uint64
}

// NewClient：hc 为空时使用 30s 超时的默认客户端；c 为空时不缓存
func NewClient(baseURL string, hc *http.Client, c cache.Cache, ttl time.Duration) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if c == nil {
		c = cache.Nop{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc, cache: c, ttl: ttl}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Invalidate：服务器资源变更后丢弃本客户端已缓存的响应
func (c *Client) Invalidate() {
	g := c.gen.Add(1)
	logger.L().Debug("remote_cache_invalidate", "server", c.baseURL, "generation", g)
}

// getJSON：GET 并解码到 out；endpoint 仅用于指标标签
func (c *Client) getJSON(ctx context.Context, endpoint, path, token string, out any) error {
	key := c.baseURL + "#" + strconv.FormatUint(c.gen.Load(), 10) + path
	cacheable := token == ""
	if cacheable {
		if b, ok := c.cache.Get(ctx, key); ok {
			if err := json.Unmarshal(b, out); err == nil {
				return nil
			}
		}
	}
	b, err := c.do(ctx, endpoint, http.MethodGet, path, token, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		metrics.RemoteFailTotal.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	if cacheable && c.ttl > 0 {
		c.cache.Set(ctx, key, b, c.ttl)
	}
	return nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path, token string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	t0 := time.Now()
	metrics.RemoteRequestsTotal.WithLabelValues(endpoint).Inc()
	logger.L().Debug("remote_req", "endpoint", endpoint, "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RemoteFailTotal.WithLabelValues(endpoint).Inc()
		logger.L().Warn("remote_http_error", "endpoint", endpoint, "err", err)
		return nil, err
	}
	defer resp.Body.Close()
	dur := time.Since(t0).Milliseconds()
	metrics.RemoteDurationMs.WithLabelValues(endpoint).Observe(float64(dur))
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		metrics.RemoteFailTotal.WithLabelValues(endpoint).Inc()
		return nil, &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.RemoteFailTotal.WithLabelValues(endpoint).Inc()
		return nil, err
	}
	logger.L().Debug("remote_resp", "endpoint", endpoint, "bytes", len(b), "duration_ms", dur)
	return b, nil
}

func boolParam(b bool) string {
	return strconv.FormatBool(b)
}

func escape(s string) string { return url.PathEscape(s) }
