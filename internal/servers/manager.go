// 包 servers：数据服务器注册表与心跳
package servers

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"geoview/internal/cache"
	"geoview/internal/logger"
	"geoview/internal/metrics"
	"geoview/internal/model"
	"geoview/internal/remote"
)

// Pinger：心跳探测接口，*remote.Client 实现
type Pinger interface {
	Ping(ctx context.Context) error
}

type status struct {
	healthy bool
	last    time.Time
	err     string
}

// Status：对外暴露的服务器健康状态
type Status struct {
	Server  model.ServerConfig `json:"server"`
	Healthy bool               `json:"healthy"`
	Last    time.Time          `json:"last"`
	Error   string             `json:"error,omitempty"`
}

// Manager：按服务器 ID 管理客户端与健康状态
// 约束：心跳周期默认 30s，可由 SERVER_HEARTBEAT_S 调整；新注册的服务器默认健康；线程安全读写
type Manager struct {
	mu         sync.RWMutex
	cfg        map[string]model.ServerConfig
	clients    map[string]*remote.Client
	st         map[string]status
	hbInterval time.Duration
	http       *http.Client
	cache      cache.Cache
	ttl        time.Duration
}

func NewManager(hc *http.Client, c cache.Cache, ttl time.Duration) *Manager {
	iv := 30 * time.Second
	if v := os.Getenv("SERVER_HEARTBEAT_S"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			iv = time.Duration(n) * time.Second
		}
	}
	return &Manager{
		cfg:        map[string]model.ServerConfig{},
		clients:    map[string]*remote.Client{},
		st:         map[string]status{},
		hbInterval: iv,
		http:       hc,
		cache:      c,
		ttl:        ttl,
	}
}

// Configure：以新列表替换注册表；URL 未变的服务器保留客户端与健康状态
func (m *Manager) Configure(servers []model.ServerConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := map[string]bool{}
	for _, s := range servers {
		keep[s.ID] = true
		if old, ok := m.cfg[s.ID]; ok && old.URL == s.URL {
			m.cfg[s.ID] = s
			continue
		}
		m.cfg[s.ID] = s
		m.clients[s.ID] = remote.NewClient(s.URL, m.http, m.cache, m.ttl)
		m.st[s.ID] = status{healthy: true, last: time.Now()}
		logger.L().Info("server_registered", "id", s.ID, "name", s.Name, "url", s.URL)
	}
	for id := range m.cfg {
		if !keep[id] {
			delete(m.cfg, id)
			delete(m.clients, id)
			delete(m.st, id)
			logger.L().Info("server_unregistered", "id", id)
		}
	}
}

// Client：按 ID 取客户端
func (m *Manager) Client(id string) (*remote.Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	return c, ok
}

func (m *Manager) Healthy(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st[id].healthy
}

// Statuses：按 ID 排序的健康状态
func (m *Manager) Statuses() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Status, 0, len(m.cfg))
	for id, s := range m.cfg {
		st := m.st[id]
		out = append(out, Status{Server: s, Healthy: st.healthy, Last: st.last, Error: st.err})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Server.ID < out[j].Server.ID })
	return out
}

// Start：周期性心跳；ctx 取消时停止
func (m *Manager) Start(ctx context.Context) {
	t := time.NewTicker(m.hbInterval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.doHeartbeat(ctx)
			}
		}
	}()
}

// doHeartbeat：在锁外探测，避免慢服务器阻塞读取
func (m *Manager) doHeartbeat(ctx context.Context) {
	m.mu.RLock()
	targets := make(map[string]Pinger, len(m.clients))
	for id, c := range m.clients {
		targets[id] = c
	}
	m.mu.RUnlock()

	results := make(map[string]error, len(targets))
	for id, p := range targets {
		hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		results[id] = p.Ping(hctx)
		cancel()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, err := range results {
		if _, ok := m.cfg[id]; !ok {
			continue
		}
		if err != nil {
			m.st[id] = status{healthy: false, last: time.Now(), err: err.Error()}
			logger.L().Debug("server_heartbeat_fail", "id", id, "err", err)
			metrics.ServerHeartbeatTotal.WithLabelValues(id, "fail").Inc()
		} else {
			m.st[id] = status{healthy: true, last: time.Now()}
			logger.L().Debug("server_heartbeat_ok", "id", id)
			metrics.ServerHeartbeatTotal.WithLabelValues(id, "ok").Inc()
		}
	}
}
