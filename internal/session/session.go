// 包 session：单写者会话，持有应用状态并编排远端拉取、导入、服务器配置与持久化
// 约束：所有状态变更都经 Dispatch 在互斥锁下执行纯 reducer；异步拉取链只分发事件
package session

import (
	"context"
	"sync"

	"geoview/internal/logger"
	"geoview/internal/model"
	"geoview/internal/remote"
	"geoview/internal/selectors"
	"geoview/internal/servers"
	"geoview/internal/state"
)

// Persister：用户服务器、偏好与用户地点组的持久化；*store.Store 实现
type Persister interface {
	SaveServers(ctx context.Context, servers []model.ServerConfig) error
	SaveSettings(ctx context.Context, selectedServerID string, settings state.Settings) error
	SaveUserPlaceGroups(ctx context.Context, groups []*model.PlaceGroup) error
}

// Locator：IP 定位；*geolocate.Locator 实现
type Locator interface {
	Locate(ip string) (*model.Place, error)
}

// Config：会话初始内容与可选协作方；Store、Locator 为 nil 时对应功能关闭
type Config struct {
	Servers          []model.ServerConfig
	SelectedServerID string
	Settings         state.Settings
	UserPlaceGroups  []*model.PlaceGroup
	AccessToken      string
	Store            Persister
	Locator          Locator
}

type Session struct {
	ctx     context.Context
	mu      sync.Mutex
	st      state.AppState
	servers *servers.Manager
	store   Persister
	locator Locator
	token   string
	wg      sync.WaitGroup

	updMu          sync.Mutex
	lastUpdateTime string
}

// New：构造会话并把服务器列表注册到 mgr；ctx 取消时后台拉取链随之结束
func New(ctx context.Context, cfg Config, mgr *servers.Manager) *Session {
	st := state.New(cfg.Servers, cfg.SelectedServerID, cfg.Settings)
	st.Data.UserPlaceGroups = cfg.UserPlaceGroups
	mgr.Configure(cfg.Servers)
	return &Session{
		ctx:     ctx,
		st:      st,
		servers: mgr,
		store:   cfg.Store,
		locator: cfg.Locator,
		token:   cfg.AccessToken,
	}
}

// State：当前快照；快照不可变，调用方可自由读取
func (s *Session) State() state.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

// Dispatch：同步应用一个事件
func (s *Session) Dispatch(a state.Action) {
	s.mu.Lock()
	s.st = state.Reduce(s.st, a)
	s.mu.Unlock()
	logger.L().Debug("action_dispatched", "type", a.Type())
}

// Wait：等待全部后台拉取链结束
func (s *Session) Wait() { s.wg.Wait() }

// Servers：服务器注册表
func (s *Session) Servers() *servers.Manager { return s.servers }

// client：当前选中服务器的客户端
func (s *Session) client() (*remote.Client, error) {
	srv, err := selectors.SelectedServer(s.State())
	if err != nil {
		return nil, err
	}
	c, ok := s.servers.Client(srv.ID)
	if !ok {
		return nil, selectors.ErrServerNotFound
	}
	return c, nil
}

func (s *Session) locale() string {
	return s.State().Control.Locale
}

func (s *Session) post(typ state.MessageType, text string) {
	s.Dispatch(state.NewMessage(typ, text))
}

// activity：登记活动并返回结束函数
func (s *Session) activity(prefix, text string) func() {
	id := model.NewID(prefix)
	s.Dispatch(state.AddActivity{ID: id, Message: text})
	return func() { s.Dispatch(state.RemoveActivity{ID: id}) }
}
