package session

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"geoview/internal/i18n"
	"geoview/internal/logger"
	"geoview/internal/model"
	"geoview/internal/selectors"
	"geoview/internal/state"
)

// SyncWithServer：并发拉取服务器信息、数据集与色标；各项失败独立提示，返回第一个错误
func (s *Session) SyncWithServer(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return s.UpdateServerInfo(ctx) })
	g.Go(func() error { return s.UpdateDatasets(ctx) })
	g.Go(func() error { return s.UpdateColorBars(ctx) })
	return g.Wait()
}

func (s *Session) UpdateServerInfo(ctx context.Context) error {
	c, err := s.client()
	if err != nil {
		return err
	}
	info, err := c.ServerInfo(ctx)
	if err != nil {
		s.post(state.MessageError, i18n.T(s.locale(), i18n.FetchFailed, err))
		return err
	}
	s.Dispatch(state.UpdateServerInfo{ServerInfo: info})
	return nil
}

// UpdateDatasets：刷新数据集列表并为选中数据集加载服务器地点组
// 失败时提示错误并清空数据集列表
func (s *Session) UpdateDatasets(ctx context.Context) error {
	c, err := s.client()
	if err != nil {
		return err
	}
	done := s.activity("ds-", i18n.T(s.locale(), i18n.LoadingDatasets))
	defer done()
	datasets, err := c.Datasets(ctx, s.token)
	if err != nil {
		logger.L().Warn("datasets_fetch_fail", "server", c.BaseURL(), "err", err)
		s.post(state.MessageError, i18n.T(s.locale(), i18n.FetchFailed, err))
		s.Dispatch(state.UpdateDatasets{Datasets: []*model.Dataset{}})
		return err
	}
	s.Dispatch(state.UpdateDatasets{Datasets: datasets})
	logger.L().Info("datasets_updated", "server", c.BaseURL(), "count", len(datasets))
	return s.loadDatasetPlaceGroups(ctx)
}

func (s *Session) UpdateColorBars(ctx context.Context) error {
	c, err := s.client()
	if err != nil {
		return err
	}
	cb, err := c.ColorBars(ctx)
	if err != nil {
		s.post(state.MessageError, i18n.T(s.locale(), i18n.FetchFailed, err))
		return err
	}
	s.Dispatch(state.UpdateColorBars{ColorBars: cb})
	return nil
}

// SelectDataset：选中数据集并加载其尚未取回要素的地点组
func (s *Session) SelectDataset(ctx context.Context, datasetID string) error {
	s.Dispatch(state.SelectDataset{DatasetID: datasetID})
	return s.loadDatasetPlaceGroups(ctx)
}

// loadDatasetPlaceGroups：只请求没有要素的地点组；单个失败不影响其他组
func (s *Session) loadDatasetPlaceGroups(ctx context.Context) error {
	ds := selectors.SelectedDataset(s.State())
	if ds == nil {
		return nil
	}
	c, err := s.client()
	if err != nil {
		return err
	}
	var errs []error
	for _, pg := range ds.PlaceGroups {
		if len(pg.Features) > 0 {
			continue
		}
		loaded, err := c.DatasetPlaceGroup(ctx, ds.ID, pg.ID, s.token)
		if err != nil {
			logger.L().Warn("dataset_places_fetch_fail", "dataset", ds.ID, "group", pg.ID, "err", err)
			errs = append(errs, err)
			continue
		}
		if loaded.Title == "" {
			loaded.Title = pg.Title
		}
		s.Dispatch(state.UpdateDatasetPlaceGroup{PlaceGroup: loaded})
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.post(state.MessageError, i18n.T(s.locale(), i18n.FetchFailed, err))
		return err
	}
	return nil
}

// ConfigureServers：切换服务器时清空时间序列并重新同步；仅列表变化时只保存
func (s *Session) ConfigureServers(ctx context.Context, list []model.ServerConfig, selectedServerID string) error {
	prev := s.State()
	switch {
	case prev.Control.SelectedServerID != selectedServerID:
		s.Dispatch(state.RemoveAllTimeSeries{})
		s.configure(ctx, list, selectedServerID)
		return s.SyncWithServer(ctx)
	case !slices.Equal(prev.Data.UserServers, list):
		s.configure(ctx, list, selectedServerID)
	}
	return nil
}

func (s *Session) configure(ctx context.Context, list []model.ServerConfig, selectedServerID string) {
	s.Dispatch(state.ConfigureServers{Servers: list, SelectedServerID: selectedServerID})
	s.servers.Configure(list)
	logger.L().Info("servers_configured", "count", len(list), "selected", selectedServerID)
	if s.store == nil {
		return
	}
	if err := s.store.SaveServers(ctx, list); err != nil {
		logger.L().Warn("servers_save_fail", "err", err)
	}
	s.saveSettings(ctx)
}

// CheckServerUpdate：查询服务器最近一次资源更新时间；与上次记录不同返回 true
// 首次查询只记录，不视为变化
func (s *Session) CheckServerUpdate(ctx context.Context) (bool, error) {
	c, err := s.client()
	if err != nil {
		return false, err
	}
	t, err := c.LastResourcesUpdate(ctx, s.token)
	if err != nil {
		return false, err
	}
	if t == "" {
		return false, nil
	}
	s.updMu.Lock()
	changed := s.lastUpdateTime != "" && s.lastUpdateTime != t
	s.lastUpdateTime = t
	s.updMu.Unlock()
	if changed {
		logger.L().Info("server_resources_updated", "server", c.BaseURL(), "update_time", t)
	}
	return changed, nil
}

// WatchServerUpdates：按 interval 轮询资源更新，失败以指数退避重试；检测到更新时提示并重新同步
func (s *Session) WatchServerUpdates(ctx context.Context, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.pollServerUpdate(ctx)
			}
		}
	}()
}

func (s *Session) pollServerUpdate(ctx context.Context) {
	var changed bool
	op := func() error {
		var err error
		changed, err = s.CheckServerUpdate(ctx)
		if errors.Is(err, selectors.ErrNoServers) || errors.Is(err, selectors.ErrServerNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, b); err != nil {
		logger.L().Warn("server_update_check_fail", "err", err)
		return
	}
	if changed {
		s.post(state.MessageInfo, i18n.T(s.locale(), i18n.ServerUpdated))
		if err := s.resync(ctx); err != nil {
			logger.L().Warn("server_resync_fail", "err", err)
		}
	}
}

// resync：丢弃当前服务器的缓存响应后重新同步
func (s *Session) resync(ctx context.Context) error {
	c, err := s.client()
	if err != nil {
		return err
	}
	c.Invalidate()
	return s.SyncWithServer(ctx)
}

// UpdateResources：请求服务器重新加载资源，随后重新同步
func (s *Session) UpdateResources(ctx context.Context) error {
	c, err := s.client()
	if err != nil {
		return err
	}
	done := s.activity("res-", i18n.T(s.locale(), i18n.UpdatingResources))
	defer done()
	if err := c.UpdateResources(ctx, s.token); err != nil {
		s.post(state.MessageError, i18n.T(s.locale(), i18n.FetchFailed, err))
		return err
	}
	return s.resync(ctx)
}
