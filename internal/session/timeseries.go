package session

import (
	"context"

	"geoview/internal/fetch"
	"geoview/internal/i18n"
	"geoview/internal/logger"
	"geoview/internal/metrics"
	"geoview/internal/model"
	"geoview/internal/selectors"
	"geoview/internal/state"
	"geoview/internal/timeseries"
)

// AddTimeSeries：为当前选中的 (数据集, 变量, 地点) 启动一条后台拉取链
// 返回：选择不完整时不做任何事；服务器未配置时返回选择器错误
func (s *Session) AddTimeSeries(ctx context.Context) error {
	st := s.State()
	if !selectors.CanAddTimeSeries(st) {
		return nil
	}
	c, err := s.client()
	if err != nil {
		return err
	}
	sel := fetch.Selection{
		DatasetID:  selectors.SelectedDataset(st).ID,
		TimeLabels: selectors.SelectedDatasetTimeLabels(st),
		Variable:   selectors.SelectedVariable(st),
		Place:      selectors.SelectedPlace(st),
	}
	opts := fetch.Options{
		TimeChunkSize: selectors.SelectedTimeChunkSize(st),
		UseMedian:     st.Control.TimeSeriesUseMedian,
		IncludeStdev:  st.Control.TimeSeriesIncludeStdev,
		AccessToken:   s.token,
		UpdateMode:    st.Control.TimeSeriesUpdateMode,
	}
	done := s.activity("ts-", i18n.T(st.Control.Locale, i18n.LoadingTimeSeries))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer done()
		if err := fetch.NewDriver(c, s).Run(s.ctx, sel, opts); err != nil {
			logger.L().Warn("ts_fetch_fail", "dataset", sel.DatasetID, "place", sel.Place.ID, "err", err)
			s.post(state.MessageError, i18n.T(s.locale(), i18n.FetchFailed, err))
		}
	}()
	return nil
}

// PlaceExists：拉取链的存活校验，查询实时状态
func (s *Session) PlaceExists(placeID string) bool {
	return selectors.PlaceExists(s.State(), placeID)
}

// MergeTimeSeries：拉取链的合并事件；地点校验与合并在同一把锁内完成，
// 地点已被删除时丢弃该块
func (s *Session) MergeTimeSeries(ts *model.TimeSeries, updateMode timeseries.UpdateMode, dataMode timeseries.DataMode) bool {
	a := state.UpdateTimeSeries{TimeSeries: ts, UpdateMode: updateMode, DataMode: dataMode}
	s.mu.Lock()
	ok := selectors.PlaceExists(s.st, ts.Source.PlaceID)
	if ok {
		s.st = state.Reduce(s.st, a)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	logger.L().Debug("action_dispatched", "type", a.Type())
	metrics.MergesTotal.WithLabelValues(updateMode.String(), dataMode.String()).Inc()
	return true
}

// NoData：首块无数据时发出提示
func (s *Session) NoData(_ fetch.Selection) {
	s.post(state.MessageInfo, i18n.T(s.locale(), i18n.NoDataFound))
}

func (s *Session) RemoveTimeSeries(groupID string, index int) {
	s.Dispatch(state.RemoveTimeSeries{GroupID: groupID, Index: index})
}

func (s *Session) RemoveTimeSeriesGroup(id string) {
	s.Dispatch(state.RemoveTimeSeriesGroup{ID: id})
}

func (s *Session) RemoveAllTimeSeries() {
	s.Dispatch(state.RemoveAllTimeSeries{})
}
