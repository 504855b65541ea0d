// 包 fetch：分块、倒序分页拉取单个 (数据集, 变量, 地点) 的时间序列
// 约束：同一条拉取链的请求严格串行；每个成功的块恰好触发一次合并；地点被删除后静默停止
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"geoview/internal/logger"
	"geoview/internal/metrics"
	"geoview/internal/model"
	"geoview/internal/remote"
	"geoview/internal/timeseries"
)

// Source：时间序列远端接口；无数据时返回 nil
type Source interface {
	TimeSeriesForGeometry(ctx context.Context, req remote.TimeSeriesRequest) ([]model.TimeSeriesPoint, error)
}

// Sink：拉取结果的接收方，通常是会话
type Sink interface {
	// PlaceExists：对实时地点集合做存活校验
	PlaceExists(placeID string) bool
	// MergeTimeSeries：地点仍存在时合并并返回 true；校验与合并须在同一次写入内完成
	MergeTimeSeries(ts *model.TimeSeries, updateMode timeseries.UpdateMode, dataMode timeseries.DataMode) bool
	// NoData：首块即无数据，整个地点没有有效样本
	NoData(sel Selection)
}

// Selection：拉取目标；任一字段缺失时 Run 直接返回
type Selection struct {
	DatasetID  string
	TimeLabels []string
	Variable   *model.Variable
	Place      *model.Place
}

// Options：分块大小（<=0 表示一次取全部）、聚合方式、凭据与合并方式
type Options struct {
	TimeChunkSize int
	UseMedian     bool
	IncludeStdev  bool
	AccessToken   string
	UpdateMode    timeseries.UpdateMode
}

type Driver struct {
	src  Source
	sink Sink
}

func NewDriver(src Source, sink Sink) *Driver {
	return &Driver{src: src, sink: sink}
}

// Run：从最后一个时间标签向前按块拉取，直到覆盖全部时间或链被放弃
// 返回：任一块失败时返回错误，已合并的数据保留
func (d *Driver) Run(ctx context.Context, sel Selection, opts Options) error {
	if sel.DatasetID == "" || sel.Variable == nil || sel.Place == nil || len(sel.TimeLabels) == 0 {
		return nil
	}
	n := len(sel.TimeLabels)
	chunk := opts.TimeChunkSize
	if chunk <= 0 {
		chunk = n
	}
	source := model.TimeSeriesSource{
		DatasetID:     sel.DatasetID,
		VariableName:  sel.Variable.Name,
		VariableUnits: sel.Variable.Units,
		PlaceID:       sel.Place.ID,
	}
	log := logger.L().With("dataset", source.DatasetID, "variable", source.VariableName, "place", source.PlaceID)

	endIndex := n - 1
	startIndex := endIndex - chunk + 1
	for {
		first := endIndex == n-1
		if !first && d.abandoned(log, source.PlaceID, endIndex) {
			return nil
		}
		req := remote.TimeSeriesRequest{
			DatasetID:    sel.DatasetID,
			VariableName: sel.Variable.Name,
			PlaceID:      sel.Place.ID,
			Geometry:     sel.Place.Geometry,
			EndDate:      sel.TimeLabels[endIndex],
			UseMedian:    opts.UseMedian,
			IncludeStdev: opts.IncludeStdev,
			AccessToken:  opts.AccessToken,
		}
		if startIndex >= 0 {
			req.StartDate = sel.TimeLabels[startIndex]
		}
		log.Debug("ts_chunk_begin", "start", req.StartDate, "end", req.EndDate)
		t0 := time.Now()
		data, err := d.src.TimeSeriesForGeometry(ctx, req)
		metrics.ChunkDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
		if err != nil {
			metrics.ChunkRequestsTotal.WithLabelValues("error").Inc()
			metrics.ChainsAbandonedTotal.WithLabelValues("error").Inc()
			log.Warn("ts_chunk_fail", "start", req.StartDate, "end", req.EndDate, "err", err)
			return fmt.Errorf("fetch time series chunk ending %s: %w", req.EndDate, err)
		}
		if len(data) == 0 {
			metrics.ChunkRequestsTotal.WithLabelValues("empty").Inc()
			if first {
				log.Info("ts_no_data")
				d.sink.NoData(sel)
				return nil
			}
		} else {
			metrics.ChunkRequestsTotal.WithLabelValues("data").Inc()
		}

		hasMore := startIndex > 0
		progress := 1.0
		if hasMore {
			progress = float64(n-startIndex) / float64(n)
		}
		dataMode := timeseries.Append
		if first {
			dataMode = timeseries.New
		}
		ts := &model.TimeSeries{Source: source, Data: data, DataProgress: progress}
		if !d.sink.MergeTimeSeries(ts, opts.UpdateMode, dataMode) {
			logAbandoned(log, endIndex)
			return nil
		}
		log.Debug("ts_chunk_merged", "points", len(data), "progress", progress, "data_mode", dataMode.String())
		if !hasMore {
			return nil
		}
		startIndex -= chunk
		endIndex -= chunk
	}
}

func (d *Driver) abandoned(log *slog.Logger, placeID string, endIndex int) bool {
	if d.sink.PlaceExists(placeID) {
		return false
	}
	logAbandoned(log, endIndex)
	return true
}

func logAbandoned(log *slog.Logger, endIndex int) {
	log.Info("ts_chain_abandoned", "reason", "place_removed", "end_index", endIndex)
	metrics.ChainsAbandonedTotal.WithLabelValues("place_removed").Inc()
}
