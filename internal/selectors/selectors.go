// 包 selectors：从应用状态解析当前选择（服务器、数据集、变量、地点、时间）的纯函数
package selectors

import (
	"errors"
	"math"
	"strings"
	"time"

	"geoview/internal/model"
	"geoview/internal/state"
)

var (
	ErrNoServers      = errors.New("no servers configured")
	ErrServerNotFound = errors.New("selected server not found")
)

const (
	DefaultColorBarName = "viridis"
	DefaultOpacity      = 1.0
	DefaultUnits        = "-"
)

// SelectedServer：返回当前服务器；未配置服务器或 ID 不存在属于部署错误
func SelectedServer(s state.AppState) (model.ServerConfig, error) {
	servers := s.Data.UserServers
	if len(servers) == 0 {
		return model.ServerConfig{}, ErrNoServers
	}
	for _, srv := range servers {
		if srv.ID == s.Control.SelectedServerID {
			return srv, nil
		}
	}
	return model.ServerConfig{}, ErrServerNotFound
}

func SelectedDataset(s state.AppState) *model.Dataset {
	if s.Control.SelectedDatasetID == "" {
		return nil
	}
	return model.FindDataset(s.Data.Datasets, s.Control.SelectedDatasetID)
}

func SelectedVariable(s state.AppState) *model.Variable {
	ds := SelectedDataset(s)
	if ds == nil || s.Control.SelectedVariableName == "" {
		return nil
	}
	return ds.Variable(s.Control.SelectedVariableName)
}

func SelectedVariableUnits(s state.AppState) string {
	v := SelectedVariable(s)
	if v == nil || v.Units == "" {
		return DefaultUnits
	}
	return v.Units
}

// SelectedDatasetTimeDimension：时间维度；没有标签时视为缺失
func SelectedDatasetTimeDimension(s state.AppState) *model.Dimension {
	ds := SelectedDataset(s)
	if ds == nil {
		return nil
	}
	td := ds.TimeDimension()
	if td == nil || len(td.Labels) == 0 {
		return nil
	}
	return td
}

func SelectedDatasetTimeLabels(s state.AppState) []string {
	if td := SelectedDatasetTimeDimension(s); td != nil {
		return td.Labels
	}
	return nil
}

// DatasetPlaceGroups：当前数据集自带的地点组
func DatasetPlaceGroups(s state.AppState) []*model.PlaceGroup {
	if ds := SelectedDataset(s); ds != nil {
		return ds.PlaceGroups
	}
	return nil
}

// PlaceGroups：数据集地点组在前，用户地点组在后
func PlaceGroups(s state.AppState) []*model.PlaceGroup {
	dsGroups := DatasetPlaceGroups(s)
	out := make([]*model.PlaceGroup, 0, len(dsGroups)+len(s.Data.UserPlaceGroups))
	out = append(out, dsGroups...)
	return append(out, s.Data.UserPlaceGroups...)
}

func SelectedPlaceGroups(s state.AppState) []*model.PlaceGroup {
	all := PlaceGroups(s)
	var out []*model.PlaceGroup
	for _, id := range s.Control.SelectedPlaceGroupIDs {
		if i := model.IndexOfPlaceGroup(all, id); i >= 0 {
			out = append(out, all[i])
		}
	}
	return out
}

// SelectedPlaceGroupsTitle：选中地点组标题，逗号分隔
func SelectedPlaceGroupsTitle(s state.AppState) string {
	var titles []string
	for _, pg := range SelectedPlaceGroups(s) {
		if pg.Title != "" {
			titles = append(titles, pg.Title)
		} else {
			titles = append(titles, pg.ID)
		}
	}
	return strings.Join(titles, ", ")
}

func SelectedPlaces(s state.AppState) []*model.Place {
	var out []*model.Place
	model.ForEachPlace(SelectedPlaceGroups(s), func(_ *model.PlaceGroup, p *model.Place) {
		out = append(out, p)
	})
	return out
}

// SelectedPlace：仅在选中地点组中查找
func SelectedPlace(s state.AppState) *model.Place {
	if s.Control.SelectedPlaceID == "" {
		return nil
	}
	_, p := model.FindPlace(SelectedPlaceGroups(s), s.Control.SelectedPlaceID)
	return p
}

// PlaceExists：地点是否仍在全部地点组中（拉取链的存活校验）
func PlaceExists(s state.AppState, placeID string) bool {
	_, p := model.FindPlace(PlaceGroups(s), placeID)
	return p != nil
}

// SelectedTimeChunkSize：按变量的原生分块取整；变量无分块时使用偏好值
func SelectedTimeChunkSize(s state.AppState) int {
	minSize := s.Control.TimeChunkSize
	v := SelectedVariable(s)
	if v == nil || v.TimeChunkSize <= 0 {
		return minSize
	}
	n := v.TimeChunkSize
	return n * int(math.Ceil(float64(minSize)/float64(n)))
}

func CanAddTimeSeries(s state.AppState) bool {
	return SelectedDataset(s) != nil && SelectedVariable(s) != nil &&
		SelectedPlace(s) != nil && SelectedDatasetTimeDimension(s) != nil
}

// TimeSeriesPlaceInfos：当前时间序列引用的地点显示信息，按地点 ID 索引
func TimeSeriesPlaceInfos(s state.AppState) map[string]model.PlaceInfo {
	groups := PlaceGroups(s)
	out := map[string]model.PlaceInfo{}
	for _, g := range s.Data.TimeSeriesGroups {
		for _, ts := range g.TimeSeriesArray {
			id := ts.Source.PlaceID
			if _, ok := out[id]; ok {
				continue
			}
			if pg, p := model.FindPlace(groups, id); p != nil {
				out[id] = model.GetPlaceInfo(pg, p)
			}
		}
	}
	return out
}

func SelectedVariableColorBarName(s state.AppState) string {
	if v := SelectedVariable(s); v != nil && v.ColorBarName != "" {
		return v.ColorBarName
	}
	return DefaultColorBarName
}

// SelectedVariableColorBarMinMax：未配置范围时为 [0, 1]
func SelectedVariableColorBarMinMax(s state.AppState) (float64, float64) {
	v := SelectedVariable(s)
	if v == nil || v.ColorBarMin >= v.ColorBarMax {
		return 0, 1
	}
	return v.ColorBarMin, v.ColorBarMax
}

func SelectedVariableOpacity(s state.AppState) float64 {
	if v := SelectedVariable(s); v != nil && v.Opacity != nil {
		return *v.Opacity
	}
	return DefaultOpacity
}

// SelectedTimeIndex：与选中时间最近的时间标签下标；无法解析或无时间维度时 -1
func SelectedTimeIndex(s state.AppState) int {
	labels := SelectedDatasetTimeLabels(s)
	if len(labels) == 0 || s.Control.SelectedTime == "" {
		return -1
	}
	for i, l := range labels {
		if l == s.Control.SelectedTime {
			return i
		}
	}
	want, err := parseTime(s.Control.SelectedTime)
	if err != nil {
		return -1
	}
	best, bestDiff := -1, time.Duration(math.MaxInt64)
	for i, l := range labels {
		t, err := parseTime(l)
		if err != nil {
			continue
		}
		d := t.Sub(want)
		if d < 0 {
			d = -d
		}
		if d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return best
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Parse(time.RFC3339, s)
}
