// 包 timeseries：时间序列集合的合并引擎
// 约束：所有操作返回新切片，不修改传入的组或序列；未变化的组保持原指针
package timeseries

import (
	"fmt"

	"geoview/internal/model"
)

// UpdateMode：合并时对集合的更新方式
type UpdateMode int

const (
	Add UpdateMode = iota
	Replace
	Remove
)

func (m UpdateMode) String() string {
	switch m {
	case Add:
		return "add"
	case Replace:
		return "replace"
	case Remove:
		return "remove"
	}
	return fmt.Sprintf("UpdateMode(%d)", int(m))
}

// ParseUpdateMode：解析 add/replace/remove
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch s {
	case "add":
		return Add, nil
	case "replace":
		return Replace, nil
	case "remove":
		return Remove, nil
	}
	return 0, fmt.Errorf("unknown update mode %q", s)
}

func (m UpdateMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *UpdateMode) UnmarshalText(b []byte) error {
	v, err := ParseUpdateMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// DataMode：新序列或追加到已有序列
type DataMode int

const (
	New DataMode = iota
	Append
)

func (m DataMode) String() string {
	switch m {
	case New:
		return "new"
	case Append:
		return "append"
	}
	return fmt.Sprintf("DataMode(%d)", int(m))
}

// Merge：将一个时间序列按更新方式与数据方式并入分组集合
// 返回：新集合；对不存在的键执行 remove 时原样返回输入切片
func Merge(groups []*model.TimeSeriesGroup, ts *model.TimeSeries, updateMode UpdateMode, dataMode DataMode) []*model.TimeSeriesGroup {
	checkModes(updateMode, dataMode)
	gi := indexOfUnits(groups, ts.Source.VariableUnits)
	if gi < 0 {
		switch updateMode {
		case Add:
			out := make([]*model.TimeSeriesGroup, 0, len(groups)+1)
			out = append(out, newGroup(ts))
			return append(out, groups...)
		case Replace:
			return []*model.TimeSeriesGroup{newGroup(ts)}
		default:
			return groups
		}
	}

	group := groups[gi]
	si := indexOfKey(group.TimeSeriesArray, ts.Source)
	if si < 0 {
		switch updateMode {
		case Add:
			arr := make([]*model.TimeSeries, 0, len(group.TimeSeriesArray)+1)
			arr = append(arr, ts)
			arr = append(arr, group.TimeSeriesArray...)
			return replaceGroup(groups, gi, withSeries(group, arr))
		case Replace:
			return []*model.TimeSeriesGroup{withSeries(group, []*model.TimeSeries{ts})}
		default:
			return groups
		}
	}

	merged := ts
	if dataMode == Append {
		merged = appendData(ts, group.TimeSeriesArray[si])
	}
	switch updateMode {
	case Add:
		arr := make([]*model.TimeSeries, len(group.TimeSeriesArray))
		copy(arr, group.TimeSeriesArray)
		arr[si] = merged
		return replaceGroup(groups, gi, withSeries(group, arr))
	case Replace:
		return []*model.TimeSeriesGroup{withSeries(group, []*model.TimeSeries{merged})}
	default:
		arr := make([]*model.TimeSeries, 0, len(group.TimeSeriesArray)-1)
		arr = append(arr, group.TimeSeriesArray[:si]...)
		arr = append(arr, group.TimeSeriesArray[si+1:]...)
		if len(arr) == 0 {
			return RemoveGroup(groups, group.ID)
		}
		return replaceGroup(groups, gi, withSeries(group, arr))
	}
}

func checkModes(updateMode UpdateMode, dataMode DataMode) {
	switch updateMode {
	case Add, Replace, Remove:
	default:
		panic("timeseries: invalid " + updateMode.String())
	}
	switch dataMode {
	case New, Append:
	default:
		panic("timeseries: invalid " + dataMode.String())
	}
}

// appendData：新块在前、已有数据在后；进度取两者较大值
func appendData(chunk, existing *model.TimeSeries) *model.TimeSeries {
	data := make([]model.TimeSeriesPoint, 0, len(chunk.Data)+len(existing.Data))
	data = append(data, chunk.Data...)
	data = append(data, existing.Data...)
	progress := chunk.DataProgress
	if existing.DataProgress > progress {
		progress = existing.DataProgress
	}
	return &model.TimeSeries{Source: chunk.Source, Data: data, DataProgress: progress}
}

func newGroup(ts *model.TimeSeries) *model.TimeSeriesGroup {
	return &model.TimeSeriesGroup{
		ID:              model.NewID("ts-"),
		VariableUnits:   ts.Source.VariableUnits,
		TimeSeriesArray: []*model.TimeSeries{ts},
	}
}

func withSeries(g *model.TimeSeriesGroup, arr []*model.TimeSeries) *model.TimeSeriesGroup {
	return &model.TimeSeriesGroup{ID: g.ID, VariableUnits: g.VariableUnits, TimeSeriesArray: arr}
}

func replaceGroup(groups []*model.TimeSeriesGroup, i int, g *model.TimeSeriesGroup) []*model.TimeSeriesGroup {
	out := make([]*model.TimeSeriesGroup, len(groups))
	copy(out, groups)
	out[i] = g
	return out
}

func indexOfUnits(groups []*model.TimeSeriesGroup, units string) int {
	for i, g := range groups {
		if g.VariableUnits == units {
			return i
		}
	}
	return -1
}

func indexOfKey(arr []*model.TimeSeries, src model.TimeSeriesSource) int {
	for i, ts := range arr {
		if ts.Source.SameKey(src) {
			return i
		}
	}
	return -1
}
