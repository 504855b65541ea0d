package timeseries

import "geoview/internal/model"

// CollectByPlaceIDs：收集引用给定地点的全部时间序列（只读）
func CollectByPlaceIDs(groups []*model.TimeSeriesGroup, placeIDs []string) []*model.TimeSeries {
	ids := make(map[string]struct{}, len(placeIDs))
	for _, id := range placeIDs {
		ids[id] = struct{}{}
	}
	var out []*model.TimeSeries
	for _, g := range groups {
		for _, ts := range g.TimeSeriesArray {
			if _, ok := ids[ts.Source.PlaceID]; ok {
				out = append(out, ts)
			}
		}
	}
	return out
}

// RemoveAll：先收集后删除，返回清除后的集合
func RemoveAll(groups []*model.TimeSeriesGroup, series []*model.TimeSeries) []*model.TimeSeriesGroup {
	for _, ts := range series {
		groups = Merge(groups, ts, Remove, Append)
	}
	return groups
}

// RemoveGroup：按 ID 删除整组；不存在时原样返回
func RemoveGroup(groups []*model.TimeSeriesGroup, id string) []*model.TimeSeriesGroup {
	i := IndexOfGroup(groups, id)
	if i < 0 {
		return groups
	}
	out := make([]*model.TimeSeriesGroup, 0, len(groups)-1)
	out = append(out, groups[:i]...)
	return append(out, groups[i+1:]...)
}

// RemoveAt：删除组内指定下标的序列；组清空时一并删除
func RemoveAt(groups []*model.TimeSeriesGroup, groupID string, index int) []*model.TimeSeriesGroup {
	i := IndexOfGroup(groups, groupID)
	if i < 0 {
		return groups
	}
	g := groups[i]
	if index < 0 || index >= len(g.TimeSeriesArray) {
		return groups
	}
	arr := make([]*model.TimeSeries, 0, len(g.TimeSeriesArray)-1)
	arr = append(arr, g.TimeSeriesArray[:index]...)
	arr = append(arr, g.TimeSeriesArray[index+1:]...)
	if len(arr) == 0 {
		return RemoveGroup(groups, groupID)
	}
	return replaceGroup(groups, i, withSeries(g, arr))
}

// AppendToGroup：向指定组末尾追加序列
func AppendToGroup(groups []*model.TimeSeriesGroup, groupID string, ts *model.TimeSeries) []*model.TimeSeriesGroup {
	i := IndexOfGroup(groups, groupID)
	if i < 0 {
		return groups
	}
	g := groups[i]
	arr := make([]*model.TimeSeries, 0, len(g.TimeSeriesArray)+1)
	arr = append(arr, g.TimeSeriesArray...)
	arr = append(arr, ts)
	return replaceGroup(groups, i, withSeries(g, arr))
}

func IndexOfGroup(groups []*model.TimeSeriesGroup, id string) int {
	for i, g := range groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// Contains：判断是否已存在该 (dataset, variable, place) 的序列
func Contains(groups []*model.TimeSeriesGroup, datasetID, variableName, placeID string) bool {
	key := model.TimeSeriesSource{DatasetID: datasetID, VariableName: variableName, PlaceID: placeID}
	for _, g := range groups {
		if indexOfKey(g.TimeSeriesArray, key) >= 0 {
			return true
		}
	}
	return false
}
