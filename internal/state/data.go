package state

import (
	"geoview/internal/model"
	"geoview/internal/timeseries"
)

func reduceData(d DataState, a Action) DataState {
	switch a := a.(type) {
	case UpdateServerInfo:
		d.ServerInfo = a.ServerInfo
	case UpdateDatasets:
		d.Datasets = a.Datasets
	case UpdateDatasetPlaceGroup:
		d.Datasets = replaceDatasetPlaceGroup(d.Datasets, a.PlaceGroup)
	case UpdateColorBars:
		d.ColorBars = a.ColorBars
	case UpdateVariableColorBar:
		d.Datasets = updateVariable(d.Datasets, a.DatasetID, a.VariableName, func(v *model.Variable) {
			v.ColorBarName = a.ColorBarName
			v.ColorBarMin = a.ColorBarMin
			v.ColorBarMax = a.ColorBarMax
			opacity := a.Opacity
			v.Opacity = &opacity
		})
	case UpdateVariableVolume:
		d.Datasets = updateVariable(d.Datasets, a.DatasetID, a.VariableName, func(v *model.Variable) {
			v.VolumeRenderMode = a.VolumeRenderMode
			th := a.VolumeIsoThreshold
			v.VolumeIsoThreshold = &th
		})
	case AddDrawnUserPlace:
		d.UserPlaceGroups = addDrawnPlace(d.UserPlaceGroups, a.Title, a.Place)
	case AddImportedUserPlaceGroups:
		groups := make([]*model.PlaceGroup, 0, len(d.UserPlaceGroups)+len(a.PlaceGroups))
		groups = append(groups, d.UserPlaceGroups...)
		d.UserPlaceGroups = append(groups, a.PlaceGroups...)
	case RenameUserPlaceGroup:
		d.UserPlaceGroups = renamePlaceGroup(d.UserPlaceGroups, a.PlaceGroupID, a.Title)
	case RenameUserPlace:
		d.UserPlaceGroups = renamePlace(d.UserPlaceGroups, a.PlaceGroupID, a.PlaceID, a.Label)
	case RemoveUserPlace:
		d = removePlace(d, a.PlaceGroupID, a.PlaceID)
	case RemoveUserPlaceGroup:
		d = removePlaceGroup(d, a.PlaceGroupID)
	case UpdateTimeSeries:
		d.TimeSeriesGroups = timeseries.Merge(d.TimeSeriesGroups, a.TimeSeries, a.UpdateMode, a.DataMode)
	case AddPlaceGroupTimeSeries:
		d.TimeSeriesGroups = timeseries.AppendToGroup(d.TimeSeriesGroups, a.TimeSeriesGroupID, a.TimeSeries)
	case RemoveTimeSeries:
		d.TimeSeriesGroups = timeseries.RemoveAt(d.TimeSeriesGroups, a.GroupID, a.Index)
	case RemoveTimeSeriesGroup:
		d.TimeSeriesGroups = timeseries.RemoveGroup(d.TimeSeriesGroups, a.ID)
	case RemoveAllTimeSeries:
		d.TimeSeriesGroups = nil
	case ConfigureServers:
		d.UserServers = a.Servers
	}
	return d
}

func addDrawnPlace(groups []*model.PlaceGroup, title string, p *model.Place) []*model.PlaceGroup {
	i := model.IndexOfPlaceGroup(groups, model.UserDrawnPlaceGroupID)
	if i >= 0 {
		pg := groups[i]
		features := make([]*model.Place, 0, len(pg.Features)+1)
		features = append(features, pg.Features...)
		features = append(features, p)
		return replacePlaceGroup(groups, i, &model.PlaceGroup{ID: pg.ID, Title: pg.Title, Features: features})
	}
	if title == "" {
		title = DefaultUserPlaceGroupTitle
	}
	out := make([]*model.PlaceGroup, 0, len(groups)+1)
	out = append(out, &model.PlaceGroup{ID: model.UserDrawnPlaceGroupID, Title: title, Features: []*model.Place{p}})
	return append(out, groups...)
}

func renamePlaceGroup(groups []*model.PlaceGroup, id, title string) []*model.PlaceGroup {
	i := model.IndexOfPlaceGroup(groups, id)
	if i < 0 {
		return groups
	}
	pg := groups[i]
	return replacePlaceGroup(groups, i, &model.PlaceGroup{ID: pg.ID, Title: title, Features: pg.Features})
}

func renamePlace(groups []*model.PlaceGroup, groupID, placeID, label string) []*model.PlaceGroup {
	i := model.IndexOfPlaceGroup(groups, groupID)
	if i < 0 {
		return groups
	}
	pg := groups[i]
	j := pg.IndexOf(placeID)
	if j < 0 {
		return groups
	}
	features := make([]*model.Place, len(pg.Features))
	copy(features, pg.Features)
	features[j] = pg.Features[j].WithLabel(label)
	return replacePlaceGroup(groups, i, &model.PlaceGroup{ID: pg.ID, Title: pg.Title, Features: features})
}

// removePlace：先在删除前的快照上收集受影响序列，再删除地点并清除序列，一次返回
func removePlace(d DataState, groupID, placeID string) DataState {
	i := model.IndexOfPlaceGroup(d.UserPlaceGroups, groupID)
	if i < 0 {
		return d
	}
	pg := d.UserPlaceGroups[i]
	j := pg.IndexOf(placeID)
	if j < 0 {
		return d
	}
	affected := timeseries.CollectByPlaceIDs(d.TimeSeriesGroups, []string{placeID})

	features := make([]*model.Place, 0, len(pg.Features)-1)
	features = append(features, pg.Features[:j]...)
	features = append(features, pg.Features[j+1:]...)
	d.UserPlaceGroups = replacePlaceGroup(d.UserPlaceGroups, i, &model.PlaceGroup{ID: pg.ID, Title: pg.Title, Features: features})
	d.TimeSeriesGroups = timeseries.RemoveAll(d.TimeSeriesGroups, affected)
	return d
}

func removePlaceGroup(d DataState, groupID string) DataState {
	i := model.IndexOfPlaceGroup(d.UserPlaceGroups, groupID)
	if i < 0 {
		return d
	}
	pg := d.UserPlaceGroups[i]
	affected := timeseries.CollectByPlaceIDs(d.TimeSeriesGroups, pg.PlaceIDs())

	groups := make([]*model.PlaceGroup, 0, len(d.UserPlaceGroups)-1)
	groups = append(groups, d.UserPlaceGroups[:i]...)
	d.UserPlaceGroups = append(groups, d.UserPlaceGroups[i+1:]...)
	d.TimeSeriesGroups = timeseries.RemoveAll(d.TimeSeriesGroups, affected)
	return d
}

func replacePlaceGroup(groups []*model.PlaceGroup, i int, pg *model.PlaceGroup) []*model.PlaceGroup {
	out := make([]*model.PlaceGroup, len(groups))
	copy(out, groups)
	out[i] = pg
	return out
}

func replaceDatasetPlaceGroup(datasets []*model.Dataset, pg *model.PlaceGroup) []*model.Dataset {
	var out []*model.Dataset
	for i, ds := range datasets {
		j := model.IndexOfPlaceGroup(ds.PlaceGroups, pg.ID)
		if j < 0 {
			continue
		}
		if out == nil {
			out = make([]*model.Dataset, len(datasets))
			copy(out, datasets)
		}
		cp := *ds
		cp.PlaceGroups = replacePlaceGroup(ds.PlaceGroups, j, pg)
		out[i] = &cp
	}
	if out == nil {
		return datasets
	}
	return out
}

func updateVariable(datasets []*model.Dataset, datasetID, name string, fn func(v *model.Variable)) []*model.Dataset {
	for i, ds := range datasets {
		if ds.ID != datasetID {
			continue
		}
		j := ds.VariableIndex(name)
		if j < 0 {
			return datasets
		}
		v := *ds.Variables[j]
		fn(&v)
		vars := make([]*model.Variable, len(ds.Variables))
		copy(vars, ds.Variables)
		vars[j] = &v
		cp := *ds
		cp.Variables = vars
		out := make([]*model.Dataset, len(datasets))
		copy(out, datasets)
		out[i] = &cp
		return out
	}
	return datasets
}
