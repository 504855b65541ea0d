package state

import (
	"slices"

	"geoview/internal/model"
)

// Reduce：对快照应用一个事件并返回新快照
// 约束：控制类分支读取事件前的数据状态，删除地点时据此判断选中项是否失效
func Reduce(s AppState, a Action) AppState {
	return AppState{
		Data:     reduceData(s.Data, a),
		Control:  reduceControl(s.Control, s.Data, a),
		Messages: reduceMessages(s.Messages, a),
	}
}

func reduceControl(c ControlState, d DataState, a Action) ControlState {
	switch a := a.(type) {
	case UpdateDatasets:
		c = selectDatasetIn(c, a.Datasets, c.SelectedDatasetID)
	case SelectDataset:
		c = selectDatasetIn(c, d.Datasets, a.DatasetID)
	case SelectVariable:
		c.SelectedVariableName = a.VariableName
	case SelectPlaceGroups:
		c.SelectedPlaceGroupIDs = a.PlaceGroupIDs
	case SelectPlace:
		c.SelectedPlaceID = a.PlaceID
	case SelectTime:
		c.SelectedTime = a.Time
	case UpdateSettings:
		c.Settings = a.Settings
	case ConfigureServers:
		c.SelectedServerID = a.SelectedServerID
	case AddDrawnUserPlace:
		c.SelectedPlaceGroupIDs = withID(c.SelectedPlaceGroupIDs, model.UserDrawnPlaceGroupID)
		c.SelectedPlaceID = a.Place.ID
	case AddImportedUserPlaceGroups:
		ids := c.SelectedPlaceGroupIDs
		for _, pg := range a.PlaceGroups {
			ids = withID(ids, pg.ID)
		}
		c.SelectedPlaceGroupIDs = ids
		if a.SelectPlace && model.CountPlaces(a.PlaceGroups) == 1 {
			model.ForEachPlace(a.PlaceGroups, func(_ *model.PlaceGroup, p *model.Place) {
				c.SelectedPlaceID = p.ID
			})
		}
	case RemoveUserPlace:
		if i := model.IndexOfPlaceGroup(d.UserPlaceGroups, a.PlaceGroupID); i >= 0 && c.SelectedPlaceID == a.PlaceID {
			if d.UserPlaceGroups[i].IndexOf(a.PlaceID) >= 0 {
				c.SelectedPlaceID = ""
			}
		}
	case RemoveUserPlaceGroup:
		c.SelectedPlaceGroupIDs = withoutID(c.SelectedPlaceGroupIDs, a.PlaceGroupID)
		if i := model.IndexOfPlaceGroup(d.UserPlaceGroups, a.PlaceGroupID); i >= 0 && c.SelectedPlaceID != "" {
			if d.UserPlaceGroups[i].IndexOf(c.SelectedPlaceID) >= 0 {
				c.SelectedPlaceID = ""
			}
		}
	case AddActivity:
		acts := make(map[string]string, len(c.Activities)+1)
		for k, v := range c.Activities {
			acts[k] = v
		}
		acts[a.ID] = a.Message
		c.Activities = acts
	case RemoveActivity:
		if _, ok := c.Activities[a.ID]; ok {
			acts := make(map[string]string, len(c.Activities))
			for k, v := range c.Activities {
				if k != a.ID {
					acts[k] = v
				}
			}
			c.Activities = acts
		}
	case OpenDialog:
		c.OpenDialogs = withID(c.OpenDialogs, a.ID)
	case CloseDialog:
		c.OpenDialogs = withoutID(c.OpenDialogs, a.ID)
	}
	return c
}

// selectDatasetIn：选中数据集；ID 不存在时退回第一个。变量不在新数据集中时取第一个变量，时间不在时间维度中时取最后一个时间点
func selectDatasetIn(c ControlState, datasets []*model.Dataset, id string) ControlState {
	ds := model.FindDataset(datasets, id)
	if ds == nil && len(datasets) > 0 {
		ds = datasets[0]
	}
	if ds == nil {
		c.SelectedDatasetID = ""
		c.SelectedVariableName = ""
		return c
	}
	c.SelectedDatasetID = ds.ID
	if ds.Variable(c.SelectedVariableName) == nil {
		c.SelectedVariableName = ""
		if len(ds.Variables) > 0 {
			c.SelectedVariableName = ds.Variables[0].Name
		}
	}
	if td := ds.TimeDimension(); td != nil && len(td.Labels) > 0 {
		if !slices.Contains(td.Labels, c.SelectedTime) {
			c.SelectedTime = td.Labels[len(td.Labels)-1]
		}
	}
	return c
}

func reduceMessages(msgs []Message, a Action) []Message {
	switch a := a.(type) {
	case PostMessage:
		out := make([]Message, 0, len(msgs)+1)
		out = append(out, msgs...)
		return append(out, a.Message)
	case HideMessage:
		i := slices.IndexFunc(msgs, func(m Message) bool { return m.ID == a.ID })
		if i < 0 {
			return msgs
		}
		out := make([]Message, 0, len(msgs)-1)
		out = append(out, msgs[:i]...)
		return append(out, msgs[i+1:]...)
	}
	return msgs
}

func withID(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids...)
	return append(out, id)
}

func withoutID(ids []string, id string) []string {
	i := slices.Index(ids, id)
	if i < 0 {
		return ids
	}
	out := make([]string, 0, len(ids)-1)
	out = append(out, ids[:i]...)
	return append(out, ids[i+1:]...)
}
