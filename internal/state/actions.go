package state

import (
	"geoview/internal/model"
	"geoview/internal/timeseries"
)

// Action：可分发给 Reduce 的事件；Type 用于日志
type Action interface {
	Type() string
}

// 数据类事件

type UpdateServerInfo struct{ ServerInfo *model.ServerInfo }

type UpdateDatasets struct{ Datasets []*model.Dataset }

// UpdateDatasetPlaceGroup：服务器下发的地点组，替换所有引用该组 ID 的数据集中的同名组
type UpdateDatasetPlaceGroup struct{ PlaceGroup *model.PlaceGroup }

type UpdateColorBars struct{ ColorBars *model.ColorBars }

type UpdateVariableColorBar struct {
	DatasetID    string
	VariableName string
	ColorBarName string
	ColorBarMin  float64
	ColorBarMax  float64
	Opacity      float64
}

type UpdateVariableVolume struct {
	DatasetID          string
	VariableName       string
	VolumeRenderMode   string
	VolumeIsoThreshold float64
}

// AddDrawnUserPlace：手绘地点追加到保留组；组不存在时以 Title 新建并置于最前
type AddDrawnUserPlace struct {
	Title string
	Place *model.Place
}

// AddImportedUserPlaceGroups：导入的地点组整体追加；SelectPlace 为真且仅一个地点时选中它
type AddImportedUserPlaceGroups struct {
	PlaceGroups []*model.PlaceGroup
	SelectPlace bool
}

type RenameUserPlaceGroup struct {
	PlaceGroupID string
	Title        string
}

type RenameUserPlace struct {
	PlaceGroupID string
	PlaceID      string
	Label        string
}

type RemoveUserPlace struct {
	PlaceGroupID string
	PlaceID      string
}

type RemoveUserPlaceGroup struct{ PlaceGroupID string }

// UpdateTimeSeries：一次合并事件
type UpdateTimeSeries struct {
	TimeSeries *model.TimeSeries
	UpdateMode timeseries.UpdateMode
	DataMode   timeseries.DataMode
}

type AddPlaceGroupTimeSeries struct {
	TimeSeriesGroupID string
	TimeSeries        *model.TimeSeries
}

type RemoveTimeSeries struct {
	GroupID string
	Index   int
}

type RemoveTimeSeriesGroup struct{ ID string }

type RemoveAllTimeSeries struct{}

type ConfigureServers struct {
	Servers          []model.ServerConfig
	SelectedServerID string
}

// 控制类事件

type SelectDataset struct{ DatasetID string }

type SelectVariable struct{ VariableName string }

type SelectPlaceGroups struct{ PlaceGroupIDs []string }

type SelectPlace struct{ PlaceID string }

type SelectTime struct{ Time string }

type UpdateSettings struct{ Settings Settings }

type AddActivity struct {
	ID      string
	Message string
}

type RemoveActivity struct{ ID string }

type OpenDialog struct{ ID string }

type CloseDialog struct{ ID string }

// 通知类事件

type PostMessage struct{ Message Message }

type HideMessage struct{ ID string }

// NewMessage：生成带新 ID 的通知事件
func NewMessage(typ MessageType, text string) PostMessage {
	return PostMessage{Message: Message{ID: model.NewID("msg-"), Type: typ, Text: text}}
}

func (UpdateServerInfo) Type() string           { return "UPDATE_SERVER_INFO" }
func (UpdateDatasets) Type() string             { return "UPDATE_DATASETS" }
func (UpdateDatasetPlaceGroup) Type() string    { return "UPDATE_DATASET_PLACE_GROUP" }
func (UpdateColorBars) Type() string            { return "UPDATE_COLOR_BARS" }
func (UpdateVariableColorBar) Type() string     { return "UPDATE_VARIABLE_COLOR_BAR" }
func (UpdateVariableVolume) Type() string       { return "UPDATE_VARIABLE_VOLUME" }
func (AddDrawnUserPlace) Type() string          { return "ADD_DRAWN_USER_PLACE" }
func (AddImportedUserPlaceGroups) Type() string { return "ADD_IMPORTED_USER_PLACES" }
func (RenameUserPlaceGroup) Type() string       { return "RENAME_USER_PLACE_GROUP" }
func (RenameUserPlace) Type() string            { return "RENAME_USER_PLACE" }
func (RemoveUserPlace) Type() string            { return "REMOVE_USER_PLACE" }
func (RemoveUserPlaceGroup) Type() string       { return "REMOVE_USER_PLACE_GROUP" }
func (UpdateTimeSeries) Type() string           { return "UPDATE_TIME_SERIES" }
func (AddPlaceGroupTimeSeries) Type() string    { return "ADD_PLACE_GROUP_TIME_SERIES" }
func (RemoveTimeSeries) Type() string           { return "REMOVE_TIME_SERIES" }
func (RemoveTimeSeriesGroup) Type() string      { return "REMOVE_TIME_SERIES_GROUP" }
func (RemoveAllTimeSeries) Type() string        { return "REMOVE_ALL_TIME_SERIES" }
func (ConfigureServers) Type() string           { return "CONFIGURE_SERVERS" }
func (SelectDataset) Type() string              { return "SELECT_DATASET" }
func (SelectVariable) Type() string             { return "SELECT_VARIABLE" }
func (SelectPlaceGroups) Type() string          { return "SELECT_PLACE_GROUPS" }
func (SelectPlace) Type() string                { return "SELECT_PLACE" }
func (SelectTime) Type() string                 { return "SELECT_TIME" }
func (UpdateSettings) Type() string             { return "UPDATE_SETTINGS" }
func (AddActivity) Type() string                { return "ADD_ACTIVITY" }
func (RemoveActivity) Type() string             { return "REMOVE_ACTIVITY" }
func (OpenDialog) Type() string                 { return "OPEN_DIALOG" }
func (CloseDialog) Type() string                { return "CLOSE_DIALOG" }
func (PostMessage) Type() string                { return "POST_MESSAGE" }
func (HideMessage) Type() string                { return "HIDE_MESSAGE" }
