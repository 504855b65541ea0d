// 包 state：查看器会话的应用状态与纯函数 reducer
// 约束：Reduce 不修改传入状态，变更的切片与映射均重新分配；未变化的部分共享引用
package state

import (
	"geoview/internal/model"
	"geoview/internal/timeseries"
)

// DefaultUserPlaceGroupTitle：手绘地点组的默认标题
const DefaultUserPlaceGroupTitle = "My places"

// MessageType：通知级别
type MessageType string

const (
	MessageInfo    MessageType = "info"
	MessageWarning MessageType = "warning"
	MessageError   MessageType = "error"
)

// Message：面向用户的简短通知
type Message struct {
	ID   string      `json:"id"`
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

// DataState：服务器数据、用户地点与时间序列集合
type DataState struct {
	ServerInfo       *model.ServerInfo        `json:"serverInfo"`
	Datasets         []*model.Dataset         `json:"datasets"`
	ColorBars        *model.ColorBars         `json:"colorBars"`
	TimeSeriesGroups []*model.TimeSeriesGroup `json:"timeSeriesGroups"`
	UserPlaceGroups  []*model.PlaceGroup      `json:"userPlaceGroups"`
	UserServers      []model.ServerConfig     `json:"userServers"`
}

// Settings：可持久化的用户偏好
type Settings struct {
	Locale                    string                `json:"locale"`
	TimeChunkSize             int                   `json:"timeChunkSize"`
	AutoShowTimeSeries        bool                  `json:"autoShowTimeSeries"`
	TimeSeriesIncludeStdev    bool                  `json:"timeSeriesIncludeStdev"`
	TimeSeriesUseMedian       bool                  `json:"timeSeriesUseMedian"`
	TimeSeriesUpdateMode      timeseries.UpdateMode `json:"timeSeriesUpdateMode"`
	ExportTimeSeries          bool                  `json:"exportTimeSeries"`
	ExportTimeSeriesSeparator string                `json:"exportTimeSeriesSeparator"`
	ExportPlaces              bool                  `json:"exportPlaces"`
	ExportPlacesAsCollection  bool                  `json:"exportPlacesAsCollection"`
	ExportZipArchive          bool                  `json:"exportZipArchive"`
	ExportFileName            string                `json:"exportFileName"`
}

// DefaultSettings：首次启动时的偏好
func DefaultSettings() Settings {
	return Settings{
		Locale:                    "en",
		TimeChunkSize:             20,
		AutoShowTimeSeries:        true,
		TimeSeriesUpdateMode:      timeseries.Add,
		ExportTimeSeries:          true,
		ExportTimeSeriesSeparator: "TAB",
		ExportPlaces:              true,
		ExportPlacesAsCollection:  true,
		ExportZipArchive:          true,
		ExportFileName:            "export",
	}
}

// ControlState：当前选择、偏好、活动与对话框
type ControlState struct {
	Settings
	SelectedServerID      string            `json:"selectedServerId"`
	SelectedDatasetID     string            `json:"selectedDatasetId"`
	SelectedVariableName  string            `json:"selectedVariableName"`
	SelectedPlaceGroupIDs []string          `json:"selectedPlaceGroupIds"`
	SelectedPlaceID       string            `json:"selectedPlaceId"`
	SelectedTime          string            `json:"selectedTime"`
	Activities            map[string]string `json:"activities"`
	OpenDialogs           []string          `json:"openDialogs"`
}

// AppState：会话的完整快照
type AppState struct {
	Data     DataState    `json:"data"`
	Control  ControlState `json:"control"`
	Messages []Message    `json:"messages"`
}

// New：以服务器列表与偏好构造初始状态
func New(servers []model.ServerConfig, selectedServerID string, settings Settings) AppState {
	if selectedServerID == "" && len(servers) > 0 {
		selectedServerID = servers[0].ID
	}
	return AppState{
		Data: DataState{UserServers: servers},
		Control: ControlState{
			Settings:         settings,
			SelectedServerID: selectedServerID,
			Activities:       map[string]string{},
		},
	}
}
