package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"geoview/internal/export"
	"geoview/internal/geolocate"
	"geoview/internal/i18n"
	"geoview/internal/logger"
	"geoview/internal/model"
	"geoview/internal/selectors"
	"geoview/internal/state"
	"geoview/internal/userplace"
)

// 导入格式
const (
	FormatCSV     = "csv"
	FormatGeoJSON = "geojson"
	FormatWKT     = "wkt"
)

// ImportDialogID：导入失败时打开的对话框
const ImportDialogID = "addUserPlacesFromText"

// Import：一次文本导入；选项为 nil 时使用各格式默认值
type Import struct {
	Format  string                    `json:"format"`
	Text    string                    `json:"text"`
	CSV     *userplace.CSVOptions     `json:"csv,omitempty"`
	GeoJSON *userplace.GeoJSONOptions `json:"geojson,omitempty"`
	WKT     *userplace.WKTOptions     `json:"wkt,omitempty"`
}

// AddUserPlace：追加手绘地点并选中；开启自动显示时立即拉取时间序列
func (s *Session) AddUserPlace(ctx context.Context, geometry orb.Geometry, properties map[string]any) (*model.Place, error) {
	p := model.NewUserPlace(geometry, properties)
	return p, s.addDrawnPlace(ctx, p)
}

// LocatePlace：按 IP 定位生成地点并按手绘地点处理
func (s *Session) LocatePlace(ctx context.Context, ip string) (*model.Place, error) {
	if s.locator == nil {
		return nil, geolocate.ErrDisabled
	}
	p, err := s.locator.Locate(ip)
	if err != nil {
		return nil, err
	}
	return p, s.addDrawnPlace(ctx, p)
}

func (s *Session) addDrawnPlace(ctx context.Context, p *model.Place) error {
	s.Dispatch(state.AddDrawnUserPlace{Title: i18n.T(s.locale(), i18n.MyPlaces), Place: p})
	logger.L().Info("user_place_added", "place", p.ID)
	if s.State().Control.AutoShowTimeSeries {
		return s.AddTimeSeries(ctx)
	}
	return nil
}

// AddUserPlacesFromText：解析文本并整体导入
// 返回：导入的地点数；格式错误时提示并打开导入对话框，不导入任何地点
func (s *Session) AddUserPlacesFromText(ctx context.Context, in Import) (int, error) {
	groups, err := parseImport(in)
	if err != nil {
		logger.L().Info("user_places_import_fail", "format", in.Format, "err", err)
		s.post(state.MessageError, i18n.T(s.locale(), i18n.InvalidFormat, in.Format, err))
		s.Dispatch(state.OpenDialog{ID: ImportDialogID})
		return 0, err
	}
	n := model.CountPlaces(groups)
	if n == 0 {
		s.post(state.MessageWarning, i18n.T(s.locale(), i18n.NoPlacesImported))
		return 0, nil
	}
	s.Dispatch(state.AddImportedUserPlaceGroups{PlaceGroups: groups, SelectPlace: true})
	s.saveUserPlaces(ctx)
	logger.L().Info("user_places_imported", "format", in.Format, "groups", len(groups), "places", n)
	if n == 1 && s.State().Control.AutoShowTimeSeries {
		if err := s.AddTimeSeries(ctx); err != nil {
			return n, err
		}
	}
	s.post(state.MessageInfo, i18n.T(s.locale(), i18n.ImportedPlaces, n))
	return n, nil
}

func parseImport(in Import) ([]*model.PlaceGroup, error) {
	switch strings.ToLower(in.Format) {
	case FormatCSV:
		opts := userplace.DefaultCSVOptions()
		if in.CSV != nil {
			opts = *in.CSV
		}
		return userplace.FromCSV(in.Text, opts)
	case FormatGeoJSON:
		opts := userplace.DefaultGeoJSONOptions()
		if in.GeoJSON != nil {
			opts = *in.GeoJSON
		}
		return userplace.FromGeoJSON(in.Text, opts)
	case FormatWKT:
		var opts userplace.WKTOptions
		if in.WKT != nil {
			opts = *in.WKT
		}
		return userplace.FromWKT(in.Text, opts)
	}
	return nil, fmt.Errorf("%w: unknown format %q", userplace.ErrFormat, in.Format)
}

func (s *Session) RenameUserPlaceGroup(ctx context.Context, groupID, title string) {
	s.Dispatch(state.RenameUserPlaceGroup{PlaceGroupID: groupID, Title: title})
	s.saveUserPlaces(ctx)
}

func (s *Session) RenameUserPlace(ctx context.Context, groupID, placeID, label string) {
	s.Dispatch(state.RenameUserPlace{PlaceGroupID: groupID, PlaceID: placeID, Label: label})
	s.saveUserPlaces(ctx)
}

// RemoveUserPlace：删除地点及其全部时间序列；进行中的拉取链在下一次校验时停止
func (s *Session) RemoveUserPlace(ctx context.Context, groupID, placeID string) {
	s.Dispatch(state.RemoveUserPlace{PlaceGroupID: groupID, PlaceID: placeID})
	logger.L().Info("place_removed", "group", groupID, "place", placeID)
	s.saveUserPlaces(ctx)
}

func (s *Session) RemoveUserPlaceGroup(ctx context.Context, groupID string) {
	s.Dispatch(state.RemoveUserPlaceGroup{PlaceGroupID: groupID})
	logger.L().Info("place_group_removed", "group", groupID)
	s.saveUserPlaces(ctx)
}

// UpdateSettings：替换偏好并持久化
func (s *Session) UpdateSettings(ctx context.Context, settings state.Settings) {
	s.Dispatch(state.UpdateSettings{Settings: settings})
	s.saveSettings(ctx)
}

// ExportFiles：按偏好生成导出文件
// 导出时间序列时地点取自全部地点组，仅导出地点时取自选中的地点组
func (s *Session) ExportFiles() ([]export.File, export.Options, error) {
	st := s.State()
	c := st.Control
	opts := export.Options{
		IncludeTimeSeries:  c.ExportTimeSeries,
		IncludePlaces:      c.ExportPlaces,
		Separator:          c.ExportTimeSeriesSeparator,
		PlacesAsCollection: c.ExportPlacesAsCollection,
		Zip:                c.ExportZipArchive,
		FileName:           c.ExportFileName,
	}
	groups := selectors.SelectedPlaceGroups(st)
	if opts.IncludeTimeSeries {
		groups = selectors.PlaceGroups(st)
	}
	files, err := export.Files(st.Data.TimeSeriesGroups, groups, opts)
	return files, opts, err
}

// saveUserPlaces：保留的手绘组不持久化
func (s *Session) saveUserPlaces(ctx context.Context) {
	if s.store == nil {
		return
	}
	var groups []*model.PlaceGroup
	for _, pg := range s.State().Data.UserPlaceGroups {
		if pg.ID != model.UserDrawnPlaceGroupID {
			groups = append(groups, pg)
		}
	}
	if err := s.store.SaveUserPlaceGroups(ctx, groups); err != nil {
		logger.L().Warn("user_places_save_fail", "err", err)
	}
}

func (s *Session) saveSettings(ctx context.Context) {
	if s.store == nil {
		return
	}
	c := s.State().Control
	if err := s.store.SaveSettings(ctx, c.SelectedServerID, c.Settings); err != nil {
		logger.L().Warn("settings_save_fail", "err", err)
	}
}
