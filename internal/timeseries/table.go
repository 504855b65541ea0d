package timeseries

import (
	"strconv"

	"geoview/internal/model"
)

// Table：时间序列导出表；单元格为空字符串表示缺值
type Table struct {
	ColNames         []string
	DataRows         [][]string
	ReferencedPlaces map[string]*model.Place
}

var tableColNames = []string{
	"placeId", "placeGroup", "placeLabel", "datasetId", "variableName", "variableUnits",
	"time", "average", "median", "uncertainty", "validCount", "totalCount",
}

// ToTable：把全部时间序列展开为行；能在地点组中找到的地点记入 ReferencedPlaces
func ToTable(groups []*model.TimeSeriesGroup, placeGroups []*model.PlaceGroup) *Table {
	t := &Table{ColNames: tableColNames, ReferencedPlaces: map[string]*model.Place{}}
	for _, g := range groups {
		for _, ts := range g.TimeSeriesArray {
			src := ts.Source
			groupTitle, label := "", src.PlaceID
			if pg, p := model.FindPlace(placeGroups, src.PlaceID); p != nil {
				t.ReferencedPlaces[p.ID] = p
				groupTitle = pg.Title
				label = model.GetPlaceInfo(pg, p).Label
			}
			for _, pt := range ts.Data {
				t.DataRows = append(t.DataRows, []string{
					src.PlaceID, groupTitle, label, src.DatasetID, src.VariableName, src.VariableUnits,
					pt.Time, fmtFloat(pt.Average), fmtFloat(pt.Median), fmtFloat(pt.Uncertainty),
					strconv.Itoa(pt.ValidCount), strconv.Itoa(pt.TotalCount),
				})
			}
		}
	}
	return t
}

func fmtFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
