package userplace

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"geoview/internal/model"
)

type CSVOptions struct {
	Separator     string `json:"separator"`
	Comment       string `json:"comment"`
	XNames        string `json:"xNames"`
	YNames        string `json:"yNames"`
	GeometryNames string `json:"geometryNames"`
	ForceGeometry bool   `json:"forceGeometry"`
	GroupNames    string `json:"groupNames"`
	GroupPrefix   string `json:"groupPrefix"`
	LabelNames    string `json:"labelNames"`
	LabelPrefix   string `json:"labelPrefix"`
	TimeNames     string `json:"timeNames"`
}

func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Separator:     ",",
		Comment:       "#",
		XNames:        "longitude, lon, x",
		YNames:        "latitude, lat, y",
		GeometryNames: "geometry, geom",
		GroupNames:    DefaultGroupNames,
		GroupPrefix:   DefaultGroupPrefix,
		LabelNames:    DefaultLabelNames,
		LabelPrefix:   DefaultLabelPrefix,
		TimeNames:     DefaultTimeNames,
	}
}

// FromCSV：首行为表头；优先使用 WKT 几何列，否则用经纬度列构造点
// 没有分组列值的行统一归入 GroupPrefix+"1" 一组，不按行各自成组
// 约束：ForceGeometry 为真时必须存在几何列
func FromCSV(text string, opts CSVOptions) ([]*model.PlaceGroup, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = runeOf(opts.Separator, ',')
	if opts.Comment != "" {
		r.Comment = runeOf(opts.Comment, '#')
	}
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, formatErr("invalid CSV header: %v", err)
	}
	xCol := findColumn(header, opts.XNames)
	yCol := findColumn(header, opts.YNames)
	geomCol := findColumn(header, opts.GeometryNames)
	if geomCol < 0 && (opts.ForceGeometry || xCol < 0 || yCol < 0) {
		return nil, formatErr("missing geometry or coordinate columns")
	}

	gr := newGrouper("CSV", opts.GroupNames, opts.GroupPrefix, opts.LabelNames, opts.LabelPrefix, opts.TimeNames)
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, formatErr("line %d: %v", line, err)
		}
		if len(rec) != len(header) {
			return nil, formatErr("line %d: expected %d fields, got %d", line, len(header), len(rec))
		}
		var g orb.Geometry
		if geomCol >= 0 && strings.TrimSpace(rec[geomCol]) != "" {
			g, err = wkt.Unmarshal(rec[geomCol])
			if err != nil {
				return nil, formatErr("line %d: invalid geometry: %v", line, err)
			}
		} else if xCol >= 0 && yCol >= 0 {
			x, errX := strconv.ParseFloat(strings.TrimSpace(rec[xCol]), 64)
			y, errY := strconv.ParseFloat(strings.TrimSpace(rec[yCol]), 64)
			if errX != nil || errY != nil {
				return nil, formatErr("line %d: invalid coordinates", line)
			}
			g = orb.Point{x, y}
		} else {
			return nil, formatErr("line %d: missing geometry", line)
		}
		props := make(map[string]any, len(header))
		for i, name := range header {
			if i == geomCol || i == xCol || i == yCol {
				continue
			}
			props[name] = rec[i]
		}
		gr.add(g, props)
	}
	return gr.result(), nil
}

func findColumn(header []string, names string) int {
	for _, n := range ParseNames(names) {
		for i, h := range header {
			if strings.ToLower(strings.TrimSpace(h)) == n {
				return i
			}
		}
	}
	return -1
}

// runeOf：取首字符；TAB 与 \t 均表示制表符
func runeOf(s string, def rune) rune {
	switch s {
	case "":
		return def
	case "TAB", `\t`:
		return '\t'
	}
	return []rune(s)[0]
}
