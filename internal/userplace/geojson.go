package userplace

import (
	"encoding/json"
	"strings"

	"github.com/paulmach/orb/geojson"

	"geoview/internal/model"
)

type GeoJSONOptions struct {
	GroupNames  string `json:"groupNames"`
	GroupPrefix string `json:"groupPrefix"`
	LabelNames  string `json:"labelNames"`
	LabelPrefix string `json:"labelPrefix"`
	TimeNames   string `json:"timeNames"`
}

func DefaultGeoJSONOptions() GeoJSONOptions {
	return GeoJSONOptions{
		GroupNames:  DefaultGroupNames,
		GroupPrefix: DefaultGroupPrefix,
		LabelNames:  DefaultLabelNames,
		LabelPrefix: DefaultLabelPrefix,
		TimeNames:   DefaultTimeNames,
	}
}

// FromGeoJSON：接受 FeatureCollection、单个 Feature 或裸几何；无几何的要素被跳过
// 没有分组属性的要素统一归入 GroupPrefix+"1" 一组，不按要素各自成组
func FromGeoJSON(text string, opts GeoJSONOptions) ([]*model.PlaceGroup, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(text), &head); err != nil {
		return nil, formatErr("invalid GeoJSON: %v", err)
	}
	var features []*geojson.Feature
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection([]byte(text))
		if err != nil {
			return nil, formatErr("invalid GeoJSON: %v", err)
		}
		features = fc.Features
	case "Feature":
		f, err := geojson.UnmarshalFeature([]byte(text))
		if err != nil {
			return nil, formatErr("invalid GeoJSON: %v", err)
		}
		features = []*geojson.Feature{f}
	default:
		g, err := geojson.UnmarshalGeometry([]byte(text))
		if err != nil || g.Geometry() == nil {
			return nil, formatErr("invalid GeoJSON geometry type %q", head.Type)
		}
		features = []*geojson.Feature{geojson.NewFeature(g.Geometry())}
	}

	gr := newGrouper("GeoJSON", opts.GroupNames, opts.GroupPrefix, opts.LabelNames, opts.LabelPrefix, opts.TimeNames)
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		gr.add(f.Geometry, f.Properties)
	}
	return gr.result(), nil
}
