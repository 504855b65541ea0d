// 包 model：查看器核心的数据模型（地点、地点组、数据集、时间序列）
package model

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// UserDrawnPlaceGroupID：用户手绘地点组的保留 ID
const UserDrawnPlaceGroupID = "user"

// Place：带几何与属性的地点，创建后不可变；重命名时整体替换
type Place struct {
	ID         string
	Geometry   orb.Geometry
	Properties geojson.Properties
}

// NewPlace：构造地点并复制属性，调用方后续修改原属性表不影响地点
func NewPlace(id string, geometry orb.Geometry, properties map[string]any) *Place {
	props := geojson.Properties{}
	for k, v := range properties {
		props[k] = v
	}
	return &Place{ID: id, Geometry: geometry, Properties: props}
}

// NewUserPlace：以新 ID 构造用户地点
func NewUserPlace(geometry orb.Geometry, properties map[string]any) *Place {
	return NewPlace(NewID("user-"), geometry, properties)
}

func (p *Place) Label() string  { return p.Properties.MustString("label", "") }
func (p *Place) Color() string  { return p.Properties.MustString("color", "") }
func (p *Place) Source() string { return p.Properties.MustString("source", "") }
func (p *Place) Time() string   { return p.Properties.MustString("time", "") }

// WithLabel：返回替换 label 属性后的副本
func (p *Place) WithLabel(label string) *Place {
	props := p.Properties.Clone()
	props["label"] = label
	return &Place{ID: p.ID, Geometry: p.Geometry, Properties: props}
}

// Feature：转换为 GeoJSON Feature
func (p *Place) Feature() *geojson.Feature {
	f := geojson.NewFeature(p.Geometry)
	f.ID = p.ID
	f.Properties = p.Properties.Clone()
	return f
}

func (p *Place) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Feature())
}

func (p *Place) UnmarshalJSON(b []byte) error {
	f, err := geojson.UnmarshalFeature(b)
	if err != nil {
		return err
	}
	*p = *PlaceFromFeature(f)
	return nil
}

// PlaceFromFeature：由 GeoJSON Feature 构造地点；缺少 ID 时生成新 ID
func PlaceFromFeature(f *geojson.Feature) *Place {
	id := ""
	switch v := f.ID.(type) {
	case string:
		id = v
	case float64:
		id = fmt.Sprintf("%v", v)
	case nil:
	default:
		id = fmt.Sprintf("%v", v)
	}
	if id == "" {
		id = NewID("place-")
	}
	props := f.Properties
	if props == nil {
		props = geojson.Properties{}
	}
	return &Place{ID: id, Geometry: f.Geometry, Properties: props}
}

// PlaceGroup：有序地点集合，ID 在用户组集合内唯一
type PlaceGroup struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Features []*Place `json:"features"`
}

// NewUserPlaceGroup：以新 ID 构造用户地点组
func NewUserPlaceGroup(title string, places []*Place) *PlaceGroup {
	return &PlaceGroup{ID: NewID("user-"), Title: title, Features: places}
}

// IndexOf：返回地点下标，不存在返回 -1
func (pg *PlaceGroup) IndexOf(placeID string) int {
	for i, p := range pg.Features {
		if p.ID == placeID {
			return i
		}
	}
	return -1
}

// PlaceIDs：按顺序返回组内全部地点 ID
func (pg *PlaceGroup) PlaceIDs() []string {
	ids := make([]string, 0, len(pg.Features))
	for _, p := range pg.Features {
		ids = append(ids, p.ID)
	}
	return ids
}

// FeatureCollection：转换为 GeoJSON FeatureCollection
func (pg *PlaceGroup) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range pg.Features {
		fc.Append(p.Feature())
	}
	return fc
}

// IndexOfPlaceGroup：按 ID 查找地点组下标
func IndexOfPlaceGroup(groups []*PlaceGroup, id string) int {
	for i, pg := range groups {
		if pg.ID == id {
			return i
		}
	}
	return -1
}

// FindPlace：在多个地点组中查找地点，返回所在组与地点
func FindPlace(groups []*PlaceGroup, placeID string) (*PlaceGroup, *Place) {
	for _, pg := range groups {
		if i := pg.IndexOf(placeID); i >= 0 {
			return pg, pg.Features[i]
		}
	}
	return nil, nil
}

// CountPlaces：统计地点总数
func CountPlaces(groups []*PlaceGroup) int {
	n := 0
	for _, pg := range groups {
		n += len(pg.Features)
	}
	return n
}

// PlaceInfo：地点显示信息（所属组、标签、颜色）
type PlaceInfo struct {
	PlaceGroup *PlaceGroup
	Place      *Place
	Label      string
	Color      string
}

func GetPlaceInfo(pg *PlaceGroup, p *Place) PlaceInfo {
	label := p.Label()
	if label == "" {
		label = p.ID
	}
	color := p.Color()
	if color == "" {
		color = "red"
	}
	return PlaceInfo{PlaceGroup: pg, Place: p, Label: label, Color: color}
}

// ForEachPlace：按组顺序遍历全部地点
func ForEachPlace(groups []*PlaceGroup, fn func(pg *PlaceGroup, p *Place)) {
	for _, pg := range groups {
		for _, p := range pg.Features {
			fn(pg, p)
		}
	}
}
