// 包 userplace：把 GeoJSON、CSV、WKT 文本解析为用户地点组
// 约束：解析失败时返回 ErrFormat 包装的错误且不产生任何地点；空文本返回空结果
package userplace

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"geoview/internal/model"
)

// ErrFormat：文本不是合法的导入格式
var ErrFormat = errors.New("invalid place format")

// Palette：按地点组顺序循环分配的颜色名
var Palette = []string{
	"red", "yellow", "blue", "pink", "lightBlue", "green", "orange",
	"lime", "purple", "indigo", "cyan", "brown", "teal",
}

const (
	DefaultGroupNames  = "group, cruise, station, type"
	DefaultGroupPrefix = "Group-"
	DefaultLabelNames  = "label, name, title, id"
	DefaultLabelPrefix = "Place-"
	DefaultTimeNames   = "time, date, datetime, date-time"
)

// ParseNames：解析逗号分隔的候选属性名，统一小写
func ParseNames(s string) []string {
	var out []string
	for _, n := range strings.Split(s, ",") {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

func formatErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}

// grouper：按组名收集地点；缺少组名的地点归入同一默认组，缺少标签时按前缀顺序编号
type grouper struct {
	source      string
	groupNames  []string
	labelNames  []string
	timeNames   []string
	groupPrefix string
	labelPrefix string

	order     []string
	groups    map[string]*model.PlaceGroup
	colors    map[string]string
	numLabels int
}

func newGrouper(source, groupNames, groupPrefix, labelNames, labelPrefix, timeNames string) *grouper {
	groupPrefix = strings.TrimSpace(groupPrefix)
	if groupPrefix == "" {
		groupPrefix = DefaultGroupPrefix
	}
	labelPrefix = strings.TrimSpace(labelPrefix)
	if labelPrefix == "" {
		labelPrefix = DefaultLabelPrefix
	}
	return &grouper{
		source:      source,
		groupNames:  ParseNames(groupNames),
		labelNames:  ParseNames(labelNames),
		timeNames:   ParseNames(timeNames),
		groupPrefix: groupPrefix,
		labelPrefix: labelPrefix,
		groups:      map[string]*model.PlaceGroup{},
		colors:      map[string]string{},
	}
}

// add：按属性确定组名、标签与时间并写入地点；原属性中已有的 color/label/source 保留
func (g *grouper) add(geometry orb.Geometry, props map[string]any) {
	lc := make(map[string]any, len(props))
	for k, v := range props {
		lc[strings.ToLower(k)] = v
	}
	group := lookup(lc, g.groupNames)
	label := lookup(lc, g.labelNames)
	t := lookup(lc, g.timeNames)

	if group == "" {
		group = g.groupPrefix + "1"
	}
	if label == "" {
		g.numLabels++
		label = g.labelPrefix + strconv.Itoa(g.numLabels)
	}
	pg, ok := g.groups[group]
	if !ok {
		pg = model.NewUserPlaceGroup(group, nil)
		g.groups[group] = pg
		g.colors[group] = Palette[len(g.order)%len(Palette)]
		g.order = append(g.order, group)
	}

	out := make(map[string]any, len(props)+4)
	for k, v := range props {
		out[k] = v
	}
	if t != "" {
		out["time"] = t
	}
	setDefault(out, "color", g.colors[group])
	setDefault(out, "label", label)
	setDefault(out, "source", g.source)
	pg.Features = append(pg.Features, model.NewUserPlace(geometry, out))
}

func (g *grouper) result() []*model.PlaceGroup {
	out := make([]*model.PlaceGroup, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.groups[name])
	}
	return out
}

func lookup(props map[string]any, names []string) string {
	for _, n := range names {
		switch v := props[n].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func setDefault(m map[string]any, key, val string) {
	if s, ok := m[key].(string); ok && s != "" {
		return
	}
	m[key] = val
}
