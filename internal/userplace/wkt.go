package userplace

import (
	"bufio"
	"strings"

	"github.com/paulmach/orb/encoding/wkt"

	"geoview/internal/model"
)

type WKTOptions struct {
	Group string `json:"group"`
	Label string `json:"label"`
	Time  string `json:"time"`
}

// FromWKT：每个非空行一个几何，全部放入同一组
func FromWKT(text string, opts WKTOptions) ([]*model.PlaceGroup, error) {
	gr := newGrouper("WKT", "group", DefaultGroupPrefix, "label", opts.Label, "time")
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 64*1024), 16<<20)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		g, err := wkt.Unmarshal(s)
		if err != nil {
			return nil, formatErr("line %d: invalid WKT: %v", line, err)
		}
		props := map[string]any{}
		if opts.Group != "" {
			props["group"] = opts.Group
		}
		if opts.Time != "" {
			props["time"] = opts.Time
		}
		gr.add(g, props)
	}
	if err := sc.Err(); err != nil {
		return nil, formatErr("%v", err)
	}
	return gr.result(), nil
}
