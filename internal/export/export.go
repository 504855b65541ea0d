// 包 export：把时间序列表与地点写成文本、GeoJSON 文件或 zip 归档
package export

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/paulmach/orb/geojson"

	"geoview/internal/model"
	"geoview/internal/timeseries"
)

type Options struct {
	IncludeTimeSeries  bool
	IncludePlaces      bool
	Separator          string
	PlacesAsCollection bool
	Zip                bool
	FileName           string
}

// File：导出的单个文件
type File struct {
	Name string
	Data []byte
}

// Files：生成导出文件列表
// 约束：包含时间序列时只导出被序列引用的地点，否则导出 placeGroups 中的全部地点；两者都不包含时返回空
func Files(groups []*model.TimeSeriesGroup, placeGroups []*model.PlaceGroup, opts Options) ([]File, error) {
	if !opts.IncludeTimeSeries && !opts.IncludePlaces {
		return nil, nil
	}
	name := opts.FileName
	if name == "" {
		name = "export"
	}
	sep := opts.Separator
	if sep == "" || strings.EqualFold(sep, "TAB") {
		sep = "\t"
	}

	var files []File
	places := map[string]*model.Place{}
	if opts.IncludeTimeSeries {
		t := timeseries.ToTable(groups, placeGroups)
		var b strings.Builder
		b.WriteString(strings.Join(t.ColNames, sep))
		for _, row := range t.DataRows {
			b.WriteByte('\n')
			b.WriteString(strings.Join(row, sep))
		}
		files = append(files, File{Name: name + ".txt", Data: []byte(b.String())})
		places = t.ReferencedPlaces
	} else {
		model.ForEachPlace(placeGroups, func(_ *model.PlaceGroup, p *model.Place) {
			places[p.ID] = p
		})
	}

	if opts.IncludePlaces {
		ids := make([]string, 0, len(places))
		for id := range places {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		if opts.PlacesAsCollection {
			fc := geojson.NewFeatureCollection()
			for _, id := range ids {
				fc.Append(places[id].Feature())
			}
			b, err := json.MarshalIndent(fc, "", "  ")
			if err != nil {
				return nil, err
			}
			files = append(files, File{Name: name + ".geojson", Data: b})
		} else {
			for _, id := range ids {
				b, err := json.MarshalIndent(places[id].Feature(), "", "  ")
				if err != nil {
					return nil, err
				}
				files = append(files, File{Name: id + ".geojson", Data: b})
			}
		}
	}
	return files, nil
}

// WriteZip：把文件写入 zip 归档
func WriteZip(w io.Writer, files []File) error {
	zw := zip.NewWriter(w)
	for _, f := range files {
		fw, err := zw.Create(f.Name)
		if err != nil {
			return err
		}
		if _, err := fw.Write(f.Data); err != nil {
			return err
		}
	}
	return zw.Close()
}

// WriteDir：逐个写入目录
func WriteDir(dir string, files []File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, filepath.Base(f.Name)), f.Data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
