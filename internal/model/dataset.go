package model

// Variable：数据集变量，含色标与分块配置
type Variable struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Dims               []string       `json:"dims,omitempty"`
	Shape              []int          `json:"shape,omitempty"`
	DType              string         `json:"dtype,omitempty"`
	Units              string         `json:"units"`
	Title              string         `json:"title"`
	TimeChunkSize      int            `json:"timeChunkSize,omitempty"`
	TileURL            string         `json:"tileUrl,omitempty"`
	ColorBarName       string         `json:"colorBarName"`
	ColorBarMin        float64        `json:"colorBarMin"`
	ColorBarMax        float64        `json:"colorBarMax"`
	Opacity            *float64       `json:"opacity,omitempty"`
	VolumeRenderMode   string         `json:"volumeRenderMode,omitempty"`
	VolumeIsoThreshold *float64       `json:"volumeIsoThreshold,omitempty"`
	Attrs              map[string]any `json:"attrs,omitempty"`
}

// Dimension：数据集维度；时间维度名为 time，labels 与 coordinates 一一对应
type Dimension struct {
	Name        string   `json:"name"`
	Size        int      `json:"size"`
	DType       string   `json:"dtype,omitempty"`
	Coordinates []string `json:"coordinates"`
	Labels      []string `json:"labels"`
}

// Dataset：远端服务器提供的数据集元数据
type Dataset struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	BBox         []float64     `json:"bbox,omitempty"`
	Variables    []*Variable   `json:"variables"`
	Dimensions   []*Dimension  `json:"dimensions"`
	PlaceGroups  []*PlaceGroup `json:"placeGroups,omitempty"`
	Attributions []string      `json:"attributions,omitempty"`
}

// TimeDimension：返回名为 time 的维度；不存在返回 nil
func (ds *Dataset) TimeDimension() *Dimension {
	for _, d := range ds.Dimensions {
		if d.Name == "time" {
			return d
		}
	}
	return nil
}

// Variable：按名称查找变量
func (ds *Dataset) Variable(name string) *Variable {
	for _, v := range ds.Variables {
		if v.Name == name {
			return v
		}
	}
	return nil
}

func (ds *Dataset) VariableIndex(name string) int {
	for i, v := range ds.Variables {
		if v.Name == name {
			return i
		}
	}
	return -1
}

// FindDataset：按 ID 查找数据集
func FindDataset(datasets []*Dataset, id string) *Dataset {
	for _, ds := range datasets {
		if ds.ID == id {
			return ds
		}
	}
	return nil
}

// ServerConfig：远端数据服务器配置
type ServerConfig struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ServerInfo：服务器自述信息
type ServerInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// ColorBarGroup：色标分组
type ColorBarGroup struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Names       []string `json:"names"`
}

// ColorBars：服务器提供的全部色标及其 base64 PNG 图像
type ColorBars struct {
	Groups []ColorBarGroup   `json:"groups"`
	Images map[string]string `json:"images"`
}
