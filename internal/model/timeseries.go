package model

// TimeSeriesSource：时间序列的复合身份（测什么、在哪里）
type TimeSeriesSource struct {
	DatasetID     string `json:"datasetId"`
	VariableName  string `json:"variableName"`
	VariableUnits string `json:"variableUnits"`
	PlaceID       string `json:"placeId"`
}

// SameKey：判断 (dataset, variable, place) 三元组是否相同，单位不参与比较
func (s TimeSeriesSource) SameKey(o TimeSeriesSource) bool {
	return s.DatasetID == o.DatasetID && s.VariableName == o.VariableName && s.PlaceID == o.PlaceID
}

// TimeSeriesPoint：单个时间点的聚合值
type TimeSeriesPoint struct {
	Time        string   `json:"time"`
	Average     *float64 `json:"average"`
	Median      *float64 `json:"median,omitempty"`
	Uncertainty *float64 `json:"uncertainty,omitempty"`
	ValidCount  int      `json:"validCount"`
	TotalCount  int      `json:"totalCount"`
}

// Value：优先中位数，其次均值
func (p TimeSeriesPoint) Value() (float64, bool) {
	if p.Median != nil {
		return *p.Median, true
	}
	if p.Average != nil {
		return *p.Average, true
	}
	return 0, false
}

// TimeSeries：按时间升序的采样序列；DataProgress 为已覆盖的时间跨度比例
type TimeSeries struct {
	Source       TimeSeriesSource  `json:"source"`
	Data         []TimeSeriesPoint `json:"data"`
	DataProgress float64           `json:"dataProgress"`
}

// TimeSeriesGroup：按物理单位归组的时间序列
type TimeSeriesGroup struct {
	ID              string        `json:"id"`
	VariableUnits   string        `json:"variableUnits"`
	TimeSeriesArray []*TimeSeries `json:"timeSeriesArray"`
}
