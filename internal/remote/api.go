package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"geoview/internal/model"
)

// ServerInfo：GET /
func (c *Client) ServerInfo(ctx context.Context) (*model.ServerInfo, error) {
	var info model.ServerInfo
	if err := c.getJSON(ctx, "server_info", "/", "", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Datasets：GET /datasets?details=1
func (c *Client) Datasets(ctx context.Context, token string) ([]*model.Dataset, error) {
	var r struct {
		Datasets []*model.Dataset `json:"datasets"`
	}
	if err := c.getJSON(ctx, "datasets", "/datasets?details=1", token, &r); err != nil {
		return nil, err
	}
	return r.Datasets, nil
}

// DatasetPlaceGroup：GET /datasets/{ds}/places/{pg}，响应为带 id/title 的 FeatureCollection
func (c *Client) DatasetPlaceGroup(ctx context.Context, datasetID, placeGroupID, token string) (*model.PlaceGroup, error) {
	var raw json.RawMessage
	path := "/datasets/" + escape(datasetID) + "/places/" + escape(placeGroupID)
	if err := c.getJSON(ctx, "dataset_places", path, token, &raw); err != nil {
		return nil, err
	}
	var head struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode place group: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("decode place group features: %w", err)
	}
	pg := &model.PlaceGroup{ID: head.ID, Title: head.Title}
	if pg.ID == "" {
		pg.ID = placeGroupID
	}
	for _, f := range fc.Features {
		pg.Features = append(pg.Features, model.PlaceFromFeature(f))
	}
	return pg, nil
}

// ColorBars：GET /colorbars
func (c *Client) ColorBars(ctx context.Context) (*model.ColorBars, error) {
	var cb model.ColorBars
	if err := c.getJSON(ctx, "colorbars", "/colorbars", "", &cb); err != nil {
		return nil, err
	}
	return &cb, nil
}

// TimeSeriesRequest：单块时间序列请求；StartDate 为空表示不设下界
type TimeSeriesRequest struct {
	DatasetID    string
	VariableName string
	PlaceID      string
	Geometry     orb.Geometry
	StartDate    string
	EndDate      string
	UseMedian    bool
	IncludeStdev bool
	AccessToken  string
}

// TimeSeriesForGeometry：POST /timeseries/{ds}/{var}，请求体为 GeoJSON 几何
// 返回：按时间升序的样本；服务器无数据时返回 nil
func (c *Client) TimeSeriesForGeometry(ctx context.Context, req TimeSeriesRequest) ([]model.TimeSeriesPoint, error) {
	if req.Geometry == nil {
		return nil, fmt.Errorf("place %s has no geometry", req.PlaceID)
	}
	body, err := json.Marshal(geojson.NewGeometry(req.Geometry))
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	if req.StartDate != "" {
		q.Set("startDate", req.StartDate)
	}
	if req.EndDate != "" {
		q.Set("endDate", req.EndDate)
	}
	q.Set("inclStDev", boolParam(req.IncludeStdev))
	q.Set("useMedian", boolParam(req.UseMedian))
	path := "/timeseries/" + escape(req.DatasetID) + "/" + escape(req.VariableName) + "?" + q.Encode()

	b, err := c.do(ctx, "timeseries", http.MethodPost, path, req.AccessToken, body)
	if err != nil {
		return nil, err
	}
	var r struct {
		Result []model.TimeSeriesPoint `json:"result"`
	}
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode time series: %w", err)
	}
	if len(r.Result) == 0 {
		return nil, nil
	}
	return r.Result, nil
}

// LastResourcesUpdate：GET /maintenance/update，返回服务器最近一次资源更新时间
func (c *Client) LastResourcesUpdate(ctx context.Context, token string) (string, error) {
	b, err := c.do(ctx, "maintenance", http.MethodGet, "/maintenance/update", token, nil)
	if err != nil {
		return "", err
	}
	var r struct {
		UpdateTime string `json:"updateTime"`
	}
	if err := json.Unmarshal(b, &r); err != nil {
		return "", fmt.Errorf("decode update time: %w", err)
	}
	return r.UpdateTime, nil
}

// UpdateResources：POST /maintenance/update，请求服务器重新加载资源
func (c *Client) UpdateResources(ctx context.Context, token string) error {
	_, err := c.do(ctx, "maintenance", http.MethodPost, "/maintenance/update", token, nil)
	return err
}

// Ping：不经缓存访问 GET /，用于心跳
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, "ping", http.MethodGet, "/", "", nil)
	return err
}
