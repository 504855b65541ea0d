package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoview_requests_total",
		Help: "Total number of API requests by route",
	}, []string{"route"})
	RequestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geoview_request_duration_ms",
		Help:    "API request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoview_cache_hits_total",
		Help: "Total remote response cache hits",
	}, []string{"backend"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoview_cache_misses_total",
		Help: "Total remote response cache misses",
	}, []string{"backend"})
	RemoteRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoview_remote_requests_total",
		Help: "Total data server requests",
	}, []string{"endpoint"})
	RemoteFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoview_remote_fail_total",
		Help: "Total data server request failures",
	}, []string{"endpoint"})
	RemoteDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoview_remote_duration_ms",
		Help:    "Data server call duration in milliseconds",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000},
	}, []string{"endpoint"})
	ChunkRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoview_ts_chunk_requests_total",
		Help: "Time-series chunk requests by result (data, empty, error)",
	}, []string{"result"})
	ChunkDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geoview_ts_chunk_duration_ms",
		Help:    "Time-series chunk request duration in milliseconds",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000},
	})
	ChainsAbandonedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoview_ts_chains_abandoned_total",
		Help: "Time-series fetch chains stopped before completion by reason",
	}, []string{"reason"})
	MergesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoview_ts_merges_total",
		Help: "Time-series merges by update and data mode",
	}, []string{"update_mode", "data_mode"})
	ServerHeartbeatTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoview_server_heartbeat_total",
		Help: "Data server heartbeat count by status",
	}, []string{"server", "status"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(RemoteRequestsTotal)
	prometheus.MustRegister(RemoteFailTotal)
	prometheus.MustRegister(RemoteDurationMs)
	prometheus.MustRegister(ChunkRequestsTotal)
	prometheus.MustRegister(ChunkDurationMs)
	prometheus.MustRegister(ChainsAbandonedTotal)
	prometheus.MustRegister(MergesTotal)
	prometheus.MustRegister(ServerHeartbeatTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
