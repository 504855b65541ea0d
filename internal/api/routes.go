// 包 api：查看器会话的 HTTP JSON 接口
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"geoview/internal/metrics"
	"geoview/internal/session"
)

type handler struct {
	s            *session.Session
	realIPHeader string
}

// BuildRoutes：构建路由；realIPHeader 用于定位接口解析客户端 IP
func BuildRoutes(s *session.Session, realIPHeader string) *http.ServeMux {
	h := &handler{s: s, realIPHeader: realIPHeader}
	mux := http.NewServeMux()
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, instrument(pattern, fn))
	}

	route("GET /state", h.getState)
	route("POST /select", h.postSelect)
	route("PUT /settings", h.putSettings)
	route("DELETE /messages/{id}", h.deleteMessage)

	route("POST /places/draw", h.drawPlace)
	route("POST /places/import", h.importPlaces)
	route("POST /places/locate", h.locatePlace)
	route("PATCH /place-groups/{id}", h.renamePlaceGroup)
	route("DELETE /place-groups/{id}", h.removePlaceGroup)
	route("PATCH /place-groups/{gid}/places/{pid}", h.renamePlace)
	route("DELETE /place-groups/{gid}/places/{pid}", h.removePlace)

	route("POST /timeseries", h.addTimeSeries)
	route("DELETE /timeseries", h.removeAllTimeSeries)
	route("DELETE /timeseries/groups/{id}", h.removeTimeSeriesGroup)
	route("DELETE /timeseries/groups/{id}/series/{index}", h.removeTimeSeries)

	route("GET /servers", h.getServers)
	route("POST /servers", h.configureServers)
	route("POST /sync", h.sync)
	route("POST /resources/update", h.updateResources)
	route("GET /export", h.export)
	return mux
}

// instrument：按路由模式统计请求数与耗时
func instrument(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		metrics.RequestsTotal.WithLabelValues(pattern).Inc()
		next.ServeHTTP(w, r)
		metrics.RequestDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

var errBadBody = errors.New("invalid request body")

// decode：解析请求体，最大 16MiB；失败时已写出 400
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<20))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, errors.Join(errBadBody, err))
		return false
	}
	return true
}

func pathInt(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.PathValue(name))
	return n, err == nil
}
