package api

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/paulmach/orb/geojson"

	"geoview/internal/export"
	"geoview/internal/geolocate"
	"geoview/internal/logger"
	"geoview/internal/middleware"
	"geoview/internal/model"
	"geoview/internal/remote"
	"geoview/internal/selectors"
	"geoview/internal/session"
	"geoview/internal/state"
	"geoview/internal/userplace"
)

// statusOf：把业务错误映射为 HTTP 状态码
func statusOf(err error) int {
	var se *remote.StatusError
	switch {
	case errors.Is(err, selectors.ErrNoServers), errors.Is(err, selectors.ErrServerNotFound), errors.Is(err, geolocate.ErrDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, userplace.ErrFormat):
		return http.StatusBadRequest
	case errors.Is(err, geolocate.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &se):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.L().Warn("api_error", "path", r.URL.Path, "status", status, "err", err)
	}
	writeError(w, status, err)
}

func (h *handler) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.s.State())
}

type selectRequest struct {
	DatasetID     *string  `json:"datasetId"`
	VariableName  *string  `json:"variableName"`
	PlaceGroupIDs []string `json:"placeGroupIds"`
	PlaceID       *string  `json:"placeId"`
	Time          *string  `json:"time"`
}

// postSelect：只应用请求中出现的字段；数据集先于变量应用
func (h *handler) postSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decode(w, r, &req) {
		return
	}
	if req.DatasetID != nil {
		if err := h.s.SelectDataset(r.Context(), *req.DatasetID); err != nil {
			logger.L().Warn("select_dataset_places_fail", "dataset", *req.DatasetID, "err", err)
		}
	}
	if req.VariableName != nil {
		h.s.Dispatch(state.SelectVariable{VariableName: *req.VariableName})
	}
	if req.PlaceGroupIDs != nil {
		h.s.Dispatch(state.SelectPlaceGroups{PlaceGroupIDs: req.PlaceGroupIDs})
	}
	if req.PlaceID != nil {
		h.s.Dispatch(state.SelectPlace{PlaceID: *req.PlaceID})
	}
	if req.Time != nil {
		h.s.Dispatch(state.SelectTime{Time: *req.Time})
	}
	writeJSON(w, http.StatusOK, h.s.State().Control)
}

func (h *handler) putSettings(w http.ResponseWriter, r *http.Request) {
	settings := h.s.State().Control.Settings
	if !decode(w, r, &settings) {
		return
	}
	h.s.UpdateSettings(r.Context(), settings)
	writeJSON(w, http.StatusOK, settings)
}

func (h *handler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	h.s.Dispatch(state.HideMessage{ID: r.PathValue("id")})
	w.WriteHeader(http.StatusNoContent)
}

type drawRequest struct {
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties map[string]any    `json:"properties"`
}

func (h *handler) drawPlace(w http.ResponseWriter, r *http.Request) {
	var req drawRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Geometry == nil || req.Geometry.Geometry() == nil {
		writeError(w, http.StatusBadRequest, errors.New("geometry required"))
		return
	}
	p, err := h.s.AddUserPlace(r.Context(), req.Geometry.Geometry(), req.Properties)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) importPlaces(w http.ResponseWriter, r *http.Request) {
	var req session.Import
	if !decode(w, r, &req) {
		return
	}
	n, err := h.s.AddUserPlacesFromText(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

// locatePlace：请求体未给出 ip 时使用客户端地址
func (h *handler) locatePlace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IP string `json:"ip"`
	}
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	if req.IP == "" {
		if ip := middleware.ClientIP(r, h.realIPHeader); ip != nil {
			req.IP = ip.String()
		}
	}
	p, err := h.s.LocatePlace(r.Context(), req.IP)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) renamePlaceGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.s.RenameUserPlaceGroup(r.Context(), r.PathValue("id"), req.Title)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) removePlaceGroup(w http.ResponseWriter, r *http.Request) {
	h.s.RemoveUserPlaceGroup(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) renamePlace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label string `json:"label"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.s.RenameUserPlace(r.Context(), r.PathValue("gid"), r.PathValue("pid"), req.Label)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) removePlace(w http.ResponseWriter, r *http.Request) {
	h.s.RemoveUserPlace(r.Context(), r.PathValue("gid"), r.PathValue("pid"))
	w.WriteHeader(http.StatusNoContent)
}

// addTimeSeries：拉取在后台进行，立即返回 202
func (h *handler) addTimeSeries(w http.ResponseWriter, r *http.Request) {
	if err := h.s.AddTimeSeries(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) removeAllTimeSeries(w http.ResponseWriter, r *http.Request) {
	h.s.RemoveAllTimeSeries()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) removeTimeSeriesGroup(w http.ResponseWriter, r *http.Request) {
	h.s.RemoveTimeSeriesGroup(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) removeTimeSeries(w http.ResponseWriter, r *http.Request) {
	i, ok := pathInt(r, "index")
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("index must be an integer"))
		return
	}
	h.s.RemoveTimeSeries(r.PathValue("id"), i)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) getServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.s.Servers().Statuses())
}

func (h *handler) configureServers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Servers          []model.ServerConfig `json:"servers"`
		SelectedServerID string               `json:"selectedServerId"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.s.ConfigureServers(r.Context(), req.Servers, req.SelectedServerID); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.s.State().Data.UserServers)
}

func (h *handler) sync(w http.ResponseWriter, r *http.Request) {
	if err := h.s.SyncWithServer(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) updateResources(w http.ResponseWriter, r *http.Request) {
	if err := h.s.UpdateResources(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// export：单个文件且未要求归档时直接返回文件，否则返回 zip
func (h *handler) export(w http.ResponseWriter, r *http.Request) {
	files, opts, err := h.s.ExportFiles()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if len(files) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if len(files) == 1 && !opts.Zip {
		f := files[0]
		w.Header().Set("content-type", "application/octet-stream")
		w.Header().Set("content-disposition", `attachment; filename="`+f.Name+`"`)
		_, _ = w.Write(f.Data)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteZip(&buf, files); err != nil {
		h.fail(w, r, err)
		return
	}
	name := opts.FileName
	if name == "" {
		name = "export"
	}
	w.Header().Set("content-type", "application/zip")
	w.Header().Set("content-disposition", `attachment; filename="`+name+`.zip"`)
	_, _ = w.Write(buf.Bytes())
}
