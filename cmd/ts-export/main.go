package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/paulmach/orb"

	"geoview/internal/cache"
	"geoview/internal/export"
	"geoview/internal/logger"
	"geoview/internal/model"
	"geoview/internal/servers"
	"geoview/internal/session"
	"geoview/internal/state"
	"geoview/internal/utils"
)

// 文档注释：拉取单个点位的完整时间序列并导出
// 环境变量：VIEWER_SERVER_URL 数据服务器；TS_DATASET/TS_VARIABLE 选择数据集与变量（缺省取第一个）；
// TS_LON/TS_LAT 点位经纬度；TIME_CHUNK_SIZE 分块大小；TS_OUT 输出路径（.zip 结尾写归档，否则写目录）
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()

	lon, errLon := strconv.ParseFloat(os.Getenv("TS_LON"), 64)
	lat, errLat := strconv.ParseFloat(os.Getenv("TS_LAT"), 64)
	if errLon != nil || errLat != nil {
		l.Error("ts_point_invalid", "lon", os.Getenv("TS_LON"), "lat", os.Getenv("TS_LAT"))
		os.Exit(1)
	}
	serverURL := os.Getenv("VIEWER_SERVER_URL")
	if serverURL == "" {
		l.Error("viewer_server_url_missing")
		os.Exit(1)
	}
	out := os.Getenv("TS_OUT")
	if out == "" {
		out = "export.zip"
	}

	settings := state.DefaultSettings()
	if n, err := strconv.Atoi(os.Getenv("TIME_CHUNK_SIZE")); err == nil {
		settings.TimeChunkSize = n
	}
	settings.AutoShowTimeSeries = true

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	rc := utils.OpenRedisFromEnv()
	mgr := servers.NewManager(nil, cache.FromEnv(ctx, rc), 5*time.Minute)
	sess := session.New(ctx, session.Config{
		Servers:     []model.ServerConfig{{ID: "cli", Name: "cli", URL: serverURL}},
		Settings:    settings,
		AccessToken: os.Getenv("VIEWER_ACCESS_TOKEN"),
	}, mgr)

	if err := sess.SyncWithServer(ctx); err != nil {
		l.Error("sync_error", "err", err)
		os.Exit(1)
	}
	if ds := os.Getenv("TS_DATASET"); ds != "" {
		if err := sess.SelectDataset(ctx, ds); err != nil {
			l.Warn("dataset_places_error", "err", err)
		}
	}
	if v := os.Getenv("TS_VARIABLE"); v != "" {
		sess.Dispatch(state.SelectVariable{VariableName: v})
	}
	c := sess.State().Control
	l.Info("ts_export_begin", "dataset", c.SelectedDatasetID, "variable", c.SelectedVariableName, "lon", lon, "lat", lat)

	if _, err := sess.AddUserPlace(ctx, orb.Point{lon, lat}, map[string]any{"label": "cli"}); err != nil {
		l.Error("ts_fetch_error", "err", err)
		os.Exit(1)
	}
	sess.Wait()

	failed := false
	for _, m := range sess.State().Messages {
		l.Info("ts_message", "type", m.Type, "text", m.Text)
		failed = failed || m.Type == state.MessageError
	}
	if failed {
		os.Exit(1)
	}

	files, _, err := sess.ExportFiles()
	if err != nil {
		l.Error("export_error", "err", err)
		os.Exit(1)
	}
	if strings.HasSuffix(strings.ToLower(out), ".zip") {
		err = writeZipFile(out, files)
	} else {
		err = export.WriteDir(out, files)
	}
	if err != nil {
		l.Error("export_write_error", "path", out, "err", err)
		os.Exit(1)
	}
	l.Info("ts_export_done", "path", out, "files", len(files))
}

func writeZipFile(path string, files []export.File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteZip(f, files); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
