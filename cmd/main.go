// 程序入口：读取配置、初始化依赖并启动查看器 HTTP 服务；路由注册在 internal/api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"geoview/internal/api"
	"geoview/internal/cache"
	"geoview/internal/geolocate"
	"geoview/internal/logger"
	"geoview/internal/metrics"
	"geoview/internal/middleware"
	"geoview/internal/migrate"
	"geoview/internal/model"
	"geoview/internal/servers"
	"geoview/internal/session"
	"geoview/internal/state"
	"geoview/internal/store"
	"geoview/internal/timeseries"
	"geoview/internal/utils"
)

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envStr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// defaultServers：VIEWER_SERVER_URL 指定的单个数据服务器
func defaultServers() []model.ServerConfig {
	return []model.ServerConfig{{
		ID:   "default",
		Name: envStr("VIEWER_SERVER_NAME", "Default Server"),
		URL:  envStr("VIEWER_SERVER_URL", "http://localhost:8000"),
	}}
}

// defaultSettings：TIME_CHUNK_SIZE、VIEWER_LOCALE、TS_UPDATE_MODE 覆盖默认偏好
func defaultSettings() state.Settings {
	s := state.DefaultSettings()
	s.TimeChunkSize = envInt("TIME_CHUNK_SIZE", s.TimeChunkSize)
	s.Locale = envStr("VIEWER_LOCALE", s.Locale)
	if m, err := timeseries.ParseUpdateMode(os.Getenv("TS_UPDATE_MODE")); err == nil {
		s.TimeSeriesUpdateMode = m
	}
	return s
}

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	l.Debug("log_init_ok")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiBase := envStr("API_BASE", "/api")
	l.Debug("config_api_base", "base", apiBase)

	cfg := session.Config{
		Servers:     defaultServers(),
		Settings:    defaultSettings(),
		AccessToken: os.Getenv("VIEWER_ACCESS_TOKEN"),
	}

	if utils.PostgresEnabled() {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			l.Error("db_ping_error", "err", err)
			os.Exit(1)
		}
		l.Info("db_open_ok")
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		st := store.AttachDB(db)
		if list, err := st.LoadServers(ctx); err != nil {
			l.Warn("servers_load_error", "err", err)
		} else if len(list) > 0 {
			cfg.Servers = list
		}
		if sel, settings, found, err := st.LoadSettings(ctx); err != nil {
			l.Warn("settings_load_error", "err", err)
		} else if found {
			cfg.SelectedServerID, cfg.Settings = sel, settings
		}
		if groups, err := st.LoadUserPlaceGroups(ctx); err != nil {
			l.Warn("user_places_load_error", "err", err)
		} else {
			cfg.UserPlaceGroups = groups
		}
		cfg.Store = st
	} else {
		l.Info("db_disabled")
	}

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else {
		defer rc.Close()
	}
	c := cache.FromEnv(ctx, rc)
	if m, ok := c.(*cache.Memory); ok {
		defer m.Close()
	}
	ttl := time.Duration(envInt("CACHE_TTL_S", 300)) * time.Second

	loc, err := geolocate.OpenFromEnv()
	if err != nil {
		l.Error("geoip_open_error", "err", err)
	} else if loc != nil {
		defer loc.Close()
		cfg.Locator = loc
	}

	mgr := servers.NewManager(&http.Client{Timeout: 30 * time.Second}, c, ttl)
	sess := session.New(ctx, cfg, mgr)
	mgr.Start(ctx)
	go func() {
		if err := sess.SyncWithServer(ctx); err != nil {
			l.Warn("initial_sync_error", "err", err)
		}
	}()
	if poll := envInt("SERVER_UPDATE_POLL_S", 60); poll > 0 {
		sess.WatchServerUpdates(ctx, time.Duration(poll)*time.Second)
	}

	mux := http.NewServeMux()
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, api.BuildRoutes(sess, os.Getenv("REAL_IP_HEADER"))))
	mux.Handle(apiBase+"/metrics", metrics.Handler())

	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	addr := envStr("ADDR", ":8080")
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	if os.Getenv("TLS_ENABLE") == "true" {
		certPath := envStr("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt"))
		keyPath := envStr("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key"))
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, "geoview.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		err = srv.ListenAndServeTLS(certPath, keyPath)
	} else {
		l.Info("listening", "addr", addr)
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
	sess.Wait()
	l.Info("shutdown_ok")
}
