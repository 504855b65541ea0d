// 包 store: 提供与 PostgreSQL 的数据访问层，持久化用户服务器、偏好与用户地点组
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	_ "github.com/lib/pq"
	"github.com/paulmach/orb/geojson"

	"geoview/internal/logger"
	"geoview/internal/model"
	"geoview/internal/state"
)

// Store: 数据库访问入口，持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// LoadServers: 按保存顺序读取用户服务器
func (s *Store) LoadServers(ctx context.Context) ([]model.ServerConfig, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, url FROM _gv_user_servers ORDER BY position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ServerConfig
	for rows.Next() {
		var c model.ServerConfig
		if err := rows.Scan(&c.ID, &c.Name, &c.URL); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	logger.L().Debug("db_servers_loaded", "count", len(out))
	return out, rows.Err()
}

// SaveServers: 整表替换，单事务内完成
func (s *Store) SaveServers(ctx context.Context, servers []model.ServerConfig) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM _gv_user_servers"); err != nil {
			return err
		}
		for i, c := range servers {
			if _, err := tx.ExecContext(ctx, "INSERT INTO _gv_user_servers(id, name, url, position) VALUES($1,$2,$3,$4)",
				c.ID, c.Name, c.URL, i); err != nil {
				return err
			}
		}
		logger.L().Debug("db_servers_saved", "count", len(servers))
		return nil
	})
}

// LoadSettings: 读取偏好；尚未保存时 found 为 false
func (s *Store) LoadSettings(ctx context.Context) (selectedServerID string, settings state.Settings, found bool, err error) {
	var raw []byte
	row := s.db.QueryRowContext(ctx, "SELECT selected_server_id, settings FROM _gv_settings WHERE id=1")
	if err := row.Scan(&selectedServerID, &raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", state.Settings{}, false, nil
		}
		return "", state.Settings{}, false, err
	}
	settings = state.DefaultSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		return "", state.Settings{}, false, err
	}
	return selectedServerID, settings, true, nil
}

// SaveSettings: 写入或覆盖唯一一行偏好
func (s *Store) SaveSettings(ctx context.Context, selectedServerID string, settings state.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO _gv_settings(id, selected_server_id, settings, updated_at)
        VALUES(1, $1, $2, now())
        ON CONFLICT (id) DO UPDATE SET selected_server_id=EXCLUDED.selected_server_id, settings=EXCLUDED.settings, updated_at=now()`,
		selectedServerID, raw)
	if err == nil {
		logger.L().Debug("db_settings_saved", "server", selectedServerID)
	}
	return err
}

// LoadUserPlaceGroups: 按保存顺序读取用户地点组；无法解码的行记录告警后跳过
func (s *Store) LoadUserPlaceGroups(ctx context.Context) ([]*model.PlaceGroup, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, features FROM _gv_user_place_groups ORDER BY position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.PlaceGroup
	for rows.Next() {
		var id, title string
		var raw []byte
		if err := rows.Scan(&id, &title, &raw); err != nil {
			return nil, err
		}
		pg, err := DecodePlaceGroup(id, title, raw)
		if err != nil {
			logger.L().Warn("db_place_group_decode_fail", "id", id, "err", err)
			continue
		}
		out = append(out, pg)
	}
	return out, rows.Err()
}

// SaveUserPlaceGroups: 整表替换
func (s *Store) SaveUserPlaceGroups(ctx context.Context, groups []*model.PlaceGroup) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM _gv_user_place_groups"); err != nil {
			return err
		}
		for i, pg := range groups {
			raw, err := EncodePlaceGroup(pg)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, "INSERT INTO _gv_user_place_groups(id, title, features, position) VALUES($1,$2,$3,$4)",
				pg.ID, pg.Title, raw, i); err != nil {
				return err
			}
		}
		logger.L().Debug("db_place_groups_saved", "count", len(groups))
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// EncodePlaceGroup: 地点以 GeoJSON FeatureCollection 存储
func EncodePlaceGroup(pg *model.PlaceGroup) ([]byte, error) {
	return json.Marshal(pg.FeatureCollection())
}

func DecodePlaceGroup(id, title string, raw []byte) (*model.PlaceGroup, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, err
	}
	pg := &model.PlaceGroup{ID: id, Title: title}
	for _, f := range fc.Features {
		pg.Features = append(pg.Features, model.PlaceFromFeature(f))
	}
	return pg, nil
}
