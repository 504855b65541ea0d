package migrate

import (
	"database/sql"

	"geoview/internal/logger"
)

// 背景：首次运行自动创建用户服务器、偏好与用户地点组表
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _gv_user_servers (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            url TEXT NOT NULL,
            position INT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS _gv_settings (
            id INT PRIMARY KEY,
            selected_server_id TEXT NOT NULL DEFAULT '',
            settings JSONB NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE TABLE IF NOT EXISTS _gv_user_place_groups (
            id TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            features JSONB NOT NULL,
            position INT NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_user_place_groups_position ON _gv_user_place_groups(position)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
