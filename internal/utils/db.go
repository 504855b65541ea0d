// 包 utils：Postgres、Redis 与 TLS 证书的环境变量驱动打开工具
package utils

import (
	"database/sql"
	"net/url"
	"os"
	"strconv"

	_ "github.com/lib/pq"
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			return n
		}
	}
	return def
}

// PostgresEnabled：PG_HOST 或 PG_DSN 配置时启用持久化
func PostgresEnabled() bool {
	return os.Getenv("PG_HOST") != "" || os.Getenv("PG_DSN") != ""
}

// BuildPostgresDSNFromEnv：PG_DSN 优先，否则由 PG_HOST/PG_PORT/PG_USER/PG_PASSWORD/PG_DB/PG_SSLMODE 拼接
func BuildPostgresDSNFromEnv() string {
	if dsn := os.Getenv("PG_DSN"); dsn != "" {
		return dsn
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     getenv("PG_HOST", "localhost") + ":" + getenv("PG_PORT", "5432"),
		Path:     "/" + getenv("PG_DB", "geoview"),
		RawQuery: "sslmode=" + getenv("PG_SSLMODE", "disable"),
	}
	user := getenv("PG_USER", "postgres")
	if pass := os.Getenv("PG_PASSWORD"); pass != "" {
		u.User = url.UserPassword(user, pass)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}

// OpenPostgresFromEnv：连接池上限由 PG_MAX_OPEN_CONNS（默认 10）与 PG_MAX_IDLE_CONNS（默认 5）控制
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(getenvInt("PG_MAX_OPEN_CONNS", 10))
	db.SetMaxIdleConns(getenvInt("PG_MAX_IDLE_CONNS", 5))
	return db, nil
}
