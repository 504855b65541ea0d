// 包 geolocate：按客户端 IP 在 MaxMind 城市库中定位，生成“我的位置”地点
package geolocate

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/oschwald/geoip2-golang"
	"github.com/oschwald/maxminddb-golang"
	"github.com/paulmach/orb"

	"geoview/internal/logger"
	"geoview/internal/model"
)

var (
	ErrDisabled = errors.New("geolocation database not configured")
	ErrNotFound = errors.New("ip address has no location")
)

type Locator struct {
	db *geoip2.Reader
}

// Open：打开前先用 maxminddb 校验库文件结构，损坏的库直接拒绝
func Open(path string) (*Locator, error) {
	raw, err := maxminddb.Open(path)
	if err != nil {
		return nil, err
	}
	verr := raw.Verify()
	dbType := raw.Metadata.DatabaseType
	raw.Close()
	if verr != nil {
		return nil, fmt.Errorf("verify %s: %w", path, verr)
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	logger.L().Info("geoip_open_ok", "path", path, "type", dbType)
	return &Locator{db: db}, nil
}

// OpenFromEnv：GEOIP_PATH 未配置时返回 nil, nil
func OpenFromEnv() (*Locator, error) {
	p := os.Getenv("GEOIP_PATH")
	if p == "" {
		return nil, nil
	}
	return Open(p)
}

func (l *Locator) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Locate：返回以城市坐标为几何的新用户地点
func (l *Locator) Locate(ip string) (*model.Place, error) {
	if l == nil || l.db == nil {
		return nil, ErrDisabled
	}
	addr := net.ParseIP(ip)
	if addr == nil {
		return nil, fmt.Errorf("invalid ip %q", ip)
	}
	c, err := l.db.City(addr)
	if err != nil {
		return nil, err
	}
	p := PlaceFromCity(c)
	if p == nil {
		return nil, ErrNotFound
	}
	logger.L().Debug("geoip_located", "ip", ip, "label", p.Label())
	return p, nil
}

// PlaceFromCity：坐标全零视为无定位
func PlaceFromCity(c *geoip2.City) *model.Place {
	if c == nil || (c.Location.Latitude == 0 && c.Location.Longitude == 0) {
		return nil
	}
	label := c.City.Names["en"]
	if label == "" {
		label = c.Country.Names["en"]
	}
	if label == "" {
		label = "My location"
	}
	props := map[string]any{
		"label":  label,
		"source": "GeoIP",
	}
	if c.Country.IsoCode != "" {
		props["country"] = c.Country.IsoCode
	}
	if c.Location.AccuracyRadius > 0 {
		props["accuracyKm"] = int(c.Location.AccuracyRadius)
	}
	return model.NewUserPlace(orb.Point{c.Location.Longitude, c.Location.Latitude}, props)
}
