package middleware

import (
	"net"
	"net/http"
	"os"
	"strings"

	"geoview/internal/logger"
)

// AllowList：来源 IP/CIDR 白名单，支持 IPv4 与 IPv6
type AllowList struct {
	ips          map[string]struct{}
	cidrs        []*net.IPNet
	realIPHeader string
}

// NewAllowList：entries 可混合单 IP 与 CIDR；无法解析的条目被忽略
func NewAllowList(entries []string, realIPHeader string) *AllowList {
	a := &AllowList{ips: map[string]struct{}{}, realIPHeader: realIPHeader}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			if _, n, err := net.ParseCIDR(e); err == nil {
				a.cidrs = append(a.cidrs, n)
			}
			continue
		}
		if ip := net.ParseIP(e); ip != nil {
			a.ips[ip.String()] = struct{}{}
		}
	}
	return a
}

// AllowListFromEnv：ALLOW_IPS、ALLOW_CIDRS 逗号分隔，ALLOW_LOCAL=true 放行回环地址，REAL_IP_HEADER 指定上游真实 IP 头
// 两个列表都为空且不放行本地时返回 nil
func AllowListFromEnv() *AllowList {
	var entries []string
	for _, k := range []string{"ALLOW_IPS", "ALLOW_CIDRS"} {
		if s := os.Getenv(k); s != "" {
			entries = append(entries, strings.Split(s, ",")...)
		}
	}
	if os.Getenv("ALLOW_LOCAL") == "true" {
		entries = append(entries, "127.0.0.1", "::1")
	}
	if len(entries) == 0 {
		return nil
	}
	return NewAllowList(entries, strings.TrimSpace(os.Getenv("REAL_IP_HEADER")))
}

func (a *AllowList) Allowed(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if _, ok := a.ips[ip.String()]; ok {
		return true
	}
	for _, n := range a.cidrs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Wrap：不在白名单内的请求返回 403
func (a *AllowList) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r, a.realIPHeader)
		if !a.Allowed(ip) {
			logger.L().Debug("allowlist_block", "ip", ip.String(), "remote", r.RemoteAddr)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP：优先取 header 中首个有效 IP，否则取 RemoteAddr；无法解析返回 nil
func ClientIP(r *http.Request, header string) net.IP {
	if header != "" {
		if raw := r.Header.Get(header); raw != "" {
			first, _, _ := strings.Cut(raw, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip
			}
		}
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.ParseIP(host)
}
