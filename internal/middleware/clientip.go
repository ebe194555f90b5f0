package middleware

import (
	"net"
	"net/http"
	"strings"
)

// KeyFunc 从请求中提取限流使用的客户端键
type KeyFunc func(r *http.Request) string

// ClientKey 返回按客户端地址限流的 KeyFunc。
// 只有在 trustProxy 为 true（服务位于一层可信反向代理之后）时才读取 X-Forwarded-For / X-Real-IP，
// 否则这两个头可被客户端随意伪造。
// X-Forwarded-For 取最右侧一项：它由可信代理追加，左侧各项都来自客户端。
func ClientKey(trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		if trustProxy {
			if ip := lastForwarded(r.Header.Values("X-Forwarded-For")); ip != "" {
				return ip
			}
			if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
				return xri
			}
		}
		return remoteIP(r.RemoteAddr)
	}
}

// lastForwarded 返回多个 X-Forwarded-For 头合并后的最后一个非空地址
func lastForwarded(values []string) string {
	for i := len(values) - 1; i >= 0; i-- {
		parts := strings.Split(values[i], ",")
		for j := len(parts) - 1; j >= 0; j-- {
			if ip := strings.TrimSpace(parts[j]); ip != "" {
				return ip
			}
		}
	}
	return ""
}

// remoteIP 去掉 RemoteAddr 中的端口
func remoteIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
