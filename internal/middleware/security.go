package middleware

import (
	"net/http"
	"strings"
)

// maxAPIRequestBodyBytes /api/ 请求体上限
const maxAPIRequestBodyBytes int64 = 64 << 10

// SecurityHeaders 设置通用安全响应头。hsts 为 true 时附加 Strict-Transport-Security，
// 只应在经由 HTTPS 访问（Secure Cookie）时开启。
func SecurityHeaders(hsts bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			h.Set("Cross-Origin-Resource-Policy", "same-origin")
			h.Set("Origin-Agent-Cluster", "?1")
			h.Set("X-DNS-Prefetch-Control", "off")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
			h.Set("X-XSS-Protection", "0")
			if hsts {
				h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LimitAPIBody 限制 API 请求体大小
func LimitAPIBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") && r.Body != nil {
			if r.ContentLength > maxAPIRequestBodyBytes {
				writeJSON(w, http.StatusRequestEntityTooLarge, map[string]interface{}{"ok": false, "error": "Request body too large"})
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxAPIRequestBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}
