package middleware

import (
	"net/http"
	"path"
	"strings"

	"github.com/AnalyseDeCircuit/homedash/internal/session"
	"github.com/AnalyseDeCircuit/homedash/pkg/types"
	"github.com/rs/zerolog/hlog"
)

// LoginPath 未登录的页面请求被重定向到这里
const LoginPath = "/login"

// SessionResolver 从请求中解析会话，由 session.Manager 实现
type SessionResolver interface {
	FromRequest(r *http.Request) (*types.Session, bool)
}

// Guard 请求级访问控制。白名单中的路径为公开路径，其余全部需要会话。
type Guard struct {
	sessions       SessionResolver
	publicPaths    map[string]bool
	publicPrefixes []string
	apiPrefixes    []string
}

// NewGuard 使用默认白名单创建 Guard
func NewGuard(sessions SessionResolver) *Guard {
	return &Guard{
		sessions: sessions,
		publicPaths: map[string]bool{
			LoginPath:      true,
			"/api/login":   true,
			"/api/logout":  true,
			"/api/me":      true,
			"/favicon.ico": true,
			"/healthz":     true,
			"/assets":      true,
		},
		publicPrefixes: []string{"/assets/"},
		apiPrefixes:    []string{"/api/", "/ws/", "/metrics"},
	}
}

// IsPublic 判断路径是否无需会话即可访问
func (g *Guard) IsPublic(p string) bool {
	p = cleanPath(p)
	if g.publicPaths[p] {
		return true
	}
	for _, prefix := range g.publicPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// isAPI API 请求未登录时返回 401 JSON，页面请求则重定向到登录页
func (g *Guard) isAPI(p string) bool {
	p = cleanPath(p)
	for _, prefix := range g.apiPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// Middleware 必须包在静态文件服务和 SPA 回退之外，
// 这样未登录时直接访问任何未知路径都会被重定向而不是拿到应用页面。
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := g.sessions.FromRequest(r)
		if ok {
			r = r.WithContext(session.NewContext(r.Context(), sess))
		}

		if ok || g.IsPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		hlog.FromRequest(r).Debug().Str("path", r.URL.Path).Msg("no session, access denied")
		if g.isAPI(r.URL.Path) {
			writeJSON(w, http.StatusUnauthorized, types.Response{OK: false, Error: "Unauthorized"})
			return
		}
		http.Redirect(w, r, LoginPath, http.StatusFound)
	})
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	cleaned := path.Clean(p)
	// path.Clean 会去掉结尾的斜杠，前缀匹配需要保留
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}
