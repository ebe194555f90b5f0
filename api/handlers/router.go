package handlers

import (
	"context"
	"fmt"
	"net/http"

	"filippo.io/csrf"
	"github.com/AnalyseDeCircuit/homedash/internal/assets"
	"github.com/AnalyseDeCircuit/homedash/internal/auth"
	"github.com/AnalyseDeCircuit/homedash/internal/logger"
	"github.com/AnalyseDeCircuit/homedash/internal/middleware"
	"github.com/AnalyseDeCircuit/homedash/internal/prometheus"
	"github.com/AnalyseDeCircuit/homedash/internal/session"
	"github.com/AnalyseDeCircuit/homedash/pkg/types"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"
)

// StatsCollector 由 collectors.Collector 实现
type StatsCollector interface {
	Collect(ctx context.Context) (*types.Snapshot, error)
}

// API 持有处理器依赖，全部在启动时注入
type API struct {
	sessions    *session.Manager
	credentials *auth.Credentials
	collector   StatsCollector
	links       []types.Link
	metrics     *prometheus.Metrics
	clientKey   middleware.KeyFunc
	log         zerolog.Logger
}

// APIOptions NewAPI 的参数。Metrics 可为 nil。
type APIOptions struct {
	Sessions    *session.Manager
	Credentials *auth.Credentials
	Collector   StatsCollector
	Links       []types.Link
	Metrics     *prometheus.Metrics
	TrustProxy  bool
	Logger      zerolog.Logger
}

// NewAPI 创建处理器集合
func NewAPI(opts APIOptions) *API {
	links := opts.Links
	if links == nil {
		links = []types.Link{}
	}
	return &API{
		sessions:    opts.Sessions,
		credentials: opts.Credentials,
		collector:   opts.Collector,
		links:       links,
		metrics:     opts.Metrics,
		clientKey:   middleware.ClientKey(opts.TrustProxy),
		log:         opts.Logger,
	}
}

// RouterOptions 路由与中间件配置
type RouterOptions struct {
	LoginLimiter   *middleware.LoginLimiter
	StatsLimiter   *middleware.RateLimiter
	Bundle         *assets.Bundle
	Stream         http.Handler // /ws/stats，为 nil 时不注册
	HSTS           bool
	TrustedOrigins []string
}

// Router 封装HTTP路由器
type Router struct {
	mux     *http.ServeMux
	api     *API
	bundle  *assets.Bundle
	handler http.Handler
}

// NewRouter 注册全部路由并组装中间件链：
// 请求日志 → 安全响应头 → 请求体限制 → 访问守卫 → 跨站请求防护 → 路由
func NewRouter(api *API, opts RouterOptions) (*Router, error) {
	router := &Router{
		mux:    http.NewServeMux(),
		api:    api,
		bundle: opts.Bundle,
	}

	statsLimit := middleware.RateLimitMiddleware(opts.StatsLimiter, api.clientKey)
	loginLimit := middleware.LoginRateLimit(opts.LoginLimiter, api.clientKey, func(*http.Request) {
		api.metrics.ObserveLogin(prometheus.LoginThrottled)
	})

	// 认证路由
	router.mux.Handle("/api/login", loginLimit(http.HandlerFunc(api.LoginHandler)))
	router.mux.HandleFunc("/api/logout", api.LogoutHandler)
	router.mux.HandleFunc("/api/me", api.MeHandler)

	// 监控数据路由
	router.mux.Handle("/api/stats", statsLimit(http.HandlerFunc(api.StatsHandler)))
	router.mux.HandleFunc("/api/links", api.LinksHandler)
	router.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Not found")
	})
	router.mux.HandleFunc("/healthz", api.HealthCheckHandler)
	if api.metrics != nil {
		router.mux.Handle("/metrics", api.metrics.Handler())
	}

	// WebSocket路由
	if opts.Stream != nil {
		router.mux.Handle("/ws/stats", statsLimit(opts.Stream))
	}

	// 登录页面
	router.mux.HandleFunc("/login", router.loginPage)

	// 静态文件与单页应用回退
	router.mux.Handle("/", gzhttp.GzipHandler(http.HandlerFunc(router.static)))

	protection := csrf.New()
	for _, origin := range opts.TrustedOrigins {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return nil, fmt.Errorf("trusted origin %q: %w", origin, err)
		}
	}

	guard := middleware.NewGuard(api.sessions)
	var h http.Handler = router.mux
	h = protection.Handler(h)
	h = guard.Middleware(h)
	h = middleware.LimitAPIBody(h)
	h = middleware.SecurityHeaders(opts.HSTS)(h)
	h = logger.Middleware(api.log)(h)
	router.handler = h
	return router, nil
}

// Handler 返回包装了全部中间件的 HTTP Handler
func (r *Router) Handler() http.Handler {
	return r.handler
}

// loginPage 已登录时直接回到首页
func (r *Router) loginPage(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodGet) {
		return
	}
	if _, ok := session.FromContext(req.Context()); ok {
		http.Redirect(w, req, "/", http.StatusFound)
		return
	}
	r.bundle.ServeLogin(w, req)
}

func (r *Router) static(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	r.bundle.ServeDist(w, req)
}
