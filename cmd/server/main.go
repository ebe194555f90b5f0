// Package main 提供仪表盘服务器的主入口点
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AnalyseDeCircuit/homedash/api/handlers"
	"github.com/AnalyseDeCircuit/homedash/internal/assets"
	"github.com/AnalyseDeCircuit/homedash/internal/auth"
	"github.com/AnalyseDeCircuit/homedash/internal/collectors"
	"github.com/AnalyseDeCircuit/homedash/internal/config"
	"github.com/AnalyseDeCircuit/homedash/internal/links"
	"github.com/AnalyseDeCircuit/homedash/internal/logger"
	"github.com/AnalyseDeCircuit/homedash/internal/middleware"
	"github.com/AnalyseDeCircuit/homedash/internal/prometheus"
	"github.com/AnalyseDeCircuit/homedash/internal/session"
	"github.com/AnalyseDeCircuit/homedash/internal/systemd"
	"github.com/AnalyseDeCircuit/homedash/internal/websocket"
	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var version = "dev"

const (
	shutdownTimeout        = 10 * time.Second
	sessionCleanupInterval = 10 * time.Minute
	limiterCleanupInterval = 5 * time.Minute
)

func main() {
	// .env 不存在时忽略，已有的环境变量优先
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "homedash: load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Parse(os.Args[1:], kong.Vars{"version": version})
	if err != nil {
		fmt.Fprintf(os.Stderr, "homedash: invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	if cfg.Command() == config.CommandHashPassword {
		if err := runHashPassword(cfg.HashPassword.Password, os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "homedash: %v\n", err)
			os.Exit(1)
		}
		return
	}

	log := logger.Setup(cfg.Debug)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	creds, err := auth.NewCredentials(cfg.AdminUser, cfg.AdminPass)
	if err != nil {
		return fmt.Errorf("admin credentials: %w", err)
	}

	store := openSessionStore(ctx, cfg, log)
	defer store.Close()

	sessions := session.NewManager(store, auth.NewTokenSigner(cfg.SessionSecret), session.CookiePolicy{
		Name:   cfg.CookieName,
		Domain: cfg.CookieDomain,
		Secure: cfg.SecureCookies(),
		TTL:    cfg.SessionTTL,
	}, log)

	linkList, err := links.Load(cfg.LinksFile)
	if err != nil {
		return err
	}

	bundle, err := assets.Open(cfg.DistDir, cfg.PublicDir)
	if err != nil {
		return fmt.Errorf("web bundle: %w", err)
	}

	metrics := prometheus.New(version)
	collector := collectors.NewCollector(collectors.NewHostProbes(cfg.CPUInterval), cfg.ProbeTimeout)

	api := handlers.NewAPI(handlers.APIOptions{
		Sessions:    sessions,
		Credentials: creds,
		Collector:   collector,
		Links:       linkList,
		Metrics:     metrics,
		TrustProxy:  cfg.TrustProxy,
		Logger:      log,
	})

	hub := websocket.NewHub(api.Stats, sessions, cfg.RefreshInterval, log)
	stream := websocket.NewHandler(hub, cfg.TrustedOrigins)
	stream.OnConnect = metrics.StreamConnected
	go hub.Run(ctx)

	statsLimiter := middleware.NewRateLimiter(rate.Limit(cfg.StatsRate), cfg.StatsBurst)
	go cleanupLoop(ctx, limiterCleanupInterval, statsLimiter.Cleanup)

	router, err := handlers.NewRouter(api, handlers.RouterOptions{
		LoginLimiter:   middleware.NewLoginLimiter(cfg.LoginWindow, cfg.LoginMax),
		StatsLimiter:   statsLimiter,
		Bundle:         bundle,
		Stream:         stream,
		HSTS:           cfg.SecureCookies(),
		TrustedOrigins: cfg.TrustedOrigins,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          logger.StdLogger(log),
	}

	// 先绑定端口，确保通知 systemd 时已经可以接受连接
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	log.Info().
		Str("addr", ln.Addr().String()).
		Str("version", version).
		Bool("production", cfg.IsProduction()).
		Bool("secure_cookies", cfg.SecureCookies()).
		Bool("trust_proxy", cfg.TrustProxy).
		Msg("server starting")

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	notifier := systemd.NewNotifier(log)
	notifier.Ready()
	go notifier.Watchdog(ctx)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	notifier.Stopping()

	// 优雅关闭 HTTP 服务器（等待最多 10 秒）
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited gracefully")
	return nil
}

// openSessionStore 配置了 Redis 时优先使用，连接失败回退到内存存储
func openSessionStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) session.Store {
	if cfg.RedisAddr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		store, err := session.NewRedisStore(pingCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			log.Info().Str("addr", cfg.RedisAddr).Msg("using redis session store")
			return store
		}
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, keeping sessions in memory")
	}
	return session.NewMemoryStore(sessionCleanupInterval)
}

func cleanupLoop(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
