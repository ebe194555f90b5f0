// Package config 负责解析并校验启动配置。
// 所有字段都可以通过命令行参数或环境变量提供，启动时只构造一次，
// 之后以指针形式传给各个组件。
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
)

// 会话与限流的默认策略
const (
	DefaultSessionTTL  = 12 * time.Hour
	DefaultLoginWindow = 3 * time.Minute
	DefaultLoginMax    = 5

	minSecretLength = 16
)

// Cookie Secure 策略
const (
	CookieSecureAuto  = "auto"
	CookieSecureOn    = "true"
	CookieSecureOff   = "false"
	productionNodeEnv = "production"
)

// 子命令
const (
	CommandServe        = "serve"
	CommandHashPassword = "hash-password"
)

// HashPasswordCmd 为 ADMIN_PASS 预先生成 bcrypt 哈希
type HashPasswordCmd struct {
	Password string `arg:"" optional:"" help:"Password to hash; read from stdin when omitted."`
}

// Config 全局配置结构体
type Config struct {
	Version kong.VersionFlag `help:"Print version and exit."`
	Debug   bool             `help:"Enable debug logging with console output." env:"DEBUG"`

	Serve        struct{}        `cmd:"" default:"1" help:"Run the dashboard server (default)."`
	HashPassword HashPasswordCmd `cmd:"" name:"hash-password" help:"Print a bcrypt hash suitable for ADMIN_PASS."`

	// 管理员凭据与会话签名密钥（必填）
	AdminUser     string `help:"Administrator username." env:"ADMIN_USER"`
	AdminPass     string `help:"Administrator password, plain text or a bcrypt hash." env:"ADMIN_PASS"`
	SessionSecret string `help:"Secret used to sign session cookies." env:"SESSION_SECRET"`

	// HTTP 监听
	Host       string `help:"Listen host." default:"" env:"HOST"`
	Port       int    `help:"Listen port." default:"3000" env:"PORT"`
	TrustProxy bool   `help:"Derive client address from X-Forwarded-For / X-Real-IP." env:"TRUST_PROXY"`
	Production bool   `help:"Run in production mode." env:"PRODUCTION"`
	NodeEnv    string `help:"Deployment environment name; 'production' enables production mode." default:"development" env:"NODE_ENV"`

	// Cookie 策略
	CookieName   string        `help:"Session cookie name." default:"homedash.sid" env:"COOKIE_NAME"`
	CookieSecure string        `help:"Secure flag on the session cookie (auto follows production mode)." default:"auto" enum:"auto,true,false" env:"COOKIE_SECURE"`
	CookieDomain string        `help:"Session cookie domain; empty means host-only." default:"" env:"COOKIE_DOMAIN"`
	SessionTTL   time.Duration `help:"Session lifetime." default:"12h" env:"SESSION_TTL"`

	// 登录限流
	LoginWindow time.Duration `help:"Login rate limit window." default:"3m" env:"LOGIN_WINDOW"`
	LoginMax    int           `help:"Login attempts allowed per window." default:"5" env:"LOGIN_MAX"`

	// 指标接口限流与采集
	StatsRate       float64       `help:"Stats requests per second per client." default:"2" env:"STATS_RATE"`
	StatsBurst      int           `help:"Stats request burst per client." default:"10" env:"STATS_BURST"`
	ProbeTimeout    time.Duration `help:"Timeout applied to each metrics probe." default:"5s" env:"PROBE_TIMEOUT"`
	CPUInterval     time.Duration `help:"CPU sampling interval; 0 compares against the previous call." default:"0s" env:"CPU_SAMPLE_INTERVAL"`
	RefreshInterval time.Duration `help:"Push interval of the live stats stream." default:"10s" env:"REFRESH_INTERVAL"`

	// 静态资源与链接
	DistDir   string `help:"Directory with the built client bundle; empty uses the embedded one." default:"" env:"DIST_DIR"`
	PublicDir string `help:"Directory with login.html; empty uses the embedded one." default:"" env:"PUBLIC_DIR"`
	LinksFile string `help:"YAML file with the service link list." default:"" env:"LINKS_FILE"`

	// 可选 Redis 会话存储
	RedisAddr     string `help:"Redis address (host:port) for the session store; empty keeps sessions in memory." default:"" env:"REDIS_ADDR"`
	RedisPassword string `help:"Redis password." default:"" env:"REDIS_PASSWORD"`
	RedisDB       int    `help:"Redis database number." default:"0" env:"REDIS_DB"`

	TrustedOrigins []string `help:"Extra origins allowed to send cross-origin POST requests." env:"TRUSTED_ORIGINS"`

	command string
}

// Parse 解析命令行参数和环境变量。运行服务时校验配置，
// 返回的错误包含所有缺失或非法的配置项。
func Parse(args []string, options ...kong.Option) (*Config, error) {
	cfg := &Config{}
	opts := append([]kong.Option{
		kong.Name("homedash"),
		kong.Description("Personal dashboard with live host statistics."),
	}, options...)

	parser, err := kong.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return nil, err
	}

	cfg.command = CommandServe
	if sel := kctx.Selected(); sel != nil && sel.Name == CommandHashPassword {
		cfg.command = CommandHashPassword
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Command 返回选中的子命令，未指定时为 CommandServe
func (c *Config) Command() string {
	if c.command == "" {
		return CommandServe
	}
	return c.command
}

// Validate 一次性检查全部必填项，错误被合并成一份报告而不是遇到第一个就退出
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.AdminUser) == "" {
		errs = append(errs, errors.New("ADMIN_USER is required"))
	}
	if c.AdminPass == "" {
		errs = append(errs, errors.New("ADMIN_PASS is required"))
	}
	switch {
	case c.SessionSecret == "":
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	case len(c.SessionSecret) < minSecretLength:
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSecretLength))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d is out of range", c.Port))
	}
	switch c.CookieSecure {
	case CookieSecureAuto, CookieSecureOn, CookieSecureOff:
	default:
		errs = append(errs, fmt.Errorf("COOKIE_SECURE must be auto, true or false, got %q", c.CookieSecure))
	}
	if c.CookieName == "" {
		errs = append(errs, errors.New("COOKIE_NAME must not be empty"))
	}

	positive := []struct {
		name string
		ok   bool
	}{
		{"SESSION_TTL", c.SessionTTL > 0},
		{"LOGIN_WINDOW", c.LoginWindow > 0},
		{"LOGIN_MAX", c.LoginMax > 0},
		{"STATS_RATE", c.StatsRate > 0},
		{"STATS_BURST", c.StatsBurst > 0},
		{"PROBE_TIMEOUT", c.ProbeTimeout > 0},
		{"REFRESH_INTERVAL", c.RefreshInterval > 0},
	}
	for _, p := range positive {
		if !p.ok {
			errs = append(errs, fmt.Errorf("%s must be greater than zero", p.name))
		}
	}
	if c.CPUInterval < 0 {
		errs = append(errs, errors.New("CPU_SAMPLE_INTERVAL must not be negative"))
	}

	return errors.Join(errs...)
}

// IsProduction 生产模式由 --production 或 NODE_ENV=production 开启
func (c *Config) IsProduction() bool {
	return c.Production || strings.EqualFold(c.NodeEnv, productionNodeEnv)
}

// SecureCookies 返回会话 Cookie 是否带 Secure 标记
func (c *Config) SecureCookies() bool {
	switch c.CookieSecure {
	case CookieSecureOn:
		return true
	case CookieSecureOff:
		return false
	default:
		return c.IsProduction()
	}
}

// Warnings 返回不会阻止启动但值得提示的配置组合
func (c *Config) Warnings() []string {
	var warnings []string
	if c.IsProduction() && !c.SecureCookies() {
		warnings = append(warnings, "production mode with COOKIE_SECURE=false: session cookie will be sent over plain HTTP")
	}
	if c.IsProduction() && !c.TrustProxy {
		warnings = append(warnings, "production mode without TRUST_PROXY: every client behind the edge proxy shares one login rate limit")
	}
	return warnings
}

// Addr 返回 http.Server 使用的监听地址
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
