package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("ADMIN_USER", "admin")
	t.Setenv("ADMIN_PASS", "hunter2")
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
}

func TestParse_defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Parse([]string{})
	require.NoError(t, err)

	assert.Equal(t, "admin", cfg.AdminUser)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, DefaultSessionTTL, cfg.SessionTTL)
	assert.Equal(t, DefaultLoginWindow, cfg.LoginWindow)
	assert.Equal(t, DefaultLoginMax, cfg.LoginMax)
	assert.Equal(t, 5*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, "homedash.sid", cfg.CookieName)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.SecureCookies())
	assert.Equal(t, CommandServe, cfg.Command())
}

func TestParse_missingRequiredAggregated(t *testing.T) {
	t.Setenv("ADMIN_USER", "")
	t.Setenv("ADMIN_PASS", "")
	t.Setenv("SESSION_SECRET", "")

	_, err := Parse([]string{})
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "ADMIN_USER is required")
	assert.Contains(t, msg, "ADMIN_PASS is required")
	assert.Contains(t, msg, "SESSION_SECRET is required")
}

func TestParse_flagsOverrideEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8080")

	cfg, err := Parse([]string{"--port=9090", "--trust-proxy", "--login-max=3"})
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.TrustProxy)
	assert.Equal(t, 3, cfg.LoginMax)
}

func TestParse_hashPasswordSkipsValidation(t *testing.T) {
	t.Setenv("ADMIN_USER", "")
	t.Setenv("ADMIN_PASS", "")
	t.Setenv("SESSION_SECRET", "")

	cfg, err := Parse([]string{"hash-password", "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, CommandHashPassword, cfg.Command())
	assert.Equal(t, "hunter2", cfg.HashPassword.Password)

	cfg, err = Parse([]string{"hash-password"})
	require.NoError(t, err)
	assert.Equal(t, CommandHashPassword, cfg.Command())
	assert.Empty(t, cfg.HashPassword.Password)
}

func TestParse_explicitServe(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Parse([]string{"serve", "--port=8081"})
	require.NoError(t, err)
	assert.Equal(t, CommandServe, cfg.Command())
	assert.Equal(t, 8081, cfg.Port)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			AdminUser:       "admin",
			AdminPass:       "pw",
			SessionSecret:   "0123456789abcdef",
			Port:            3000,
			CookieName:      "sid",
			CookieSecure:    CookieSecureAuto,
			SessionTTL:      time.Hour,
			LoginWindow:     time.Minute,
			LoginMax:        5,
			StatsRate:       1,
			StatsBurst:      1,
			ProbeTimeout:    time.Second,
			RefreshInterval: time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"short secret", func(c *Config) { c.SessionSecret = "short" }, "SESSION_SECRET must be at least 16 bytes"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "PORT 70000 is out of range"},
		{"bad cookie secure", func(c *Config) { c.CookieSecure = "maybe" }, "COOKIE_SECURE must be auto, true or false"},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }, "SESSION_TTL must be greater than zero"},
		{"zero login max", func(c *Config) { c.LoginMax = 0 }, "LOGIN_MAX must be greater than zero"},
		{"negative cpu interval", func(c *Config) { c.CPUInterval = -time.Second }, "CPU_SAMPLE_INTERVAL must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSecureCookies(t *testing.T) {
	tests := []struct {
		name       string
		secure     string
		production bool
		nodeEnv    string
		want       bool
	}{
		{"auto development", CookieSecureAuto, false, "development", false},
		{"auto production flag", CookieSecureAuto, true, "development", true},
		{"auto NODE_ENV production", CookieSecureAuto, false, "production", true},
		{"forced on", CookieSecureOn, false, "development", true},
		{"forced off in production", CookieSecureOff, true, "production", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{CookieSecure: tt.secure, Production: tt.production, NodeEnv: tt.nodeEnv}
			assert.Equal(t, tt.want, c.SecureCookies())
		})
	}
}

func TestWarnings(t *testing.T) {
	c := Config{CookieSecure: CookieSecureOff, Production: true}
	assert.Len(t, c.Warnings(), 2)

	c = Config{CookieSecure: CookieSecureAuto, Production: true, TrustProxy: true}
	assert.Empty(t, c.Warnings())
}
