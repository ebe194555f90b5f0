// Package middleware 提供HTTP中间件
package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/AnalyseDeCircuit/homedash/pkg/types"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/time/rate"
)

// 限流提示语，不暴露剩余时间等内部细节
const (
	LoginThrottledMessage   = "Too many login attempts. Try again in a few minutes."
	RequestThrottledMessage = "Too many requests. Please slow down."
)

// --- 登录限流：固定窗口计数 ---

type loginWindow struct {
	start time.Time
	count int
}

// LoginLimiter 按客户端键统计登录尝试次数。
// 窗口从第一次尝试开始计时，窗口内最多允许 max 次，超过窗口长度后重新开始。
type LoginLimiter struct {
	mu         sync.Mutex
	windows    map[string]*loginWindow
	window     time.Duration
	max        int
	now        func() time.Time
	lastGC     time.Time
	gcInterval time.Duration
}

// NewLoginLimiter 创建登录限流器
func NewLoginLimiter(window time.Duration, max int) *LoginLimiter {
	if window <= 0 {
		window = 3 * time.Minute
	}
	if max <= 0 {
		max = 5
	}
	return &LoginLimiter{
		windows:    make(map[string]*loginWindow),
		window:     window,
		max:        max,
		now:        time.Now,
		lastGC:     time.Now(),
		gcInterval: 5 * time.Minute,
	}
}

// Attempt 记录一次尝试，返回是否允许。计数在锁内完成，并发请求不会丢失更新。
func (l *LoginLimiter) Attempt(key string) bool {
	if key == "" {
		key = "_"
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastGC) >= l.gcInterval {
		for k, w := range l.windows {
			if now.Sub(w.start) > l.window {
				delete(l.windows, k)
			}
		}
		l.lastGC = now
	}

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) > l.window {
		w = &loginWindow{start: now}
		l.windows[key] = w
	}
	if w.count >= l.max {
		return false
	}
	w.count++
	return true
}

// Len 返回当前跟踪的客户端数量
func (l *LoginLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// LoginRateLimit 对 POST 请求应用登录限流，超限返回 429。
// onThrottled 可为 nil，用于记录指标。
func LoginRateLimit(l *LoginLimiter, keyFunc KeyFunc, onThrottled func(r *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			key := keyFunc(r)
			if !l.Attempt(key) {
				hlog.FromRequest(r).Warn().Str("client", key).Msg("login throttled")
				if onThrottled != nil {
					onThrottled(r)
				}
				writeJSON(w, http.StatusTooManyRequests, types.Response{OK: false, Error: LoginThrottledMessage})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// --- 接口限流：令牌桶 ---

// RateLimiter 限流器结构，每个键一个令牌桶
type RateLimiter struct {
	limiters   map[string]*rate.Limiter
	lastSeen   map[string]time.Time
	mu         sync.Mutex
	rate       rate.Limit
	burst      int
	maxIdle    time.Duration
	lastGC     time.Time
	gcInterval time.Duration
}

// NewRateLimiter 创建新的限流器
func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{
		limiters:   make(map[string]*rate.Limiter),
		lastSeen:   make(map[string]time.Time),
		rate:       r,
		burst:      b,
		maxIdle:    10 * time.Minute,
		lastGC:     time.Now(),
		gcInterval: 5 * time.Minute,
	}
}

// GetLimiter 获取或创建指定key的限流器
func (rl *RateLimiter) GetLimiter(key string) *rate.Limiter {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastGC) >= rl.gcInterval {
		rl.cleanup(now)
	}

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	rl.lastSeen[key] = now
	return limiter
}

// Cleanup 清理长时间未使用的限流器
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.cleanup(time.Now())
}

func (rl *RateLimiter) cleanup(now time.Time) {
	for k, seen := range rl.lastSeen {
		if now.Sub(seen) > rl.maxIdle {
			delete(rl.lastSeen, k)
			delete(rl.limiters, k)
		}
	}
	rl.lastGC = now
}

// RateLimitMiddleware 限流中间件
func RateLimitMiddleware(rl *RateLimiter, keyFunc KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.GetLimiter(keyFunc(r)).Allow() {
				writeJSON(w, http.StatusTooManyRequests, types.Response{OK: false, Error: RequestThrottledMessage})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
