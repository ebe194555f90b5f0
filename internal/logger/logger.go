// Package logger 提供 zerolog 初始化与 HTTP 访问日志中间件
package logger

import (
	"io"
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// RequestIDHeader 访问日志使用的请求 ID 头
const RequestIDHeader = "X-Request-Id"

// Setup 创建全局日志器。dev 模式输出彩色控制台格式并开启 debug 级别。
func Setup(dev bool) zerolog.Logger {
	return New(os.Stderr, dev)
}

// New 与 Setup 相同，但允许指定输出目标
func New(out io.Writer, dev bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			Level(level).With().Stack().Logger()
	}

	return logger
}

// StdLogger 把 net/http 的内部错误日志（TLS 握手失败等）转到 zerolog
func StdLogger(log zerolog.Logger) *stdlog.Logger {
	return stdlog.New(log.With().Str("component", "http").Logger(), "", 0)
}

// Middleware 为每个请求注入带 request id 的日志器，并在请求结束后记录一行访问日志
func Middleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			event := hlog.FromRequest(r).Info()
			if status >= http.StatusInternalServerError {
				event = hlog.FromRequest(r).Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("request")
		})(next)
		h = requestID(h)
		return hlog.NewHandler(log)(h)
	}
}

// requestID 复用上游代理传入的请求 ID，否则生成新的 UUID
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		l := zerolog.Ctx(r.Context()).With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(l.WithContext(r.Context())))
	})
}
