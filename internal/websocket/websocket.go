// Package websocket 提供 /ws/stats 实时指标推送
package websocket

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/AnalyseDeCircuit/homedash/internal/session"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/hlog"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 1024
	wsSendBuffer     = 4
)

type closeReason struct {
	code int
	text string
}

var (
	closeSessionEnded = closeReason{websocket.ClosePolicyViolation, "session ended"}
	closeGoingAway    = closeReason{websocket.CloseGoingAway, "server shutting down"}
	closeNormal       = closeReason{websocket.CloseNormalClosure, ""}
	closeBroken       = closeReason{} // 连接已损坏，不发送关闭帧
)

// Handler 升级连接并把客户端交给 Hub。会话由前置的访问守卫保证存在。
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	// OnConnect 在连接建立时调用，返回的函数在断开时调用
	OnConnect func() func()
}

// NewHandler 创建推送处理器，trustedOrigins 为额外允许的跨域来源
func NewHandler(hub *Hub, trustedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(trustedOrigins))
	for _, o := range trustedOrigins {
		allowed[strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))] = true
	}
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return isAllowedOrigin(r, allowed)
			},
		},
	}
}

// isAllowedOrigin 会话靠 Cookie 认证，必须拒绝跨站页面发起的连接。
// 没有 Origin 头的非浏览器客户端放行。
func isAllowedOrigin(r *http.Request, allowed map[string]bool) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if allowed[strings.ToLower(strings.TrimRight(origin, "/"))] {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(hostOnly(u.Host), hostOnly(r.Host))
}

func hostOnly(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return hostport
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade 已经写好了错误响应
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &Client{
		hub:       h.hub,
		conn:      conn,
		send:      make(chan []byte, wsSendBuffer),
		done:      make(chan struct{}),
		sessionID: sess.ID,
		key:       r.RemoteAddr,
	}
	if !h.hub.register(c) {
		c.closeWith(closeGoingAway)
		return
	}
	log.Info().Str("user", sess.User.Username).Msg("stats stream connected")

	disconnect := func() {}
	if h.OnConnect != nil {
		disconnect = h.OnConnect()
	}

	// 连接后立即推送一次，不等第一个周期
	if data, err := h.hub.encode(context.WithoutCancel(r.Context())); err == nil {
		c.enqueue(data)
	}

	go c.writePump()
	c.readPump()

	h.hub.unregister(c)
	disconnect()
	log.Info().Str("user", sess.User.Username).Msg("stats stream closed")
}

// Client 一个实时推送连接
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	sessionID string
	key       string
}

// enqueue 非阻塞发送，客户端太慢时丢弃本次更新
func (c *Client) enqueue(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
	}
}

// closeWith 发送关闭帧并结束连接，可重复调用
func (c *Client) closeWith(reason closeReason) {
	c.closeOnce.Do(func() {
		if reason.code != 0 {
			msg := websocket.FormatCloseMessage(reason.code, reason.text)
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
		}
		close(c.done)
		_ = c.conn.Close()
	})
}

// readPump 只处理控制帧；客户端不需要发送任何业务消息
func (c *Client) readPump() {
	defer c.closeWith(closeNormal)

	c.conn.SetReadLimit(wsMaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.closeWith(closeBroken)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				c.closeWith(closeBroken)
				return
			}
		}
	}
}
