package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/AnalyseDeCircuit/homedash/pkg/types"
	"github.com/rs/zerolog"
)

// Source 产生一次完整的 /api/stats 响应
type Source func(ctx context.Context) types.StatsResponse

// SessionChecker 推送前确认客户端会话仍然有效（登出或过期后断开）
type SessionChecker interface {
	Lookup(ctx context.Context, id string) (*types.Session, bool)
}

// Hub 管理全部实时推送连接。每个周期只采集一次，结果广播给所有客户端。
type Hub struct {
	source   Source
	sessions SessionChecker
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
}

// NewHub 创建推送中心，interval 为推送周期
func NewHub(source Source, sessions SessionChecker, interval time.Duration, log zerolog.Logger) *Hub {
	return &Hub{
		source:   source,
		sessions: sessions,
		interval: interval,
		log:      log,
		clients:  make(map[*Client]struct{}),
	}
}

// Run 周期推送直到 ctx 结束，结束时关闭全部连接
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.broadcast(ctx)
		}
	}
}

// Len 当前连接数
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

func (h *Hub) snapshot() []*Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		list = append(list, c)
	}
	return list
}

func (h *Hub) broadcast(ctx context.Context) {
	clients := h.snapshot()
	if len(clients) == 0 {
		return
	}

	var live []*Client
	for _, c := range clients {
		if _, ok := h.sessions.Lookup(ctx, c.sessionID); !ok {
			h.log.Debug().Str("client", c.key).Msg("stats stream session ended")
			c.closeWith(closeSessionEnded)
			continue
		}
		live = append(live, c)
	}
	if len(live) == 0 {
		return
	}

	data, err := h.encode(ctx)
	if err != nil {
		return
	}
	for _, c := range live {
		c.enqueue(data)
	}
}

func (h *Hub) encode(ctx context.Context) ([]byte, error) {
	data, err := json.Marshal(h.source(ctx))
	if err != nil {
		h.log.Error().Err(err).Msg("encode stats message")
	}
	return data, err
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.closeWith(closeGoingAway)
	}
}
