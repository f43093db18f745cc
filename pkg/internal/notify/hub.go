package notify

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"

	nlog "github.com/hsk3232/DevelopProject/pkg/log"
	"github.com/hsk3232/DevelopProject/pkg/metrics"
)

// Hub 维护按用户分组的 websocket 连接，同一用户可有多个连接.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]map[*Client]struct{}
	sendBuffer int
}

// NewHub 创建 Hub.
func NewHub(sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}

	return &Hub{clients: make(map[string]map[*Client]struct{}), sendBuffer: sendBuffer}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}

	set[c] = struct{}{}

	metrics.ActiveConnections.Inc()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.userID]
	if !ok {
		return
	}

	if _, ok := set[c]; ok {
		delete(set, c)
		close(c.send)
		metrics.ActiveConnections.Dec()
	}

	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// Connections 返回用户当前连接数.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[userID])
}

// Notify 实现 Notifier：推送给该用户的全部连接，缓冲区满的连接跳过.
func (h *Hub) Notify(_ context.Context, ev Event) {
	payload, err := sonic.Marshal(ev)
	if err != nil {
		nlog.Logger().Warn().Err(err).Msg("进度消息序列化失败")

		return
	}

	h.SendToUser(ev.UserID, payload)
}

// SendToUser 向用户推送原始消息，返回成功投递的连接数.
func (h *Hub) SendToUser(userID string, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0

	for c := range h.clients[userID] {
		select {
		case c.send <- payload:
			delivered++
		default:
		}
	}

	return delivered
}

// Close 断开所有连接.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, set := range h.clients {
		for c := range set {
			close(c.send)
			metrics.ActiveConnections.Dec()
		}

		delete(h.clients, userID)
	}
}
