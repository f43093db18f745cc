package notify

import (
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	nlog "github.com/hsk3232/DevelopProject/pkg/log"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4 * 1024
)

// Client 单个 websocket 连接.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

// Upgrader 按允许的 Origin 列表创建 websocket.Upgrader，列表为空时允许全部.
func Upgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}

			return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		},
	}
}

// Serve 升级连接并注册到 Hub，读写循环在后台运行.
func (h *Hub) Serve(up *websocket.Upgrader, w http.ResponseWriter, r *http.Request, userID string, pingPeriod time.Duration) error {
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Client{hub: h, conn: conn, send: make(chan []byte, h.sendBuffer), userID: userID}
	h.register(c)

	nlog.Logger().Debug().Str("user", userID).Msg("websocket connected")

	go c.writePump(pingPeriod)
	go c.readPump(pingPeriod)

	return nil
}

// readPump 只处理控制帧，客户端消息被丢弃.
func (c *Client) readPump(pingPeriod time.Duration) {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	pongWait := pingPeriod * 10 / 9

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				nlog.Logger().Debug().Err(err).Str("user", c.userID).Msg("websocket closed")
			}

			return
		}
	}
}

func (c *Client) writePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
