// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/videoxlab/videox/internal/models"
	"github.com/videoxlab/videox/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 界面与API同源部署，跨域场景由CORS中间件控制
	CheckOrigin: func(r *http.Request) bool { return true },
}

// MessageHub 把操作反馈消息推送给所有已连接的界面
type MessageHub struct {
	mutex   sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewMessageHub 创建消息集线器
func NewMessageHub() *MessageHub {
	return &MessageHub{
		clients: make(map[*wsClient]struct{}),
	}
}

// Broadcast 向所有连接推送一条反馈消息
// 发送缓冲已满的慢客户端直接断开，不阻塞其他连接
func (h *MessageHub) Broadcast(msg models.ShotMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// HandleWS 升级连接并开始推送
func (h *MessageHub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Warn("websocket升级失败", map[string]interface{}{"error": err.Error()})
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 32),
	}

	h.mutex.Lock()
	h.clients[client] = struct{}{}
	h.mutex.Unlock()

	go h.writePump(client)
	go h.readPump(client)
}

// writePump 把消息写入连接，定期发送ping保活
func (h *MessageHub) writePump(client *wsClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.send:
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 只消费控制帧，连接断开时清理
func (h *MessageHub) readPump(client *wsClient) {
	defer func() {
		h.mutex.Lock()
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			close(client.send)
		}
		h.mutex.Unlock()
		client.conn.Close()
	}()

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
