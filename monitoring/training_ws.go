// Package monitoring 提供训练进度的实时推送
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gasoracle/ml"
)

// MessageType 消息类型
type MessageType string

const (
	TrainingStarted  MessageType = "training_started"
	TrainingProgress MessageType = "training_progress"
	TrainingComplete MessageType = "training_complete"
	TrainingFailed   MessageType = "training_failed"
	OverfitAlert     MessageType = "overfit_alert"
)

// Message 推送消息结构
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// client WebSocket客户端
type client struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub 训练进度推送中心
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	mu         sync.Mutex
	upgrader   websocket.Upgrader
	ctx        context.Context
	cancel     context.CancelFunc
	nextID     int
}

// NewHub 创建推送中心
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 运行事件循环，阻塞直到Stop
func (h *Hub) Start() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			zap.S().Infow("ws client connected", "client", c.id, "total", total)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			zap.S().Infow("ws client disconnected", "client", c.id, "total", total)

		case message := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop 停止事件循环并断开所有客户端
func (h *Hub) Stop() {
	h.cancel()
}

// HandleWebSocket 升级连接并注册客户端
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.nextID++
	id := fmt.Sprintf("client-%d", h.nextID)
	h.mu.Unlock()

	c := &client{conn: conn, send: make(chan []byte, 256), id: id}
	h.register <- c

	go c.writePump()
	go c.readPump(h)
}

// BroadcastEvent 推送一条带类型的事件
func (h *Hub) BroadcastEvent(msgType MessageType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		zap.S().Warnw("failed to encode ws payload", "type", msgType, "error", err)
		return
	}
	message, err := json.Marshal(Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- message:
	default:
		zap.S().Warnw("ws broadcast queue full, dropping message", "type", msgType)
	}
}

// BroadcastProgress 推送训练进度事件
func (h *Hub) BroadcastProgress(ev ml.ProgressEvent) {
	switch {
	case ev.Done:
		h.BroadcastEvent(TrainingComplete, ev)
	case ev.Overfit:
		h.BroadcastEvent(OverfitAlert, ev)
	default:
		h.BroadcastEvent(TrainingProgress, ev)
	}
}

// writePump 写入泵，带心跳
func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取泵，只为探测断开
func (c *client) readPump(h *Hub) {
	defer func() {
		// Stop后事件循环已退出，不能阻塞在unregister上
		select {
		case h.unregister <- c:
		case <-h.ctx.Done():
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.S().Debugw("websocket read error", "client", c.id, "error", err)
			}
			return
		}
	}
}
