package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	sendBuffer   = 16
	maxReadBytes = 512
)

var ErrHubClosed = errors.New("ws: hub closed")

// Event 推送给浏览器的通知
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub 按用户 ID 分组的通知连接。同一用户可以同时打开多个标签页
type Hub struct {
	mu     sync.RWMutex
	users  map[string]map[*peer]struct{}
	closed bool
	logger *zap.Logger
}

// peer 单个连接。只有 writeLoop 写 conn，send 关闭即断开
type peer struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		users:  make(map[string]map[*peer]struct{}),
		logger: logger.Named("ws"),
	}
}

// Attach 接管已升级的连接，启动读写协程，断开后自动注销
func (h *Hub) Attach(userID string, conn *websocket.Conn) error {
	p := &peer{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return ErrHubClosed
	}
	if h.users[userID] == nil {
		h.users[userID] = make(map[*peer]struct{})
	}
	h.users[userID][p] = struct{}{}
	n := len(h.users[userID])
	h.mu.Unlock()

	h.logger.Debug("peer attached", zap.String("user_id", userID), zap.Int("user_conns", n))

	go h.writeLoop(p)
	go h.readLoop(p)
	return nil
}

// detach 可重复调用
func (h *Hub) detach(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	peers, ok := h.users[p.userID]
	if !ok {
		return
	}
	if _, ok := peers[p]; !ok {
		return
	}
	delete(peers, p)
	if len(peers) == 0 {
		delete(h.users, p.userID)
	}
	close(p.send)
	h.logger.Debug("peer detached", zap.String("user_id", p.userID))
}

// readLoop 只处理 pong 和断开，客户端发来的内容丢弃
func (h *Hub) readLoop(p *peer) {
	defer h.detach(p)

	p.conn.SetReadLimit(maxReadBytes)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(p *peer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case data, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Warn("write failed", zap.String("user_id", p.userID), zap.Error(err))
				h.detach(p)
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.detach(p)
				return
			}
		}
	}
}

// Publish 推送给用户的全部连接，返回入队的连接数。
// 缓冲已满的连接跟不上推送，直接断开
func (h *Hub) Publish(userID string, event *Event) (int, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return 0, err
	}

	var slow []*peer
	queued := 0
	h.mu.RLock()
	for p := range h.users[userID] {
		select {
		case p.send <- data:
			queued++
		default:
			slow = append(slow, p)
		}
	}
	h.mu.RUnlock()

	for _, p := range slow {
		h.logger.Warn("dropping slow peer", zap.String("user_id", userID))
		h.detach(p)
	}
	return queued, nil
}

// Online 用户是否有连接
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// Connections 在线连接总数
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, peers := range h.users {
		total += len(peers)
	}
	return total
}

// Close 向所有连接发送关闭帧，之后 Attach 返回 ErrHubClosed
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for userID, peers := range h.users {
		for p := range peers {
			close(p.send)
		}
		delete(h.users, userID)
	}
}
