package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: Bir mesajı yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// pongWait: 3 heartbeat kaçırma = 30s × 3 = 90s. Bu sürede heartbeat
	// gelmezse bağlantı kopmuş sayılır.
	pongWait = 90 * time.Second

	// maxMessageSize: Client sadece heartbeat gönderir; büyük mesaj beklenmez.
	maxMessageSize = 1024

	// sendBufferSize: Buffer dolarsa (client yavaş) client disconnect edilir.
	sendBufferSize = 64
)

// Client, tek bir WebSocket bağlantısını temsil eder.
//
// Her bağlantı için iki goroutine vardır:
// - ReadPump: heartbeat'leri okur, bağlantı kapanınca Hub'dan çıkar
// - WritePump: send channel'ındaki event'leri yazar
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	id        string
	accountID int64
	send      chan []byte
	mu        sync.Mutex // conn.WriteMessage çağrılarını korur
	log       *zap.Logger
}

// ReadPump, bağlantıdan gelen mesajları okur. Bağlantı kapanana kadar bloklar.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.dropClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("failed to set read deadline", zap.Error(err))
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("unexpected close", zap.Error(err))
			}
			return
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			c.log.Debug("invalid message", zap.Error(err))
			continue
		}

		switch event.Op {
		case OpHeartbeat:
			if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
				return
			}
			c.sendEvent(Event{Op: OpHeartbeatAck})
		default:
			c.log.Debug("unknown op", zap.String("op", event.Op))
		}
	}
}

// sendEvent, tek bir client'a event kuyruğa ekler. Buffer doluysa düşürülür.
// send channel'ı Hub tarafından kapatılmış olabilir; Hub mutex'i altında
// kontrol edilir.
func (c *Client) sendEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c.accountID][c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// enqueue, henüz Hub'a kaydedilmemiş client'ın kuyruğuna event ekler.
func (c *Client) enqueue(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// WritePump, send channel'ındaki mesajları WebSocket'e yazar.
// Channel kapanınca (Hub client'ı çıkardı) kalan mesajları yazıp close frame gönderir.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.writeMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.writeMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// writeMessage, WebSocket'e mesaj yazar (mutex ile korunur).
// gorilla/websocket conn'a aynı anda birden fazla yazma yasaktır.
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
