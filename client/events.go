package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/akinalp/opsportal/models"
	"github.com/akinalp/opsportal/ws"
)

// heartbeatInterval, sunucunun pongWait süresinin (90 sn) üçte biri.
const heartbeatInterval = 30 * time.Second

// wsWriteWait, tek bir WebSocket yazması için üst sınır.
const wsWriteWait = 10 * time.Second

// inboundEvent, sunucudan gelen event. Data, op'a göre sonradan decode edilir.
type inboundEvent struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d"`
}

// ListenEvents, /ws üzerinden hesap olaylarını dinler ve ctx iptal edilene ya
// da oturum kapanana kadar bloklar.
//
// Olaylar:
//   - password_reset, account_deleted → oturum hemen kapanır
//   - account_updated (is_active=false) → oturum hemen kapanır
//   - account_updated (rol değişti) → access token yenilenir, Session.Role güncellenir
//
// Bağlantı koparsa hata döner; yeniden bağlanmak çağıranın işidir.
func (c *Client) ListenEvents(ctx context.Context) error {
	gen := c.session.generation()
	token := c.session.accessToken()
	if gen == 0 || token == "" {
		return ErrNoSession
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.setEventsCancel(cancel)
	if c.session.generation() != gen {
		// Oturum bu arada kapandı.
		return ErrNoSession
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.eventsURL(token), nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer conn.Close()

	// ctx iptal edilince ReadMessage'ı uyandırmak için bağlantı kapatılır.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go c.heartbeat(ctx, conn)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var event inboundEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.log.Debug("invalid event", zap.Error(err))
			continue
		}
		if !c.handleEvent(ctx, gen, event) {
			return nil
		}
	}
}

// handleEvent, tek bir event'i işler. Dinleme bitmeliyse false döner.
func (c *Client) handleEvent(ctx context.Context, gen uint64, event inboundEvent) bool {
	switch event.Op {
	case ws.OpPasswordReset, ws.OpAccountDeleted:
		c.log.Info("account event ends session", zap.String("op", event.Op))
		c.expire(gen, ReasonAccountEvent)
		return false

	case ws.OpAccountUpdated:
		var account models.Account
		if err := json.Unmarshal(event.Data, &account); err != nil {
			c.log.Debug("invalid account_updated payload", zap.Error(err))
			return true
		}
		if !account.IsActive {
			c.log.Info("account deactivated, ending session")
			c.expire(gen, ReasonAccountEvent)
			return false
		}

		sess, ok := c.session.get()
		if !ok {
			return false
		}
		if sess.Role != account.Role {
			// Yeni token yeni rolü taşır; refresh hatası oturumu kapatır.
			if _, err := c.Refresh(ctx); err != nil {
				if ctx.Err() == nil {
					c.log.Info("refresh after role change failed", zap.Error(err))
					c.expire(gen, ReasonRefreshFailed)
				}
				return false
			}
			c.session.update(gen, func(s *Session) { s.Role = account.Role })
		}
		return true

	case ws.OpReady, ws.OpHeartbeatAck:
		return true

	default:
		c.log.Debug("unknown event", zap.String("op", event.Op))
		return true
	}
}

func (c *Client) heartbeat(ctx context.Context, conn *websocket.Conn) {
	ticker := c.clock.Ticker(heartbeatInterval)
	defer ticker.Stop()

	msg, _ := json.Marshal(ws.Event{Op: ws.OpHeartbeat})
	for {
		select {
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.log.Debug("heartbeat failed", zap.Error(err))
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// eventsURL: http → ws, https → wss. Tarayıcı uyumu için token query'de taşınır.
func (c *Client) eventsURL(token string) string {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path += "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String()
}

func (c *Client) setEventsCancel(cancel context.CancelFunc) {
	c.eventsMu.Lock()
	prev := c.cancelEvents
	c.cancelEvents = cancel
	c.eventsMu.Unlock()
	if prev != nil {
		prev()
	}
}

// stopEvents, çalışan ListenEvents'i sonlandırır.
func (c *Client) stopEvents() {
	c.eventsMu.Lock()
	cancel := c.cancelEvents
	c.cancelEvents = nil
	c.eventsMu.Unlock()
	if cancel != nil {
		cancel()
	}
}
