package ws

import (
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/akinalp/opsportal/models"
)

// TokenValidator, WebSocket handler'ın access token doğrulaması için
// kullandığı interface.
//
// services paketi ws.EventPublisher'ı kullandığı için ws → services importu
// döngü oluştururdu; küçük, odaklı bir interface tanımlıyoruz.
// services.TokenService bunu implicit olarak karşılar.
type TokenValidator interface {
	VerifyAccessToken(token string) (*models.AccessClaims, error)
}

// Handler, WebSocket bağlantı isteklerini işleyen HTTP handler'ı.
type Handler struct {
	hub       *Hub
	validator TokenValidator
	upgrader  websocket.Upgrader
	log       *zap.Logger
}

// NewHandler, yeni bir WebSocket handler oluşturur.
//
// allowedOrigins: tarayıcı bağlantıları için izinli Origin listesi (CORS ile aynı).
// Origin header'ı olmayan istekler (tarayıcı dışı client'lar) kabul edilir.
func NewHandler(hub *Hub, validator TokenValidator, allowedOrigins []string, log *zap.Logger) *Handler {
	return &Handler{
		hub:       hub,
		validator: validator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
		log: log.Named("ws"),
	}
}

// HandleConnection, HTTP bağlantısını WebSocket'e yükseltir ve client'ı Hub'a kaydeder.
//
// Tarayıcılar WebSocket isteğine Authorization header ekleyemez; token query
// parameter olarak gelir:
//
//	ws://server/ws?token=ACCESS_TOKEN
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.validator.VerifyAccessToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrader yanıtı zaten yazdı.
		h.log.Debug("upgrade failed", zap.Int64("account_id", claims.AccountID), zap.Error(err))
		return
	}

	connID := uuid.NewString()
	client := &Client{
		hub:       h.hub,
		conn:      conn,
		id:        connID,
		accountID: claims.AccountID,
		send:      make(chan []byte, sendBufferSize),
		log:       h.log.With(zap.Int64("account_id", claims.AccountID), zap.String("conn_id", connID)),
	}

	// Ready, kayıttan önce kuyruğa girer; ilk yazılan mesaj odur.
	client.enqueue(Event{Op: OpReady, Data: ReadyData{
		AccountID: claims.AccountID,
		Username:  claims.Username,
		Role:      string(claims.Role),
	}})

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump() // bağlantı kapanana kadar bloklar
}
