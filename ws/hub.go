package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// EventPublisher, service katmanının hesap olaylarını iletmek için kullandığı
// interface. Service'ler Hub'ın concrete struct'ına değil buna bağımlıdır;
// testlerde kayıt tutan bir fake kullanılır.
type EventPublisher interface {
	BroadcastToAccount(accountID int64, event Event)
	// DisconnectAccount, hesabın tüm bağlantılarını kapatır. Kuyruktaki
	// event'ler önce yazılır.
	DisconnectAccount(accountID int64)
}

// Hub, tüm WebSocket bağlantılarını yöneten merkezi yapıdır (Observer pattern).
//
// register/unregister channel'ları Run goroutine'inde işlenir; broadcast
// çağrıları doğrudan clients map'ini RLock ile okur.
type Hub struct {
	// clients: accountID → Client set (bir hesabın birden fazla sekmesi olabilir).
	clients map[int64]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once

	seq atomic.Int64

	connections prometheus.Gauge // nil olabilir
	log         *zap.Logger
}

// NewHub, yeni bir Hub oluşturur. connections nil ise bağlantı sayısı
// metriği tutulmaz.
func NewHub(log *zap.Logger, connections prometheus.Gauge) *Hub {
	return &Hub{
		clients:     make(map[int64]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		connections: connections,
		log:         log.Named("ws"),
	}
}

// Run, Hub'ın ana event loop'udur. main.go'da `go hub.Run()` ile başlatılır,
// Shutdown çağrılınca döner.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.accountID]; !ok {
		h.clients[client.accountID] = make(map[*Client]bool)
	}
	h.clients[client.accountID][client] = true
	if h.connections != nil {
		h.connections.Inc()
	}

	h.log.Debug("client connected",
		zap.Int64("account_id", client.accountID),
		zap.String("conn_id", client.id),
		zap.Int("connections", len(h.clients[client.accountID])))
}

// removeClient, client'ı Hub'dan çıkarır ve send channel'ını kapatır.
// İkinci çağrı no-op'tur.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.accountID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}

	delete(clients, client)
	close(client.send)
	if h.connections != nil {
		h.connections.Dec()
	}
	if len(clients) == 0 {
		delete(h.clients, client.accountID)
	}

	h.log.Debug("client disconnected",
		zap.Int64("account_id", client.accountID),
		zap.String("conn_id", client.id))
}

// BroadcastToAccount, belirli bir hesabın tüm bağlantılarına event gönderir.
func (h *Hub) BroadcastToAccount(accountID int64, event Event) {
	event.Seq = h.seq.Add(1)

	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to marshal account event", zap.String("op", event.Op), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[accountID] {
		select {
		case client.send <- data:
		default:
			// Buffer dolu; bu client yavaş, kapat
			go h.dropClient(client)
		}
	}
}

// DisconnectAccount, hesabın tüm bağlantılarını kapatır.
func (h *Hub) DisconnectAccount(accountID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients[accountID] {
		h.removeLocked(client)
	}
}

// ConnectionCount, hesabın açık bağlantı sayısı.
func (h *Hub) ConnectionCount(accountID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[accountID])
}

// dropClient, Run durmuş olsa bile bloklamadan client'ı çıkarır.
func (h *Hub) dropClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Shutdown, tüm client bağlantılarını kapatır ve Run'ı durdurur (graceful shutdown).
func (h *Hub) Shutdown() {
	h.closeOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			h.removeLocked(client)
		}
	}
	h.log.Info("hub shut down, all connections closed")
}
