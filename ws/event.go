// Package ws, hesap olaylarını gerçek zamanlı olarak client'lara iletir.
//
// Mimari:
// - Hub: Tüm bağlantıları hesap ID'sine göre yöneten merkezi yapı (Observer pattern)
// - Client: Her WebSocket bağlantısını temsil eder
// - Event: Server → client mesaj formatı
//
// Event akışı:
// 1. Admin bir hesabı günceller/siler/şifresini sıfırlar → HTTP → AccountService
// 2. Service, Hub.BroadcastToAccount ile olayı o hesabın bağlantılarına iletir
// 3. Client'ın WritePump'ı event'i WebSocket'e yazar
// 4. client.EventListener olayı alır: gerekirse oturumu kapatır veya token yeniler
package ws

// Event, WebSocket üzerinden iletilen bir mesajı temsil eder.
//
// Seq (sequence number): Her outbound event'e verilen artan sayı.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client → Server operasyonları
const (
	OpHeartbeat = "heartbeat" // Client her 30sn'de gönderir
)

// Server → Client operasyonları
const (
	OpReady          = "ready"           // Bağlantı kurulduğunda ilk gönderilen; hesap özeti
	OpHeartbeatAck   = "heartbeat_ack"   // Heartbeat'e yanıt
	OpAccountUpdated = "account_updated" // Rol, profil veya aktiflik değişti
	OpPasswordReset  = "password_reset"  // Admin şifreyi sıfırladı; oturum kapanmalı
	OpAccountDeleted = "account_deleted" // Hesap silindi; oturum kapanmalı
)

// ReadyData, OpReady payload'ı.
type ReadyData struct {
	AccountID int64  `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
}

// AccountRefData, OpAccountDeleted ve OpPasswordReset payload'ı.
type AccountRefData struct {
	AccountID int64 `json:"id"`
}
