package client

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Timeouts, idle state machine süreleri.
type Timeouts struct {
	// Warning: son aktiviteden bu kadar sonra ACTIVE → WARNING.
	Warning time.Duration
	// Countdown: WARNING'de çıkışa kadar geri sayım.
	Countdown time.Duration
	// Hard: son aktiviteden bu kadar sonra her koşulda EXPIRED (backstop).
	Hard time.Duration
}

// DefaultTimeouts: 14 dk idle → 60 sn uyarı → çıkış; 15 dk backstop.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Warning:   14 * time.Minute,
		Countdown: 60 * time.Second,
		Hard:      15 * time.Minute,
	}
}

// Machine, oturum idle state machine'i. Zaman parametre olarak verilir,
// kendi timer'ı yoktur. Bu yüzden geçişler saat olmadan test edilebilir.
//
// Machine thread-safe DEĞİLDİR; Monitor tüm çağrıları tek mutex altında yapar.
type Machine struct {
	timeouts     Timeouts
	state        IdleState
	lastActivity time.Time
	warnedAt     time.Time
}

// NewMachine, now anında taze bir ACTIVE penceresi ile başlar.
func NewMachine(t Timeouts, now time.Time) *Machine {
	m := &Machine{timeouts: t}
	m.Reset(now)
	return m
}

// Reset, tüm sayaçları sıfırlar ve ACTIVE'e döner (login sonrası).
func (m *Machine) Reset(now time.Time) {
	m.state = StateActive
	m.lastActivity = now
	m.warnedAt = time.Time{}
}

// State, mevcut state.
func (m *Machine) State() IdleState {
	return m.state
}

// OnActivity, kullanıcı aktivitesini işler. Sadece ACTIVE'de idle penceresini
// yeniler; WARNING'de aktivite yoksayılır, kullanıcı açıkça karar vermelidir.
// Aktivite kabul edildiyse true döner.
func (m *Machine) OnActivity(now time.Time) bool {
	if m.advance(now); m.state != StateActive {
		return false
	}
	m.lastActivity = now
	return true
}

// OnTick, zamana bağlı geçişleri uygular ve state değiştiyse true döner.
func (m *Machine) OnTick(now time.Time) (IdleState, bool) {
	before := m.state
	m.advance(now)
	return m.state, m.state != before
}

// OnKeepSession, refresh token sunucuda doğrulandıktan SONRA çağrılır ve
// taze bir ACTIVE penceresi başlatır. Oturum bu arada dolmuşsa (backstop
// geçmişse) false döner ve EXPIRED kalır.
func (m *Machine) OnKeepSession(now time.Time) bool {
	if m.advance(now); m.state == StateExpired {
		return false
	}
	m.Reset(now)
	return true
}

// OnLogout, oturumu hemen EXPIRED yapar. Zaten EXPIRED ise false döner.
func (m *Machine) OnLogout() bool {
	if m.state == StateExpired {
		return false
	}
	m.state = StateExpired
	return true
}

// Remaining, WARNING'de çıkışa kalan saniyeyi yukarı yuvarlayarak döner.
// Diğer state'lerde 0.
func (m *Machine) Remaining(now time.Time) int {
	if m.state != StateWarning {
		return 0
	}
	left := m.deadline().Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

// HardDeadline, backstop'un oturumu kapatacağı an.
func (m *Machine) HardDeadline() time.Time {
	return m.lastActivity.Add(m.timeouts.Hard)
}

// deadline, WARNING'deki çıkış anı: geri sayım sonu ile backstop'tan erken olanı.
func (m *Machine) deadline() time.Time {
	countdownEnd := m.warnedAt.Add(m.timeouts.Countdown)
	if hard := m.HardDeadline(); hard.Before(countdownEnd) {
		return hard
	}
	return countdownEnd
}

func (m *Machine) advance(now time.Time) {
	switch m.state {
	case StateActive:
		if !now.Before(m.HardDeadline()) {
			m.state = StateExpired
			return
		}
		if warnAt := m.lastActivity.Add(m.timeouts.Warning); !now.Before(warnAt) {
			m.state = StateWarning
			// Geri sayım eşiğin kendisinden başlar; tick gecikse de
			// çıkış anı kaymaz.
			m.warnedAt = warnAt
		}
	case StateWarning:
		if !now.Before(m.deadline()) {
			m.state = StateExpired
		}
	}
}

// ExpireReason, oturumun neden kapandığı.
type ExpireReason string

const (
	ReasonIdle          ExpireReason = "idle"
	ReasonLogout        ExpireReason = "logout"
	ReasonRefreshFailed ExpireReason = "refresh_failed"
	ReasonAccountEvent  ExpireReason = "account_event"
)

// MonitorHooks, Monitor'ün dış dünyaya bildirdiği olaylar.
type MonitorHooks struct {
	// Refresh, "keep session" seçildiğinde refresh token'ı sunucuda doğrular.
	Refresh func(ctx context.Context) error
	// Expire, oturum başına EN FAZLA bir kez çağrılır.
	Expire func(reason ExpireReason)
	// Change, state veya geri sayım değiştiğinde çağrılır (opsiyonel).
	Change func(state IdleState, remaining int)
}

// tickInterval, geri sayım çözünürlüğü.
const tickInterval = time.Second

// Monitor, bir Machine'i saat ile sürer: 1 sn'lik ticker geri sayımı ilerletir,
// ayrı bir backstop timer'ı ticker askıya alınsa bile Hard süresinde oturumu
// kapatır.
//
// Tüm geçişler tek mutex altında serileşir. Expire hook'u lock dışında
// çağrılır; hook içinden Monitor metotları güvenle çağrılabilir.
type Monitor struct {
	mu       sync.Mutex
	clock    clock.Clock
	timeouts Timeouts
	hooks    MonitorHooks
	log      *zap.Logger

	machine  *Machine
	gen      uint64
	running  bool
	fired    bool
	stop     chan struct{}
	backstop *clock.Timer
}

// NewMonitor, durdurulmuş bir Monitor oluşturur; Start ile başlar.
func NewMonitor(clk clock.Clock, t Timeouts, hooks MonitorHooks, log *zap.Logger) *Monitor {
	return &Monitor{
		clock:    clk,
		timeouts: t,
		hooks:    hooks,
		log:      log.Named("monitor"),
	}
}

// Start, önceki oturumun timer'larını iptal eder ve taze bir ACTIVE
// penceresi başlatır (login sonrası).
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.teardownLocked()

	m.gen++
	m.machine = NewMachine(m.timeouts, m.clock.Now())
	m.running = true
	m.fired = false
	m.stop = make(chan struct{})
	m.armBackstopLocked()

	ticker := m.clock.Ticker(tickInterval)
	go m.loop(m.gen, ticker, m.stop)
}

// Stop, timer'ları durdurur; Expire hook'u çağrılmaz. Tekrar çağrılabilir.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
}

// State, mevcut state ve kalan saniye. Monitor çalışmıyorsa EXPIRED.
func (m *Monitor) State() (IdleState, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.machine == nil {
		return StateExpired, 0
	}
	now := m.clock.Now()
	return m.machine.State(), m.machine.Remaining(now)
}

// Activity, kullanıcı aktivitesini bildirir (tuş, tıklama, scroll, dokunma).
// WARNING'de yoksayılır.
func (m *Monitor) Activity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	if m.machine.OnActivity(m.clock.Now()) {
		m.armBackstopLocked()
	}
}

// KeepSession, refresh token'ı sunucuda doğrular. Başarılıysa taze ACTIVE
// penceresi başlar; başarısızsa oturum kapanır ve hata döner.
func (m *Monitor) KeepSession(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return ErrNoSession
	}
	gen := m.gen
	m.mu.Unlock()

	err := m.hooks.Refresh(ctx)

	m.mu.Lock()
	if m.gen != gen || !m.running {
		m.mu.Unlock()
		return ErrNoSession
	}
	if err != nil {
		m.machine.OnLogout()
		expire := m.expireLocked(ReasonRefreshFailed)
		m.mu.Unlock()
		expire()
		return err
	}
	if !m.machine.OnKeepSession(m.clock.Now()) {
		expire := m.expireLocked(ReasonIdle)
		m.mu.Unlock()
		expire()
		return ErrSessionExpired
	}
	m.armBackstopLocked()
	change := m.changeLocked()
	m.mu.Unlock()
	change()
	return nil
}

// Logout, oturumu hemen kapatır ve Expire hook'unu (bu oturumda henüz
// çağrılmadıysa) çağırır.
func (m *Monitor) Logout(reason ExpireReason) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.machine.OnLogout()
	expire := m.expireLocked(reason)
	m.mu.Unlock()
	expire()
}

func (m *Monitor) loop(gen uint64, ticker *clock.Ticker, stop <-chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			m.tick(gen, now)
		case <-stop:
			return
		}
	}
}

// tick, zamana bağlı geçişleri uygular. Eski oturumdan kalan tick'ler (gen
// farklı) yoksayılır.
func (m *Monitor) tick(gen uint64, now time.Time) {
	m.mu.Lock()
	if m.gen != gen || !m.running {
		m.mu.Unlock()
		return
	}

	state, changed := m.machine.OnTick(now)
	switch {
	case state == StateExpired:
		expire := m.expireLocked(ReasonIdle)
		m.mu.Unlock()
		expire()
	case changed || state == StateWarning:
		change := m.changeLocked()
		m.mu.Unlock()
		change()
	default:
		m.mu.Unlock()
	}
}

// armBackstopLocked, backstop timer'ını son aktiviteye göre yeniden kurar.
func (m *Monitor) armBackstopLocked() {
	if m.backstop != nil {
		m.backstop.Stop()
	}
	gen := m.gen
	wait := m.machine.HardDeadline().Sub(m.clock.Now())
	m.backstop = m.clock.AfterFunc(wait, func() {
		m.tick(gen, m.clock.Now())
	})
}

// expireLocked, oturumu kapatır ve lock dışında çalıştırılacak hook'u döner.
func (m *Monitor) expireLocked(reason ExpireReason) func() {
	m.teardownLocked()
	if m.fired {
		return func() {}
	}
	m.fired = true
	m.log.Info("session expired", zap.String("reason", string(reason)))

	hooks := m.hooks
	return func() {
		if hooks.Change != nil {
			hooks.Change(StateExpired, 0)
		}
		if hooks.Expire != nil {
			hooks.Expire(reason)
		}
	}
}

func (m *Monitor) changeLocked() func() {
	if m.hooks.Change == nil {
		return func() {}
	}
	state, remaining := m.machine.State(), m.machine.Remaining(m.clock.Now())
	change := m.hooks.Change
	return func() { change(state, remaining) }
}

// teardownLocked, tüm timer'ları iptal eder. machine son state'ini korur.
func (m *Monitor) teardownLocked() {
	if !m.running {
		return
	}
	m.running = false
	close(m.stop)
	if m.backstop != nil {
		m.backstop.Stop()
		m.backstop = nil
	}
}
