package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/akinalp/opsportal/models"
	"github.com/akinalp/opsportal/pkg"
)

// Options, Client ayarları. BaseURL dışındakiler opsiyonel.
type Options struct {
	BaseURL string
	// HTTPTransport, alttaki transport. nil → http.DefaultTransport.
	HTTPTransport http.RoundTripper
	Clock         clock.Clock
	Timeouts      *Timeouts
	Logger        *zap.Logger
	// OnLogout, oturum herhangi bir sebeple kapandığında çağrılır.
	OnLogout func(reason ExpireReason)
}

// Client, Ops Portal API client'ı. Access token bellekte, refresh token cookie
// jar'da tutulur. Tüm metotlar goroutine-safe'tir.
type Client struct {
	baseURL *url.URL
	jar     http.CookieJar
	// api: korumalı endpoint'ler (refresh interceptor'dan geçer).
	api *http.Client
	// raw: login/refresh/logout (interceptor'sız, aynı jar).
	raw *http.Client

	session  sessionStore
	monitor  *Monitor
	clock    clock.Clock
	onLogout func(reason ExpireReason)
	log      *zap.Logger

	eventsMu     sync.Mutex
	cancelEvents context.CancelFunc
}

// New, Client oluşturur.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	timeouts := DefaultTimeouts()
	if opts.Timeouts != nil {
		timeouts = *opts.Timeouts
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	baseTransport := opts.HTTPTransport
	if baseTransport == nil {
		baseTransport = http.DefaultTransport
	}

	c := &Client{
		baseURL:  base,
		jar:      jar,
		raw:      &http.Client{Transport: baseTransport, Jar: jar},
		clock:    clk,
		onLogout: opts.OnLogout,
		log:      log.Named("client"),
	}

	c.api = &http.Client{
		Jar: jar,
		Transport: &Transport{
			Base:  baseTransport,
			Token: c.session.accessToken,
			Refresh: func(ctx context.Context) (string, error) {
				return c.Refresh(ctx)
			},
			OnRefreshFailure: func(error) {
				c.expire(c.session.generation(), ReasonRefreshFailed)
			},
			Log: c.log,
		},
	}

	c.monitor = NewMonitor(clk, timeouts, MonitorHooks{
		Refresh: func(ctx context.Context) error {
			_, err := c.Refresh(ctx)
			return err
		},
		Expire: c.onMonitorExpire,
		Change: c.onMonitorChange,
	}, log)

	return c, nil
}

// Session, aktif oturumun kopyasını döner.
func (c *Client) Session() (Session, bool) {
	return c.session.get()
}

// Login, kullanıcı adı + şifre ile giriş yapar. Başarılıysa yeni bir oturum
// ve taze bir idle penceresi başlar.
//
// Hatalı bilgiler pkg.ErrInvalidCredentials, limit aşımı pkg.ErrRateLimited
// (APIError.RetryAfter dolu) ile eşleşir.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	var resp models.LoginResponse
	err := c.doJSON(ctx, c.raw, http.MethodPost, "/auth/login",
		models.LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.Status == http.StatusUnauthorized {
			apiErr.sentinel = pkg.ErrInvalidCredentials
		}
		return Session{}, err
	}

	// Önceki oturum varsa (ör: başka kullanıcıyla yeniden giriş) kapatılır.
	c.stopEvents()

	sess := Session{
		Username:    username,
		Role:        resp.Role,
		AccessToken: resp.AccessToken,
		State:       StateActive,
	}
	c.session.set(sess)
	c.monitor.Start()

	c.log.Info("logged in", zap.String("username", username), zap.String("role", string(resp.Role)))
	return sess, nil
}

// Refresh, cookie'deki refresh token ile yeni access token alır ve oturuma yazar.
// Sunucu rolü her refresh'te store'dan yeniden okur; yeni token'daki rol
// Session.Role'e de yansıtılır.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	gen := c.session.generation()
	if gen == 0 {
		return "", ErrNoSession
	}

	var resp models.RefreshResponse
	if err := c.doJSON(ctx, c.raw, http.MethodPost, "/auth/refresh", nil, &resp); err != nil {
		return "", err
	}

	role, hasRole := roleFromToken(resp.AccessToken)
	if !c.session.update(gen, func(s *Session) {
		s.AccessToken = resp.AccessToken
		if hasRole {
			s.Role = role
		}
	}) {
		return "", ErrNoSession
	}
	return resp.AccessToken, nil
}

// roleFromToken, access token'daki role claim'ini okur. İmza doğrulanmaz,
// doğrulama sunucunun işi.
func roleFromToken(token string) (models.Role, bool) {
	var claims models.AccessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return "", false
	}
	return claims.Role, claims.Role != ""
}

// Logout, oturumu kapatır ve sunucudan refresh cookie'sinin silinmesini ister.
// Yerel oturum her durumda temizlenir; zaten kapalıysa no-op'tur.
func (c *Client) Logout(ctx context.Context) error {
	gen := c.session.generation()
	if gen == 0 {
		return nil
	}
	c.monitor.Stop()
	c.expire(gen, ReasonLogout)
	return c.serverLogout(ctx)
}

// Activity, kullanıcı aktivitesini Monitor'e iletir.
func (c *Client) Activity() {
	c.monitor.Activity()
}

// KeepSession, uyarı sırasında "oturumu sürdür" seçimi. Refresh token sunucuda
// doğrulanır; başarısızsa oturum kapanır.
func (c *Client) KeepSession(ctx context.Context) error {
	return c.monitor.KeepSession(ctx)
}

// Verify, access token'ın claims'ini sunucudan alır.
func (c *Client) Verify(ctx context.Context) (*models.AccessClaims, error) {
	var resp models.VerifyResponse
	if err := c.doAPI(ctx, http.MethodGet, "/auth/verify", nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// ChangePassword, kendi şifresini değiştirir.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	return c.doAPI(ctx, http.MethodPost, "/auth/change-password",
		models.ChangePasswordRequest{CurrentPassword: current, NewPassword: next}, nil)
}

// ListAccounts, tüm hesapları döner (admin).
func (c *Client) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if err := c.doAPI(ctx, http.MethodGet, "/auth/admin/users", nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// CreateAccount, yeni hesap oluşturur (admin).
func (c *Client) CreateAccount(ctx context.Context, req *models.CreateAccountRequest) (*models.CreateAccountResponse, error) {
	var resp models.CreateAccountResponse
	if err := c.doAPI(ctx, http.MethodPost, "/auth/admin/users", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateAccount, hesabı kısmi olarak günceller (admin).
func (c *Client) UpdateAccount(ctx context.Context, id int64, req *models.UpdateAccountRequest) (*models.Account, error) {
	var account models.Account
	if err := c.doAPI(ctx, http.MethodPut, accountPath(id), req, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// ResetPassword, hesabın şifresini sıfırlar ve geçici şifreyi döner (admin).
func (c *Client) ResetPassword(ctx context.Context, id int64) (string, error) {
	var resp models.ResetPasswordResponse
	if err := c.doAPI(ctx, http.MethodPost, accountPath(id)+"/reset-password", nil, &resp); err != nil {
		return "", err
	}
	return resp.TempPassword, nil
}

// DeleteAccount, hesabı siler (admin).
func (c *Client) DeleteAccount(ctx context.Context, id int64) error {
	return c.doAPI(ctx, http.MethodDelete, accountPath(id), nil, nil)
}

func accountPath(id int64) string {
	return "/auth/admin/users/" + strconv.FormatInt(id, 10)
}

// expire, gen'e ait oturumu kapatır. Aynı oturum için ikinci çağrı no-op'tur.
func (c *Client) expire(gen uint64, reason ExpireReason) {
	if gen == 0 || !c.session.clear(gen) {
		return
	}
	c.monitor.Stop()
	c.stopEvents()

	c.log.Info("session ended", zap.String("reason", string(reason)))
	if c.onLogout != nil {
		c.onLogout(reason)
	}
}

// onMonitorExpire, Monitor oturumu kapattığında (idle, keep-session hatası)
// çağrılır. Sunucudaki cookie de silinir.
func (c *Client) onMonitorExpire(reason ExpireReason) {
	gen := c.session.generation()
	if gen == 0 {
		return
	}
	c.expire(gen, reason)
	if err := c.serverLogout(context.Background()); err != nil {
		c.log.Debug("server logout failed", zap.Error(err))
	}
}

func (c *Client) onMonitorChange(state IdleState, remaining int) {
	c.session.update(c.session.generation(), func(s *Session) {
		s.State = state
		s.Remaining = remaining
	})
}

func (c *Client) serverLogout(ctx context.Context) error {
	return c.doJSON(ctx, c.raw, http.MethodPost, "/auth/logout", nil, nil)
}

// doAPI, korumalı bir endpoint'i refresh interceptor üzerinden çağırır.
func (c *Client) doAPI(ctx context.Context, method, path string, in, out any) error {
	if c.session.generation() == 0 {
		return ErrNoSession
	}
	return c.doJSON(ctx, c.api, method, path, in, out)
}

// doJSON, in'i JSON olarak gönderir, 2xx yanıtı out'a decode eder.
// Gövde bytes.Reader olduğundan http.NewRequest GetBody'yi doldurur; retry
// gövdeyi yeniden okuyabilir.
func (c *Client) doJSON(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp)
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
