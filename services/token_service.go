// Package services, business logic katmanını barındırır.
//
// Handler (HTTP) ile Repository (DB) arasında oturan katmandır. Service ASLA
// http.Request/Response bilmez ve doğrudan SQL çalıştırmaz; domain modelleri
// alır/verir, Repository interface'i kullanır.
package services

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/akinalp/opsportal/models"
	"github.com/akinalp/opsportal/pkg"
)

// TokenService, access ve refresh token'ları üretir ve doğrular (Token Issuer).
//
// İki ayrı secret kullanılır: access secret sızsa bile refresh token
// üretilemez, tersi de geçerli. Token'lar server'da saklanmaz; geçerlilik
// tamamen imza + expiry'dir.
type TokenService interface {
	IssueAccessToken(account *models.Account) (string, error)
	IssueRefreshToken(account *models.Account) (string, error)
	// VerifyAccessToken, imza, algoritma, issuer ve expiry kontrolü yapar.
	// Her başarısızlık aynı pkg.ErrInvalidToken'dır.
	VerifyAccessToken(token string) (*models.AccessClaims, error)
	VerifyRefreshToken(token string) (*models.RefreshClaims, error)
	// AccessTTL, access token ömrü (client'lar için bilgi).
	AccessTTL() time.Duration
}

// TokenConfig, TokenService ayarları. config.JWTConfig'ten doldurulur.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

type tokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	clock         clock.Clock
}

// NewTokenService, constructor. clk testlerde clock.NewMock() olur.
func NewTokenService(cfg TokenConfig, clk clock.Clock) TokenService {
	return &tokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		clock:         clk,
	}
}

func (s *tokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// IssueAccessToken, id + username + role içeren kısa ömürlü token üretir.
func (s *tokenService) IssueAccessToken(account *models.Account) (string, error) {
	claims := &models.AccessClaims{
		AccountID:        account.ID,
		Username:         account.Username,
		Role:             account.Role,
		RegisteredClaims: s.registered(s.accessTTL),
	}
	return s.sign(claims, s.accessSecret, "access")
}

// IssueRefreshToken, sadece hesap ID'si içeren uzun ömürlü token üretir.
func (s *tokenService) IssueRefreshToken(account *models.Account) (string, error) {
	claims := &models.RefreshClaims{
		AccountID:        account.ID,
		RegisteredClaims: s.registered(s.refreshTTL),
	}
	return s.sign(claims, s.refreshSecret, "refresh")
}

func (s *tokenService) VerifyAccessToken(token string) (*models.AccessClaims, error) {
	claims := &models.AccessClaims{}
	if err := s.verify(token, s.accessSecret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *tokenService) VerifyRefreshToken(token string) (*models.RefreshClaims, error) {
	claims := &models.RefreshClaims{}
	if err := s.verify(token, s.refreshSecret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// registered, ortak claim'leri doldurur. jti her token'ı benzersiz yapar;
// aynı saniyede üretilen iki token bile farklıdır.
func (s *tokenService) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := s.clock.Now()
	return jwt.RegisteredClaims{
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

func (s *tokenService) sign(claims jwt.Claims, secret []byte, kind string) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

// verify, token'ı verilen secret ile doğrular ve claims'e decode eder.
//
// Sadece HS256 kabul edilir ("alg: none" ve algoritma karışıklığı saldırıları
// reddedilir). İmza hatası, format hatası ve expiry aynı sonucu verir.
func (s *tokenService) verify(token string, secret []byte, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil || !parsed.Valid {
		return pkg.ErrInvalidToken
	}
	return nil
}
