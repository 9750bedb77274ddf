package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/akinalp/opsportal/models"
	"github.com/akinalp/opsportal/pkg"
	"github.com/akinalp/opsportal/pkg/crypto"
	"github.com/akinalp/opsportal/pkg/metrics"
	"github.com/akinalp/opsportal/repository"
)

// AuthService interface'i; login, refresh, verify ve şifre değiştirme.
// Handler bu interface'e bağımlıdır, concrete struct'a değil.
//
// Tüm endpoint'ler stateless'tır: her çağrı Credential Store'a karşı bağımsız
// bir işlemdir. Logout server tarafında state tutmaz; handler sadece cookie'yi siler.
type AuthService interface {
	Login(ctx context.Context, req *models.LoginRequest) (*LoginResult, error)
	// Refresh, refresh token karşılığında yeni access token üretir.
	// Rol token'dan değil Credential Store'dan okunur.
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Verify(accessToken string) (*models.AccessClaims, error)
	ChangePassword(ctx context.Context, accountID int64, req *models.ChangePasswordRequest) error
}

// LoginResult, başarılı girişin çıktısı. RefreshToken cookie'ye yazılır;
// gövdeye sadece AUTH_EXPOSE_REFRESH_TOKEN açıksa girer.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Role         models.Role
	AccountID    int64
}

type authService struct {
	accounts repository.AccountRepository
	tokens   TokenService
	hasher   *crypto.Hasher
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewAuthService, constructor.
func NewAuthService(
	accounts repository.AccountRepository,
	tokens TokenService,
	hasher *crypto.Hasher,
	m *metrics.Metrics,
	log *zap.Logger,
) AuthService {
	return &authService{
		accounts: accounts,
		tokens:   tokens,
		hasher:   hasher,
		metrics:  m,
		log:      log.Named("auth"),
	}
}

// Login, kullanıcı adı + şifre ile giriş yapar.
//
// Hesap yok, hesap pasif veya şifre yanlış; üçü de aynı ErrInvalidCredentials
// döner (username enumeration koruması). Hesap yokken de bir bcrypt
// karşılaştırması yapılır; yanıt süresi hesabın varlığını ele vermez.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*LoginResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	account, err := s.accounts.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			s.hasher.CompareDummy(req.Password)
			s.metrics.LoginAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
			return nil, pkg.ErrInvalidCredentials
		}
		s.metrics.LoginAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}

	if !s.hasher.Compare(account.PasswordHash, req.Password) || !account.IsActive {
		s.metrics.LoginAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
		s.log.Info("login rejected", zap.Int64("account_id", account.ID), zap.Bool("active", account.IsActive))
		return nil, pkg.ErrInvalidCredentials
	}

	accessToken, err := s.tokens.IssueAccessToken(account)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tokens.IssueRefreshToken(account)
	if err != nil {
		return nil, err
	}

	s.metrics.LoginAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.log.Info("login succeeded", zap.Int64("account_id", account.ID), zap.String("role", string(account.Role)))

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Role:         account.Role,
		AccountID:    account.ID,
	}, nil
}

// Refresh, refresh token'ı doğrular ve güncel rol ile yeni access token üretir.
//
// Token yok → ErrUnauthorized (401). Token geçersiz/süresi dolmuş, hesap
// silinmiş veya pasif → ErrForbidden (403).
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		s.metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return "", fmt.Errorf("%w: refresh token required", pkg.ErrUnauthorized)
	}

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeForbidden).Inc()
		return "", err
	}

	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			s.metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeForbidden).Inc()
			return "", fmt.Errorf("%w: account no longer exists", pkg.ErrForbidden)
		}
		s.metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeError).Inc()
		return "", err
	}
	if !account.IsActive {
		s.metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeForbidden).Inc()
		return "", fmt.Errorf("%w: account is disabled", pkg.ErrForbidden)
	}

	accessToken, err := s.tokens.IssueAccessToken(account)
	if err != nil {
		s.metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeError).Inc()
		return "", err
	}

	s.metrics.TokenRefreshes.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return accessToken, nil
}

// Verify, access token doğrulama passthrough'u.
func (s *authService) Verify(accessToken string) (*models.AccessClaims, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: access token required", pkg.ErrUnauthorized)
	}
	return s.tokens.VerifyAccessToken(accessToken)
}

// ChangePassword, mevcut şifre doğrulandıktan sonra yeni şifreyi yeni bir
// salt ile hash'leyip kaydeder.
func (s *authService) ChangePassword(ctx context.Context, accountID int64, req *models.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	if !s.hasher.Compare(account.PasswordHash, req.CurrentPassword) {
		return fmt.Errorf("%w: incorrect current password", pkg.ErrInvalidCredentials)
	}

	newHash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	if err := s.accounts.UpdatePassword(ctx, accountID, newHash); err != nil {
		return err
	}

	s.log.Info("password changed", zap.Int64("account_id", accountID))
	return nil
}
