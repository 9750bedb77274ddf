package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/opsportal/database"
	"github.com/akinalp/opsportal/models"
	"github.com/akinalp/opsportal/pkg"
	"github.com/akinalp/opsportal/pkg/crypto"
	"github.com/akinalp/opsportal/pkg/email"
	"github.com/akinalp/opsportal/pkg/metrics"
	"github.com/akinalp/opsportal/repository"
	"github.com/akinalp/opsportal/ws"
)

// emailTimeout, tek bir bildirim email'inin gönderim süresi sınırı.
const emailTimeout = 10 * time.Second

// Admin aksiyon etiketleri (metrics.AdminActions).
const (
	actionCreate        = "create"
	actionUpdate        = "update"
	actionResetPassword = "reset_password"
	actionDelete        = "delete"
)

// AccountService, admin hesap yönetimi. Rol kontrolü (role=admin) middleware'de
// yapılır; buradaki method'lar çağıranın admin olduğunu varsayar.
type AccountService interface {
	List(ctx context.Context) ([]models.Account, error)
	// Create, email'in local-part'ından username türetir. Şifre verilmemişse
	// geçici şifre üretir ve yanıtta bir kez döner.
	Create(ctx context.Context, req *models.CreateAccountRequest) (*models.CreateAccountResponse, error)
	Update(ctx context.Context, id int64, req *models.UpdateAccountRequest) (*models.Account, error)
	// ResetPassword, yeni geçici şifre üretir, hash'ini yazar ve şifreyi döner.
	ResetPassword(ctx context.Context, id int64) (string, error)
	// Delete, hesabı siler. Admin kendi hesabını silemez.
	Delete(ctx context.Context, actorID, id int64) error
}

type accountService struct {
	db       *database.DB // Create'te WithTx için
	accounts repository.AccountRepository
	hasher   *crypto.Hasher
	hub      ws.EventPublisher
	notifier email.Notifier
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewAccountService, constructor.
//
// db: Create'te username/email kontrolü ile INSERT'in aynı transaction'da
// çalışması için doğrudan *database.DB gerekir.
func NewAccountService(
	db *database.DB,
	accounts repository.AccountRepository,
	hasher *crypto.Hasher,
	hub ws.EventPublisher,
	notifier email.Notifier,
	m *metrics.Metrics,
	log *zap.Logger,
) AccountService {
	return &accountService{
		db:       db,
		accounts: accounts,
		hasher:   hasher,
		hub:      hub,
		notifier: notifier,
		metrics:  m,
		log:      log.Named("admin"),
	}
}

func (s *accountService) List(ctx context.Context) ([]models.Account, error) {
	return s.accounts.List(ctx)
}

func (s *accountService) Create(ctx context.Context, req *models.CreateAccountRequest) (*models.CreateAccountResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	username := models.UsernameFromEmail(req.Email)

	password := req.Password
	var tempPassword string
	if password == "" {
		generated, err := crypto.GenerateTempPassword()
		if err != nil {
			return nil, err
		}
		tempPassword, password = generated, generated
	}

	// Hash transaction dışında; bcrypt yavaştır, SQLite tek yazar kabul eder.
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	emailAddr := req.Email
	account := &models.Account{
		Username:     username,
		PasswordHash: hash,
		Role:         req.Role,
		Email:        &emailAddr,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Designation:  req.Designation,
		Department:   req.Department,
		IsActive:     true,
	}

	err = database.WithTx(ctx, s.db.Conn, func(tx *sql.Tx) error {
		repo := repository.NewSQLAccountRepo(tx, s.db.Dialect)

		exists, err := repo.ExistsByUsernameOrEmail(ctx, username, emailAddr)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: username or email already exists", pkg.ErrAlreadyExists)
		}
		return repo.Create(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AdminActions.WithLabelValues(actionCreate).Inc()
	s.log.Info("account created",
		zap.Int64("account_id", account.ID),
		zap.String("username", account.Username),
		zap.String("role", string(account.Role)),
		zap.Bool("generated_password", tempPassword != ""))

	s.notify(account, s.notifier.SendAccountCreated)

	return &models.CreateAccountResponse{Account: *account, TempPassword: tempPassword}, nil
}

func (s *accountService) Update(ctx context.Context, id int64, req *models.UpdateAccountRequest) (*models.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	account, err := s.accounts.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.metrics.AdminActions.WithLabelValues(actionUpdate).Inc()
	s.log.Info("account updated", zap.Int64("account_id", id))

	// Client rol değişikliğinde token yeniler, pasifleştirmede oturumu kapatır.
	s.hub.BroadcastToAccount(id, ws.Event{Op: ws.OpAccountUpdated, Data: account})
	if !account.IsActive {
		s.hub.DisconnectAccount(id)
	}

	return account, nil
}

func (s *accountService) ResetPassword(ctx context.Context, id int64) (string, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	tempPassword, err := crypto.GenerateTempPassword()
	if err != nil {
		return "", err
	}
	hash, err := s.hasher.Hash(tempPassword)
	if err != nil {
		return "", err
	}

	if err := s.accounts.UpdatePassword(ctx, id, hash); err != nil {
		return "", err
	}

	s.metrics.AdminActions.WithLabelValues(actionResetPassword).Inc()
	// Geçici şifre log'a YAZILMAZ.
	s.log.Info("password reset", zap.Int64("account_id", id))

	s.hub.BroadcastToAccount(id, ws.Event{Op: ws.OpPasswordReset, Data: ws.AccountRefData{AccountID: id}})
	s.hub.DisconnectAccount(id)
	s.notify(account, s.notifier.SendPasswordReset)

	return tempPassword, nil
}

func (s *accountService) Delete(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return fmt.Errorf("%w: you cannot delete your own account", pkg.ErrBadRequest)
	}

	if err := s.accounts.Delete(ctx, id); err != nil {
		return err
	}

	s.metrics.AdminActions.WithLabelValues(actionDelete).Inc()
	s.log.Info("account deleted", zap.Int64("account_id", id), zap.Int64("actor_id", actorID))

	s.hub.BroadcastToAccount(id, ws.Event{Op: ws.OpAccountDeleted, Data: ws.AccountRefData{AccountID: id}})
	s.hub.DisconnectAccount(id)
	return nil
}

// notify, bildirim email'ini arka planda gönderir. Email hatası admin
// işlemini başarısız yapmaz, sadece loglanır.
func (s *accountService) notify(account *models.Account, send func(ctx context.Context, toEmail, username string) error) {
	if account.Email == nil || *account.Email == "" {
		return
	}
	toEmail, username, accountID := *account.Email, account.Username, account.ID

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
		defer cancel()
		if err := send(ctx, toEmail, username); err != nil {
			s.log.Warn("failed to send account notice", zap.Int64("account_id", accountID), zap.Error(err))
		}
	}()
}
