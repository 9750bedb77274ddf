// Package repository, veritabanı erişim katmanını tanımlar.
//
// Service katmanı doğrudan SQL yazmaz; repository interface'i üzerinden
// çalışır. Test'te gerçek (in-memory SQLite) implementasyon kullanılır,
// production'da SQLite veya PostgreSQL.
package repository

import (
	"context"

	"github.com/akinalp/opsportal/models"
)

// AccountRepository, Credential Store işlemleri.
//
// Her method tek bir SQL statement'tır; satır bazında atomiktir. Create'in
// username/email kontrolü ile INSERT'i birlikte atomik olmalıysa çağıran
// taraf repository'yi database.WithTx içinde *sql.Tx ile kurar.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	// ExistsByUsernameOrEmail, username VEYA email'i kullanan bir hesap var mı?
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	// List, tüm hesapları id sırasıyla döner.
	List(ctx context.Context) ([]models.Account, error)
	// Update, nil olmayan field'ları tek statement'ta (COALESCE) günceller
	// ve güncel satırı döner.
	Update(ctx context.Context, id int64, req *models.UpdateAccountRequest) (*models.Account, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}
