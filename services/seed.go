package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/akinalp/opsportal/models"
	"github.com/akinalp/opsportal/pkg/crypto"
	"github.com/akinalp/opsportal/repository"
)

// seedAccount, boş veritabanına eklenen demo hesabı.
type seedAccount struct {
	username, password, role     string
	email, fullName, designation string
	department                   string
}

// defaultAccounts, her rolden bir demo hesabı. Sadece SEED_DEFAULT_ACCOUNTS
// açıkken (varsayılan olarak yalnızca development'ta) eklenir.
var defaultAccounts = []seedAccount{
	{"alice", "user123", "user", "alice@devops.com", "Alice Smith", "Junior Dev", "Engineering"},
	{"bob", "devops123", "devops", "bob@devops.com", "Bob Jones", "DevOps Engineer", "Operations"},
	{"admin", "admin123", "admin", "admin@devops.com", "Admin User", "System Administrator", "IT"},
}

// SeedDefaultAccounts, Credential Store boşsa demo hesaplarını ekler.
// Store'da en az bir hesap varsa hiçbir şey yapmaz; tekrar çalıştırmak güvenlidir.
func SeedDefaultAccounts(ctx context.Context, accounts repository.AccountRepository, hasher *crypto.Hasher, log *zap.Logger) error {
	count, err := accounts.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, seed := range defaultAccounts {
		hash, err := hasher.Hash(seed.password)
		if err != nil {
			return err
		}

		account := &models.Account{
			Username:     seed.username,
			PasswordHash: hash,
			Role:         models.Role(seed.role),
			Email:        &seed.email,
			FullName:     &seed.fullName,
			Designation:  &seed.designation,
			Department:   &seed.department,
			IsActive:     true,
		}
		if err := accounts.Create(ctx, account); err != nil {
			return fmt.Errorf("failed to seed account %s: %w", seed.username, err)
		}
	}

	log.Info("seeded default accounts", zap.Int("count", len(defaultAccounts)))
	return nil
}
