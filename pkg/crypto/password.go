// Package crypto: şifre hash'leme ve geçici şifre üretimi.
//
// bcrypt her hash'te rastgele salt üretir; aynı şifrenin iki hash'i farklıdır.
// Plaintext şifreler ne loglanır ne saklanır.
package crypto

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// TempPasswordLength, admin tarafından üretilen geçici şifrelerin uzunluğu.
const TempPasswordLength = 8

// tempPasswordAlphabet, karıştırılabilen karakterler (0/o, 1/l/i) hariç.
const tempPasswordAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Hasher, bcrypt ile şifre hash'ler ve doğrular.
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewHasher, verilen cost ile Hasher oluşturur. Cost [MinCost, MaxCost]
// aralığına çekilir; 0 veya negatif → bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	cost = max(bcrypt.MinCost, min(cost, bcrypt.MaxCost))
	return &Hasher{cost: cost}
}

// Cost, kullanılan bcrypt cost değeri.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash, şifrenin bcrypt hash'ini döner (her çağrıda yeni salt).
func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

// Compare, şifre hash ile eşleşiyorsa true döner. Bozuk hash de false'tur.
func (h *Hasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CompareDummy, var olmayan bir hesap için aynı maliyette bir karşılaştırma
// yapar. Login'de "kullanıcı yok" ve "şifre yanlış" yanıt süreleri ayırt
// edilemesin diye kullanılır. Sonuç her zaman false'tur.
func (h *Hasher) CompareDummy(password string) bool {
	h.dummyOnce.Do(func() {
		// Hata durumunda dummyHash nil kalır; Compare yine false döner.
		h.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
	return false
}

// GenerateTempPassword, crypto/rand ile 8 karakterlik geçici şifre üretir.
func GenerateTempPassword() (string, error) {
	alphabetLen := big.NewInt(int64(len(tempPasswordAlphabet)))

	out := make([]byte, TempPasswordLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate temporary password: %w", err)
		}
		out[i] = tempPasswordAlphabet[n.Int64()]
	}
	return string(out), nil
}
