package handlers

import (
	"context"

	"github.com/akinalp/opsportal/models"
)

// contextKey, context'te değer taşımak için kullanılan key tipi.
//
// Go'da context.Value() any tip kabul eder; string key kullanmak çakışmaya neden olabilir.
// Özel bir tip tanımlayarak namespace collision'ı önleriz.
type contextKey string

// ClaimsContextKey, auth middleware'in doğrulanmış access token claims'ini
// koyduğu key.
const ClaimsContextKey contextKey = "claims"

// WithClaims, claims'i context'e ekler.
func WithClaims(ctx context.Context, claims *models.AccessClaims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

// ClaimsFromContext, auth middleware'in eklediği claims'i döner.
func ClaimsFromContext(ctx context.Context) (*models.AccessClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*models.AccessClaims)
	return claims, ok && claims != nil
}
