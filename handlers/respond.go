package handlers

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/akinalp/opsportal/pkg"
)

// maxBodyBytes, JSON request gövdesi üst sınırı.
const maxBodyBytes = 1 << 20

// respondError, domain error'ı HTTP yanıtına çevirir. 5xx'ler loglanır;
// client sadece sabit "Internal Server Error" mesajını görür.
func respondError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	if pkg.StatusOf(err) >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err))
	}
	pkg.Error(w, err)
}

// decodeJSON, gövdeyi v'ye parse eder. Hata durumunda 400 yazar ve false döner.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// decodeLenientJSON, gövdeyi v'ye parse etmeyi dener ve hata yazmaz. Boş ya da
// bozuk gövde false döner; v sıfır değerinde kalır.
func decodeLenientJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v) == nil
}
