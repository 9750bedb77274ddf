package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/akinalp/opsportal/models"
	"github.com/akinalp/opsportal/pkg"
)

type fakeAccountService struct {
	accounts []models.Account

	deletedBy, deleted int64
	resetID            int64
	updateReq          *models.UpdateAccountRequest
}

func (f *fakeAccountService) List(context.Context) ([]models.Account, error) {
	return f.accounts, nil
}

func (f *fakeAccountService) Create(_ context.Context, req *models.CreateAccountRequest) (*models.CreateAccountResponse, error) {
	if req.Email == "dup@x.io" {
		return nil, fmt.Errorf("%w: username or email already exists", pkg.ErrAlreadyExists)
	}
	email := req.Email
	return &models.CreateAccountResponse{
		Account:      models.Account{ID: 9, Username: models.UsernameFromEmail(req.Email), PasswordHash: "$2a$hash", Role: req.Role, Email: &email, IsActive: true},
		TempPassword: "Ab3dEf7h",
	}, nil
}

func (f *fakeAccountService) Update(_ context.Context, id int64, req *models.UpdateAccountRequest) (*models.Account, error) {
	if id == 404 {
		return nil, fmt.Errorf("%w: account not found", pkg.ErrNotFound)
	}
	f.updateReq = req
	return &models.Account{ID: id, Username: "bob", Role: *req.Role, IsActive: true}, nil
}

func (f *fakeAccountService) ResetPassword(_ context.Context, id int64) (string, error) {
	f.resetID = id
	return "Zx9kLm2p", nil
}

func (f *fakeAccountService) Delete(_ context.Context, actorID, id int64) error {
	f.deletedBy, f.deleted = actorID, id
	return nil
}

func adminRequest(method, target, body, id string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if id != "" {
		req.SetPathValue("id", id)
	}
	claims := &models.AccessClaims{AccountID: 3, Username: "admin", Role: models.RoleAdmin}
	return req.WithContext(WithClaims(req.Context(), claims))
}

func TestAdminListNeverExposesHash(t *testing.T) {
	svc := &fakeAccountService{accounts: []models.Account{
		{ID: 1, Username: "alice", PasswordHash: "$2a$secret", Role: models.RoleUser, IsActive: true},
	}}
	h := NewAdminHandler(svc, zap.NewNop())

	rec := httptest.NewRecorder()
	h.List(rec, adminRequest(http.MethodGet, "/auth/admin/users", "", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret") || strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("hash leaked: %s", rec.Body.String())
	}

	var body []map[string]any
	decodeBody(t, rec, &body)
	if len(body) != 1 || body[0]["username"] != "alice" || body[0]["is_active"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestAdminCreate(t *testing.T) {
	h := NewAdminHandler(&fakeAccountService{}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Create(rec, adminRequest(http.MethodPost, "/auth/admin/users", `{"email":"a@b.com","role":"user"}`, ""))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["username"] != "a" || body["tempPassword"] != "Ab3dEf7h" || body["email"] != "a@b.com" {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, ok := body["password_hash"]; ok {
		t.Fatalf("hash must not be serialized")
	}

	rec = httptest.NewRecorder()
	h.Create(rec, adminRequest(http.MethodPost, "/auth/admin/users", `{"email":"dup@x.io","role":"user"}`, ""))
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: status = %d", rec.Code)
	}
}

func TestAdminUpdate(t *testing.T) {
	svc := &fakeAccountService{}
	h := NewAdminHandler(svc, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Update(rec, adminRequest(http.MethodPut, "/auth/admin/users/2", `{"role":"admin"}`, "2"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.updateReq == nil || svc.updateReq.Role == nil || *svc.updateReq.Role != models.RoleAdmin || svc.updateReq.Phone != nil {
		t.Fatalf("partial request not passed through: %+v", svc.updateReq)
	}

	rec = httptest.NewRecorder()
	h.Update(rec, adminRequest(http.MethodPut, "/auth/admin/users/404", `{"role":"user"}`, "404"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing account: status = %d", rec.Code)
	}
}

func TestAdminRejectsInvalidID(t *testing.T) {
	h := NewAdminHandler(&fakeAccountService{}, zap.NewNop())

	for _, id := range []string{"abc", "0", "-4", ""} {
		rec := httptest.NewRecorder()
		h.ResetPassword(rec, adminRequest(http.MethodPost, "/auth/admin/users/x/reset-password", "", id))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("id %q: status = %d", id, rec.Code)
		}
	}
}

func TestAdminResetPassword(t *testing.T) {
	svc := &fakeAccountService{}
	h := NewAdminHandler(svc, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ResetPassword(rec, adminRequest(http.MethodPost, "/auth/admin/users/1/reset-password", "", "1"))

	var body models.ResetPasswordResponse
	decodeBody(t, rec, &body)
	if rec.Code != http.StatusOK || svc.resetID != 1 || body.TempPassword != "Zx9kLm2p" || body.Message == "" {
		t.Fatalf("unexpected reset response: %d %+v", rec.Code, body)
	}
}

func TestAdminDeletePassesActor(t *testing.T) {
	svc := &fakeAccountService{}
	h := NewAdminHandler(svc, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Delete(rec, adminRequest(http.MethodDelete, "/auth/admin/users/2", "", "2"))

	if rec.Code != http.StatusOK || svc.deletedBy != 3 || svc.deleted != 2 {
		t.Fatalf("delete: status %d, actor %d, target %d", rec.Code, svc.deletedBy, svc.deleted)
	}
}
