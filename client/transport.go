package client

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/akinalp/opsportal/pkg"
)

// retriedKey, bir isteğin zaten refresh + retry'dan geçtiğini işaretler.
type retriedKey struct{}

func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

func isRetried(ctx context.Context) bool {
	retried, _ := ctx.Value(retriedKey{}).(bool)
	return retried
}

// Transport, her isteğe güncel access token'ı ekleyen ve token reddedildiğinde
// tek seferlik refresh + retry yapan http.RoundTripper.
//
// Token reddi: 401 ya da WWW-Authenticate: Bearer error="invalid_token"
// taşıyan 403 (sunucu süresi dolmuş token'a böyle yanıt verir). Bu header'sız
// 403 bir yetki reddidir (ör: admin rolü gerekli) ve refresh tetiklemez.
//
// Kurallar:
//   - Bir istek için EN FAZLA bir refresh yapılır; retry edilen istek tekrar
//     reddedilirse yanıt olduğu gibi döner.
//   - Refresh başarısızsa OnRefreshFailure çağrılır (oturum kapatılır) ve
//     orijinal red yanıtı döner.
//   - Aynı anda reddedilen istekler tek bir refresh'i paylaşır (singleflight).
type Transport struct {
	// Base, asıl isteği yapan transport. nil → http.DefaultTransport.
	Base http.RoundTripper
	// Token, güncel access token'ı döner. "" ise header eklenmez.
	Token func() string
	// Refresh, refresh token ile yeni access token alır.
	Refresh func(ctx context.Context) (string, error)
	// OnRefreshFailure, refresh başarısız olduğunda çağrılır.
	OnRefreshFailure func(err error)

	Log *zap.Logger

	group singleflight.Group
}

// RoundTrip, http.RoundTripper implementasyonu. Orijinal request değiştirilmez.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.Token()
	resp, err := t.base().RoundTrip(withBearer(req.Context(), req, token))
	if err != nil || !tokenRejected(resp) || isRetried(req.Context()) {
		return resp, err
	}

	// Gövde tekrar okunamıyorsa retry mümkün değil.
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	newToken, err := t.refresh(req.Context(), token)
	if err != nil && req.Context().Err() != nil {
		// Caller vazgeçti; bu bir refresh hatası değil.
		resp.Body.Close()
		return nil, req.Context().Err()
	}
	if err != nil {
		t.logger().Info("token refresh failed, ending session", zap.Error(err))
		if t.OnRefreshFailure != nil {
			t.OnRefreshFailure(err)
		}
		return resp, nil
	}

	retry := withBearer(markRetried(req.Context()), req, newToken)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		retry.Body = body
	}

	// Orijinal red yanıtı artık kullanılmayacak.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	resp.Body.Close()

	return t.base().RoundTrip(retry)
}

// tokenRejected, yanıtın access token'ı reddettiğini söyler.
func tokenRejected(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return true
	case http.StatusForbidden:
		return pkg.IsInvalidTokenChallenge(resp.Header)
	}
	return false
}

// refresh, başka bir istek zaten yeni token aldıysa onu kullanır; değilse
// tek bir refresh exchange'i başlatır ya da süren exchange'e katılır.
func (t *Transport) refresh(ctx context.Context, failedToken string) (string, error) {
	if current := t.Token(); current != "" && current != failedToken {
		return current, nil
	}

	ch := t.group.DoChan("refresh", func() (any, error) {
		return t.Refresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) logger() *zap.Logger {
	if t.Log != nil {
		return t.Log
	}
	return zap.NewNop()
}

// withBearer, req'in ctx ile bir kopyasını oluşturur ve Authorization header'ını
// token ile değiştirir.
func withBearer(ctx context.Context, req *http.Request, token string) *http.Request {
	r := req.Clone(ctx)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	} else {
		r.Header.Del("Authorization")
	}
	return r
}
