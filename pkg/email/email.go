// Package email, hesap bildirim email'leri için soyutlama katmanı sağlar.
//
// Notifier interface'i ile gönderim detayları soyutlanır (Dependency Inversion).
// Implementasyon Resend API kullanır; ayarlar eksikse NewNoopNotifier kullanılır.
//
// Bildirimler ASLA şifre içermez. Geçici şifre sadece admin'e, oluşturma/sıfırlama
// yanıtında bir kez gösterilir; email sadece "hesabınızda değişiklik oldu" der.
package email

import (
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v3"
)

// Notifier, hesap olayları için email bildirimi gönderir.
type Notifier interface {
	// SendAccountCreated, yeni hesabın sahibine hesabın açıldığını bildirir.
	SendAccountCreated(ctx context.Context, toEmail, username string) error
	// SendPasswordReset, şifrenin bir admin tarafından sıfırlandığını bildirir.
	SendPasswordReset(ctx context.Context, toEmail, username string) error
}

// resendNotifier, Resend API ile email gönderen Notifier implementasyonu.
type resendNotifier struct {
	client    *resend.Client
	fromEmail string
	appURL    string
}

// NewResendNotifier, Resend client'ı ile Notifier oluşturur.
//
// apiKey: Resend API key (re_xxxxxxxx).
// fromEmail: Resend'de doğrulanmış domain altındaki gönderici adresi.
// appURL: portal'ın public URL'i; email'deki giriş linki.
func NewResendNotifier(apiKey, fromEmail, appURL string) Notifier {
	return &resendNotifier{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		appURL:    appURL,
	}
}

func (s *resendNotifier) SendAccountCreated(ctx context.Context, toEmail, username string) error {
	msg := accountCreatedMessage(username, s.appURL)
	return s.send(ctx, toEmail, msg)
}

func (s *resendNotifier) SendPasswordReset(ctx context.Context, toEmail, username string) error {
	msg := passwordResetMessage(username, s.appURL)
	return s.send(ctx, toEmail, msg)
}

func (s *resendNotifier) send(ctx context.Context, toEmail string, msg message) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("Ops Portal <%s>", s.fromEmail),
		To:      []string{toEmail},
		Subject: msg.subject,
		Html:    msg.html,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send %q email: %w", msg.subject, err)
	}
	return nil
}

// noopNotifier, email ayarları yokken kullanılır.
type noopNotifier struct{}

// NewNoopNotifier, hiçbir şey göndermeyen Notifier döner.
func NewNoopNotifier() Notifier {
	return noopNotifier{}
}

func (noopNotifier) SendAccountCreated(context.Context, string, string) error { return nil }
func (noopNotifier) SendPasswordReset(context.Context, string, string) error  { return nil }

// message, render edilmiş email.
type message struct {
	subject string
	html    string
}

func accountCreatedMessage(username, appURL string) message {
	return message{
		subject: "Your Ops Portal account",
		html: render(
			"Account created",
			fmt.Sprintf("An administrator created the account <b>%s</b> for you. "+
				"Your administrator will share your temporary password through a separate channel. "+
				"Please change it after your first sign-in.", html.EscapeString(username)),
			appURL,
		),
	}
}

func passwordResetMessage(username, appURL string) message {
	return message{
		subject: "Your Ops Portal password was reset",
		html: render(
			"Password reset",
			fmt.Sprintf("An administrator reset the password of <b>%s</b>. "+
				"Ask your administrator for the new temporary password. "+
				"If you did not expect this, contact your administrator immediately.", html.EscapeString(username)),
			appURL,
		),
	}
}

// render, ortak HTML iskeletini doldurur. body zaten escape edilmiş olmalı.
func render(title, body, appURL string) string {
	link := html.EscapeString(appURL)
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background-color:#0f172a;font-family:Arial,Helvetica,sans-serif;">
  <table width="100%%" cellpadding="0" cellspacing="0" style="padding:40px 0;">
    <tr>
      <td align="center">
        <table width="480" cellpadding="0" cellspacing="0" style="background-color:#1e293b;border-radius:8px;padding:40px;">
          <tr>
            <td>
              <h1 style="color:#e2e8f0;font-size:20px;margin:0 0 24px 0;">%s</h1>
              <p style="color:#94a3b8;font-size:15px;line-height:1.6;margin:0 0 24px 0;">%s</p>
              <a href="%s" style="color:#6366f1;font-size:15px;">Open Ops Portal</a>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`, html.EscapeString(title), body, link)
}
