package mailer

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/James-Kabz/CLIENT-PORTAL/pkg/config"
)

// Mailer sends the portal's transactional emails. Verification and reset
// mails carry a single-use token link; the welcome mail is informational.
type Mailer interface {
	SendVerification(ctx context.Context, to, name, token string) error
	SendPasswordReset(ctx context.Context, to, name, token string) error
	SendWelcome(ctx context.Context, to, name string) error
}

type SMTPMailer struct {
	dialer  *gomail.Dialer
	from    string
	baseURL string
}

func NewSMTPMailer(cfg config.SMTPConfig, baseURL string) *SMTPMailer {
	return &SMTPMailer{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		baseURL: baseURL,
	}
}

func (m *SMTPMailer) SendVerification(ctx context.Context, to, name, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", m.baseURL, token)
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Thanks for signing up. Please confirm your email address by clicking the link below:</p>
<p><a href="%s">Verify Email</a></p>
<p>This link expires in 24 hours. If you did not create an account, you can ignore this email.</p>`, name, link)

	return m.send(ctx, to, "Verify your email address", body)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, name, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.baseURL, token)
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>We received a request to reset your password. Click the link below to choose a new one:</p>
<p><a href="%s">Reset Password</a></p>
<p>This link expires in 1 hour. If you did not request a reset, you can ignore this email.</p>`, name, link)

	return m.send(ctx, to, "Reset your password", body)
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, to, name string) error {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your email has been verified and your account is ready.</p>
<p><a href="%s/login">Sign in</a> to get started.</p>`, name, m.baseURL)

	return m.send(ctx, to, "Welcome to Client Portal", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending %q to %s: %w", subject, to, err)
	}
	return nil
}

var _ Mailer = (*SMTPMailer)(nil)
