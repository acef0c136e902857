package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"
)

// SMTPMailer sends transactional email through a plain SMTP relay.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPMailer creates an SMTPMailer. Username and password are optional
// for relays that accept unauthenticated local connections.
func NewSMTPMailer(addr, from, username, password string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		host := addr
		if i := strings.IndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{addr: addr, from: from, auth: auth}
}

// SendVerificationCode mails the six digit registration code.
func (m *SMTPMailer) SendVerificationCode(ctx context.Context, to, code string) error {
	subject := "Your Fakturly verification code"
	body := fmt.Sprintf("Your verification code is %s. It expires in a few minutes.", code)
	return m.send(to, subject, body)
}

// SendPasswordReset mails the password reset link.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	subject := "Reset your Fakturly password"
	body := fmt.Sprintf("Open this link to choose a new password:\r\n\r\n%s\r\n\r\nIf you did not request this, ignore this email.", resetURL)
	return m.send(to, subject, body)
}

// SendSubscriptionActivated mails the premium activation notice.
func (m *SMTPMailer) SendSubscriptionActivated(ctx context.Context, to string, expiresAt time.Time) error {
	subject := "Fakturly Premium is active"
	body := fmt.Sprintf("Thanks for upgrading. Your premium plan is active until %s.", expiresAt.Format("2 January 2006"))
	return m.send(to, subject, body)
}

// SendSubscriptionExpired mails the downgrade notice.
func (m *SMTPMailer) SendSubscriptionExpired(ctx context.Context, to string) error {
	subject := "Your Fakturly Premium has expired"
	body := "Your premium plan has expired and your account is back on the free plan. Upgrade again any time from the billing page."
	return m.send(to, subject, body)
}

func (m *SMTPMailer) send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")
	return smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg))
}

// LogMailer writes mail to the log instead of sending it. Used in
// development when no SMTP relay is configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerificationCode(ctx context.Context, to, code string) error {
	m.logger.Info("verification code issued", slog.String("to", to), slog.String("code", code))
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	m.logger.Info("password reset link issued", slog.String("to", to), slog.String("url", resetURL))
	return nil
}

func (m *LogMailer) SendSubscriptionActivated(ctx context.Context, to string, expiresAt time.Time) error {
	m.logger.Info("subscription activated notice", slog.String("to", to), slog.Time("expires_at", expiresAt))
	return nil
}

func (m *LogMailer) SendSubscriptionExpired(ctx context.Context, to string) error {
	m.logger.Info("subscription expired notice", slog.String("to", to))
	return nil
}
