package mailer

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail/v2"
	"go.uber.org/zap"

	"github.com/teshub/teshub-api/pkg/config"
)

// Sender delivers plain-text mail. Services depend on this interface so tests
// can swap in a recorder.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends mail through an SMTP relay using STARTTLS.
type SMTPMailer struct {
	dialer *mail.Dialer
	from   string
}

// NewSMTP builds a mailer from configuration.
func NewSMTP(cfg config.MailConfig) (*SMTPMailer, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}

	dialer := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	dialer.StartTLSPolicy = mail.MandatoryStartTLS
	dialer.TLSConfig = &tls.Config{ServerName: cfg.Host}

	return &SMTPMailer{dialer: dialer, from: cfg.From}, nil
}

// Send delivers a single plain-text message.
func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	return m.dialer.DialAndSend(msg)
}

// LogSender writes mail to the log instead of delivering it. Used in
// development when no SMTP relay is configured.
type LogSender struct {
	Logger *zap.Logger
}

// Send logs the message and reports success.
func (l *LogSender) Send(to, subject, body string) error {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Sugar().Infow("mail suppressed, smtp not configured", "to", to, "subject", subject)
	return nil
}
