// Package mail delivers transactional email over SMTP.
package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/hyvve/hyvve/internal/platform/timeouts"
)

// Config holds SMTP delivery settings. An empty Host disables delivery.
type Config struct {
	Host     string `env:"HYVVE_SMTP_HOST"`
	Port     int    `env:"HYVVE_SMTP_PORT" envDefault:"587"`
	Username string `env:"HYVVE_SMTP_USERNAME"`
	Password string `env:"HYVVE_SMTP_PASSWORD"`
	From     string `env:"HYVVE_SMTP_FROM" envDefault:"no-reply@hyvve.dev"`
	// BaseURL is the public web origin used to build links in messages.
	BaseURL string `env:"HYVVE_PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
}

// Enabled reports whether delivery is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

// Sender delivers one email message.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPSender delivers messages with go-mail.
type SMTPSender struct {
	config Config
}

// NewSMTPSender creates an SMTP sender from config.
func NewSMTPSender(config Config) (*SMTPSender, error) {
	if !config.Enabled() {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(config.From) == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	return &SMTPSender{config: config}, nil
}

// Send delivers one message, dialing per call.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.config.From); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	msg.SetCharset(mail.CharsetUTF8)

	client, err := mail.NewClient(s.config.Host,
		mail.WithPort(s.config.Port),
		mail.WithUsername(s.config.Username),
		mail.WithPassword(s.config.Password),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, timeouts.MailSend)
	defer cancel()
	if err := client.DialAndSendWithContext(sendCtx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
