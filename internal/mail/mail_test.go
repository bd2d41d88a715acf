package mail

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hyvve/hyvve/internal/workspace/domain"
)

type captureSender struct {
	to      string
	subject string
	body    string
	sends   int
}

func (c *captureSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	c.to = to
	c.subject = subject
	c.body = htmlBody
	c.sends++
	return nil
}

func TestSendInvitation(t *testing.T) {
	sender := &captureSender{}
	mailer := NewInvitationMailer(sender, "https://app.hyvve.dev/")

	invitation := domain.Invitation{
		Email:     "dana@example.com",
		Role:      domain.RoleMember,
		Token:     "tok-123",
		ExpiresAt: time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC),
	}
	if err := mailer.SendInvitation(context.Background(), "Apollo <Program>", invitation); err != nil {
		t.Fatalf("send invitation: %v", err)
	}

	if sender.to != "dana@example.com" {
		t.Fatalf("to = %q", sender.to)
	}
	if !strings.Contains(sender.body, "https://app.hyvve.dev/invitations/tok-123/accept") {
		t.Fatalf("body missing accept link: %q", sender.body)
	}
	if !strings.Contains(sender.body, "Apollo &lt;Program&gt;") {
		t.Fatalf("body missing escaped workspace name: %q", sender.body)
	}
	if !strings.Contains(sender.body, "March 11, 2026") {
		t.Fatalf("body missing expiry date: %q", sender.body)
	}
}

func TestSendInvitationWithoutSender(t *testing.T) {
	mailer := NewInvitationMailer(nil, "")
	err := mailer.SendInvitation(context.Background(), "Apollo", domain.Invitation{Email: "dana@example.com"})
	if err != nil {
		t.Fatalf("expected no-op without smtp, got %v", err)
	}
}

func TestNewSMTPSenderRequiresHost(t *testing.T) {
	if _, err := NewSMTPSender(Config{}); err == nil {
		t.Fatal("expected error without smtp host")
	}
}

func TestConfigEnabled(t *testing.T) {
	if (Config{}).Enabled() {
		t.Fatal("expected blank config disabled")
	}
	if !(Config{Host: "smtp.example.com"}).Enabled() {
		t.Fatal("expected configured host enabled")
	}
}
