package mail

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/hyvve/hyvve/internal/workspace/domain"
)

// InvitationMailer sends workspace invitation email. A nil sender makes every
// send a logged no-op so invitation flows work without SMTP configured.
type InvitationMailer struct {
	sender  Sender
	baseURL string
}

// NewInvitationMailer creates an invitation mailer.
func NewInvitationMailer(sender Sender, baseURL string) *InvitationMailer {
	return &InvitationMailer{
		sender:  sender,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

// SendInvitation emails the invite link for a pending invitation.
func (m *InvitationMailer) SendInvitation(ctx context.Context, workspaceName string, invitation domain.Invitation) error {
	if m == nil || m.sender == nil {
		log.Printf("mail: smtp not configured, skipping invitation email to %s", invitation.Email)
		return nil
	}

	link := fmt.Sprintf("%s/invitations/%s/accept", m.baseURL, invitation.Token)
	subject := fmt.Sprintf("You're invited to %s on HYVVE", workspaceName)
	body := fmt.Sprintf(
		`<p>You've been invited to join <strong>%s</strong> as %s.</p>
<p><a href="%s">Accept the invitation</a></p>
<p>The invitation expires on %s.</p>`,
		html.EscapeString(workspaceName),
		html.EscapeString(domain.RoleLabel(invitation.Role)),
		link,
		invitation.ExpiresAt.Format("January 2, 2006"),
	)
	return m.sender.Send(ctx, invitation.Email, subject, body)
}
