package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
	"github.com/hyvve/hyvve/internal/platform/id"
)

// InvitationTTL is how long an invitation stays acceptable.
const InvitationTTL = 7 * 24 * time.Hour

// InvitationStatus represents the lifecycle status of an invitation.
type InvitationStatus int

const (
	// InvitationStatusUnspecified represents an invalid invitation status.
	InvitationStatusUnspecified InvitationStatus = iota
	// InvitationStatusPending indicates an invitation available to accept.
	InvitationStatusPending
	// InvitationStatusAccepted indicates an accepted invitation.
	InvitationStatusAccepted
	// InvitationStatusDeclined indicates a declined invitation.
	InvitationStatusDeclined
	// InvitationStatusRevoked indicates a revoked invitation.
	InvitationStatusRevoked
	// InvitationStatusExpired indicates an invitation past its deadline.
	InvitationStatusExpired
)

var (
	// ErrEmptyEmail indicates a missing invitation email.
	ErrEmptyEmail = apperrors.New(apperrors.CodeInvitationEmptyEmail, "invitation email is required")
	// ErrInvitationNotPending indicates a lifecycle action on a settled invitation.
	ErrInvitationNotPending = apperrors.New(apperrors.CodeInvitationNotPending, "invitation is not pending")
	// ErrInvitationExpired indicates an invitation past its deadline.
	ErrInvitationExpired = apperrors.New(apperrors.CodeInvitationExpired, "invitation is expired")
)

// Invitation represents a pending offer of workspace membership.
//
// The token is the sole claim credential: accept and decline are addressed
// by token, not by invitation ID, so recipients need no account up front.
type Invitation struct {
	ID          string
	WorkspaceID string
	Email       string
	Role        Role
	Token       string
	Status      InvitationStatus
	InvitedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   time.Time
}

// CreateInvitationInput describes the metadata needed to create an invitation.
type CreateInvitationInput struct {
	WorkspaceID string
	Email       string
	Role        Role
	InvitedBy   string
}

// CreateInvitation creates a pending invitation with a generated ID, claim
// token, and expiry.
func CreateInvitation(input CreateInvitationInput, now func() time.Time, idGenerator func() (string, error)) (Invitation, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateInvitationInput(input)
	if err != nil {
		return Invitation{}, err
	}

	invitationID, err := idGenerator()
	if err != nil {
		return Invitation{}, fmt.Errorf("generate invitation id: %w", err)
	}
	claimToken, err := idGenerator()
	if err != nil {
		return Invitation{}, fmt.Errorf("generate invitation token: %w", err)
	}

	createdAt := now().UTC()
	return Invitation{
		ID:          invitationID,
		WorkspaceID: normalized.WorkspaceID,
		Email:       normalized.Email,
		Role:        normalized.Role,
		Token:       claimToken,
		Status:      InvitationStatusPending,
		InvitedBy:   normalized.InvitedBy,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(InvitationTTL),
	}, nil
}

// NormalizeCreateInvitationInput trims and validates invitation input.
// The role defaults to member when unspecified; owner cannot be invited.
func NormalizeCreateInvitationInput(input CreateInvitationInput) (CreateInvitationInput, error) {
	input.WorkspaceID = strings.TrimSpace(input.WorkspaceID)
	if input.WorkspaceID == "" {
		return CreateInvitationInput{}, apperrors.New(apperrors.CodeWorkspaceNotFound, "workspace id is required")
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Email == "" {
		return CreateInvitationInput{}, ErrEmptyEmail
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return CreateInvitationInput{}, apperrors.Wrap(apperrors.CodeInvitationEmptyEmail, "invitation email is invalid", err)
	}

	if input.Role == RoleUnspecified {
		input.Role = RoleMember
	}
	if input.Role == RoleOwner || input.Role < RoleViewer || input.Role > RoleAdmin {
		return CreateInvitationInput{}, ErrInvalidRole
	}

	input.InvitedBy = strings.TrimSpace(input.InvitedBy)
	return input, nil
}

// Expired reports whether the invitation deadline has passed at now.
func (i Invitation) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.UTC().Before(i.ExpiresAt)
}

// Renew rotates the claim token and pushes out the expiry. Only pending
// invitations can be renewed.
func (i Invitation) Renew(now func() time.Time, idGenerator func() (string, error)) (Invitation, error) {
	if i.Status != InvitationStatusPending {
		return Invitation{}, ErrInvitationNotPending
	}
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	claimToken, err := idGenerator()
	if err != nil {
		return Invitation{}, fmt.Errorf("generate invitation token: %w", err)
	}

	renewedAt := now().UTC()
	i.Token = claimToken
	i.UpdatedAt = renewedAt
	i.ExpiresAt = renewedAt.Add(InvitationTTL)
	return i, nil
}

// Settle transitions a pending invitation to a terminal status. Accepting an
// expired invitation fails; revoking or declining one settles it regardless.
func (i Invitation) Settle(status InvitationStatus, now func() time.Time) (Invitation, error) {
	if now == nil {
		now = time.Now
	}
	if i.Status != InvitationStatusPending {
		return Invitation{}, ErrInvitationNotPending
	}

	settledAt := now().UTC()
	if status == InvitationStatusAccepted && i.Expired(settledAt) {
		return Invitation{}, ErrInvitationExpired
	}

	switch status {
	case InvitationStatusAccepted, InvitationStatusDeclined, InvitationStatusRevoked, InvitationStatusExpired:
	default:
		return Invitation{}, apperrors.New(apperrors.CodeInvitationNotPending, "invalid invitation transition")
	}

	i.Status = status
	i.UpdatedAt = settledAt
	return i, nil
}

// InvitationStatusLabel returns the string label for an invitation status.
func InvitationStatusLabel(status InvitationStatus) string {
	switch status {
	case InvitationStatusPending:
		return "PENDING"
	case InvitationStatusAccepted:
		return "ACCEPTED"
	case InvitationStatusDeclined:
		return "DECLINED"
	case InvitationStatusRevoked:
		return "REVOKED"
	case InvitationStatusExpired:
		return "EXPIRED"
	default:
		return "UNSPECIFIED"
	}
}

// InvitationStatusFromLabel converts a status label to a status value.
func InvitationStatusFromLabel(label string) InvitationStatus {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "PENDING":
		return InvitationStatusPending
	case "ACCEPTED":
		return InvitationStatusAccepted
	case "DECLINED":
		return InvitationStatusDeclined
	case "REVOKED":
		return InvitationStatusRevoked
	case "EXPIRED":
		return InvitationStatusExpired
	default:
		return InvitationStatusUnspecified
	}
}
