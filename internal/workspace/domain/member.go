package domain

import (
	"strings"
	"time"

	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
)

// Role represents a member's permission tier inside a workspace.
type Role int

const (
	// RoleUnspecified represents an invalid role value.
	RoleUnspecified Role = iota
	// RoleViewer may read workspace content.
	RoleViewer
	// RoleMember may create and edit PM content.
	RoleMember
	// RoleAdmin may manage members, invitations, and workspace settings.
	RoleAdmin
	// RoleOwner is the single accountable owner of the workspace.
	RoleOwner
)

// ErrInvalidRole indicates a missing or unknown member role.
var ErrInvalidRole = apperrors.New(apperrors.CodeMemberInvalidRole, "member role is invalid")

// Member represents one user's membership in a workspace.
type Member struct {
	WorkspaceID string
	UserID      string
	Role        Role
	InvitedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewMember creates a membership record with timestamps.
func NewMember(workspaceID, userID string, role Role, invitedBy string, now func() time.Time) (Member, error) {
	if now == nil {
		now = time.Now
	}
	workspaceID = strings.TrimSpace(workspaceID)
	userID = strings.TrimSpace(userID)
	if workspaceID == "" || userID == "" {
		return Member{}, apperrors.New(apperrors.CodeMemberNotFound, "workspace id and user id are required")
	}
	if role <= RoleUnspecified || role > RoleOwner {
		return Member{}, ErrInvalidRole
	}

	createdAt := now().UTC()
	return Member{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		InvitedBy:   strings.TrimSpace(invitedBy),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// CanManageMembers reports whether the role may add, remove, or re-role
// members and manage invitations.
func (r Role) CanManageMembers() bool {
	return r == RoleAdmin || r == RoleOwner
}

// CanEdit reports whether the role may mutate PM content.
func (r Role) CanEdit() bool {
	return r == RoleMember || r == RoleAdmin || r == RoleOwner
}

// CanRead reports whether the role may read workspace content.
func (r Role) CanRead() bool {
	return r >= RoleViewer && r <= RoleOwner
}

// RoleLabel returns the string label for a role.
func RoleLabel(role Role) string {
	switch role {
	case RoleViewer:
		return "VIEWER"
	case RoleMember:
		return "MEMBER"
	case RoleAdmin:
		return "ADMIN"
	case RoleOwner:
		return "OWNER"
	default:
		return "UNSPECIFIED"
	}
}

// RoleFromLabel converts a role label to a Role value.
func RoleFromLabel(label string) Role {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "VIEWER":
		return RoleViewer
	case "MEMBER":
		return RoleMember
	case "ADMIN":
		return RoleAdmin
	case "OWNER":
		return RoleOwner
	default:
		return RoleUnspecified
	}
}
