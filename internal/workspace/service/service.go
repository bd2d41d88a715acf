// Package service implements workspace lifecycle, membership, and invitation
// operations over the storage contracts.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hyvve/hyvve/internal/activity"
	"github.com/hyvve/hyvve/internal/identity"
	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
	"github.com/hyvve/hyvve/internal/platform/id"
	"github.com/hyvve/hyvve/internal/workspace/domain"
	"github.com/hyvve/hyvve/internal/workspace/storage"
)

// slugRetries is how many times a slug conflict is retried with a fresh
// suffix before giving up.
const slugRetries = 2

// InvitationMailer sends invitation email out of band of the request.
type InvitationMailer interface {
	SendInvitation(ctx context.Context, workspaceName string, invitation domain.Invitation) error
}

// Service coordinates workspace operations.
type Service struct {
	store   storage.Store
	users   identity.UserStore
	journal *activity.Journal
	mailer  InvitationMailer
	now     func() time.Time
	newID   func() (string, error)
}

// NewService creates the workspace service. journal and mailer may be nil.
func NewService(store storage.Store, users identity.UserStore, journal *activity.Journal, mailer InvitationMailer) *Service {
	return &Service{
		store:   store,
		users:   users,
		journal: journal,
		mailer:  mailer,
		now:     time.Now,
		newID:   id.NewID,
	}
}

// SetClock overrides the service clock. Intended for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetIDGenerator overrides ID generation. Intended for tests.
func (s *Service) SetIDGenerator(newID func() (string, error)) {
	s.newID = newID
}

// CreateWorkspace creates a workspace owned by the creating user. Slug
// conflicts retry with a random suffix before failing.
func (s *Service) CreateWorkspace(ctx context.Context, userID string, input domain.CreateWorkspaceInput) (domain.Workspace, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Workspace{}, apperrors.New(apperrors.CodeAuthInvalidToken, "user identity is required")
	}
	input.CreatedBy = userID

	workspace, err := domain.CreateWorkspace(input, s.now, s.newID)
	if err != nil {
		return domain.Workspace{}, err
	}

	for attempt := 0; ; attempt++ {
		err = s.store.PutWorkspace(ctx, workspace)
		if err == nil {
			break
		}
		if !errors.Is(err, storage.ErrAlreadyExists) {
			return domain.Workspace{}, fmt.Errorf("put workspace: %w", err)
		}
		if attempt >= slugRetries {
			return domain.Workspace{}, apperrors.WithMetadata(
				apperrors.CodeWorkspaceSlugUnavailable,
				"workspace slug is unavailable",
				map[string]string{"Slug": workspace.Slug},
			)
		}
		workspace.Slug, err = domain.ResuffixSlug(workspace.Slug, s.newID)
		if err != nil {
			return domain.Workspace{}, fmt.Errorf("resuffix slug: %w", err)
		}
	}

	owner, err := domain.NewMember(workspace.ID, userID, domain.RoleOwner, "", s.now)
	if err != nil {
		return domain.Workspace{}, err
	}
	if err := s.store.PutMember(ctx, owner); err != nil {
		return domain.Workspace{}, fmt.Errorf("put owner member: %w", err)
	}

	s.record(ctx, workspace.ID, activity.KindWorkspaceCreated, userID, workspace.ID,
		fmt.Sprintf("created workspace %s", workspace.Name))
	return workspace, nil
}

// GetWorkspace fetches a workspace by slug.
func (s *Service) GetWorkspace(ctx context.Context, slug string) (domain.Workspace, error) {
	workspace, err := s.store.GetWorkspaceBySlug(ctx, strings.TrimSpace(slug))
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Workspace{}, apperrors.New(apperrors.CodeWorkspaceNotFound, "workspace not found")
	}
	if err != nil {
		return domain.Workspace{}, fmt.Errorf("get workspace: %w", err)
	}
	return workspace, nil
}

// ListWorkspaces pages through the workspaces a user belongs to.
func (s *Service) ListWorkspaces(ctx context.Context, userID string, pageSize int, pageToken string) (storage.WorkspacePage, error) {
	page, err := s.store.ListWorkspacesForUser(ctx, userID, pageSize, pageToken)
	if err != nil {
		return storage.WorkspacePage{}, fmt.Errorf("list workspaces: %w", err)
	}
	return page, nil
}

// UpdateWorkspaceInput holds the mutable workspace fields.
type UpdateWorkspaceInput struct {
	Name        *string
	Description *string
}

// UpdateWorkspace renames or re-describes a workspace. Requires admin or
// owner. The slug never changes after creation.
func (s *Service) UpdateWorkspace(ctx context.Context, actor domain.Member, input UpdateWorkspaceInput) (domain.Workspace, error) {
	if !actor.Role.CanManageMembers() {
		return domain.Workspace{}, apperrors.New(apperrors.CodeMemberForbidden, "admin access required")
	}

	workspace, err := s.getActiveWorkspace(ctx, actor.WorkspaceID)
	if err != nil {
		return domain.Workspace{}, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return domain.Workspace{}, domain.ErrEmptyName
		}
		workspace.Name = name
	}
	if input.Description != nil {
		workspace.Description = strings.TrimSpace(*input.Description)
	}
	workspace.UpdatedAt = s.now().UTC()

	if err := s.store.PutWorkspace(ctx, workspace); err != nil {
		return domain.Workspace{}, fmt.Errorf("put workspace: %w", err)
	}
	return workspace, nil
}

// ArchiveWorkspace closes a workspace to mutations. Owner only.
func (s *Service) ArchiveWorkspace(ctx context.Context, actor domain.Member) (domain.Workspace, error) {
	if actor.Role != domain.RoleOwner {
		return domain.Workspace{}, apperrors.New(apperrors.CodeMemberForbidden, "owner access required")
	}

	workspace, err := s.getActiveWorkspace(ctx, actor.WorkspaceID)
	if err != nil {
		return domain.Workspace{}, err
	}

	workspace.Status = domain.StatusArchived
	workspace.UpdatedAt = s.now().UTC()
	if err := s.store.PutWorkspace(ctx, workspace); err != nil {
		return domain.Workspace{}, fmt.Errorf("put workspace: %w", err)
	}

	s.record(ctx, workspace.ID, activity.KindWorkspaceArchived, actor.UserID, workspace.ID,
		fmt.Sprintf("archived workspace %s", workspace.Name))
	return workspace, nil
}

// ListMembers lists the members of a workspace.
func (s *Service) ListMembers(ctx context.Context, workspaceID string) ([]domain.Member, error) {
	members, err := s.store.ListMembers(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// UpdateMemberRole changes a member's role. Requires admin or owner; the
// owner's role is immutable and ownership cannot be granted here.
func (s *Service) UpdateMemberRole(ctx context.Context, actor domain.Member, userID string, role domain.Role) (domain.Member, error) {
	if !actor.Role.CanManageMembers() {
		return domain.Member{}, apperrors.New(apperrors.CodeMemberForbidden, "admin access required")
	}
	if role <= domain.RoleUnspecified || role >= domain.RoleOwner {
		return domain.Member{}, domain.ErrInvalidRole
	}

	member, err := s.getMember(ctx, actor.WorkspaceID, userID)
	if err != nil {
		return domain.Member{}, err
	}
	if member.Role == domain.RoleOwner {
		return domain.Member{}, apperrors.New(apperrors.CodeMemberOwnerImmutable, "the workspace owner role cannot change")
	}

	member.Role = role
	member.UpdatedAt = s.now().UTC()
	if err := s.store.PutMember(ctx, member); err != nil {
		return domain.Member{}, fmt.Errorf("put member: %w", err)
	}

	s.record(ctx, member.WorkspaceID, activity.KindMemberRoleChanged, actor.UserID, member.UserID,
		fmt.Sprintf("changed member role to %s", domain.RoleLabel(role)))
	return member, nil
}

// RemoveMember removes a member. Admins remove anyone but the owner; any
// member may remove themselves.
func (s *Service) RemoveMember(ctx context.Context, actor domain.Member, userID string) error {
	userID = strings.TrimSpace(userID)
	if actor.UserID != userID && !actor.Role.CanManageMembers() {
		return apperrors.New(apperrors.CodeMemberForbidden, "admin access required")
	}

	member, err := s.getMember(ctx, actor.WorkspaceID, userID)
	if err != nil {
		return err
	}
	if member.Role == domain.RoleOwner {
		return apperrors.New(apperrors.CodeMemberOwnerImmutable, "the workspace owner cannot be removed")
	}

	if err := s.store.DeleteMember(ctx, actor.WorkspaceID, userID); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}

	s.record(ctx, actor.WorkspaceID, activity.KindMemberRemoved, actor.UserID, userID, "removed member")
	return nil
}

// Invite creates a pending invitation and emails the claim link. Requires
// admin or owner. Duplicate pending invitations and existing members fail.
func (s *Service) Invite(ctx context.Context, actor domain.Member, input domain.CreateInvitationInput) (domain.Invitation, error) {
	if !actor.Role.CanManageMembers() {
		return domain.Invitation{}, apperrors.New(apperrors.CodeMemberForbidden, "admin access required")
	}

	workspace, err := s.getActiveWorkspace(ctx, actor.WorkspaceID)
	if err != nil {
		return domain.Invitation{}, err
	}

	input.WorkspaceID = workspace.ID
	input.InvitedBy = actor.UserID
	invitation, err := domain.CreateInvitation(input, s.now, s.newID)
	if err != nil {
		return domain.Invitation{}, err
	}

	pending, err := s.store.HasPendingInvitation(ctx, workspace.ID, invitation.Email, s.now().UTC().UnixMilli())
	if err != nil {
		return domain.Invitation{}, fmt.Errorf("check pending invitation: %w", err)
	}
	if pending {
		return domain.Invitation{}, apperrors.New(apperrors.CodeInvitationDuplicate, "an invitation for this email is already pending")
	}

	if user, err := s.users.GetUserByEmail(ctx, invitation.Email); err == nil {
		if _, err := s.store.GetMember(ctx, workspace.ID, user.ID); err == nil {
			return domain.Invitation{}, apperrors.New(apperrors.CodeMemberAlreadyExists, "this user is already a member")
		}
	}

	if err := s.store.PutInvitation(ctx, invitation); err != nil {
		return domain.Invitation{}, fmt.Errorf("put invitation: %w", err)
	}

	if s.mailer != nil {
		if err := s.mailer.SendInvitation(ctx, workspace.Name, invitation); err != nil {
			log.Printf("workspace: invitation email to %s failed: %v", invitation.Email, err)
		}
	}

	s.record(ctx, workspace.ID, activity.KindInvitationSent, actor.UserID, invitation.ID,
		fmt.Sprintf("invited %s as %s", invitation.Email, domain.RoleLabel(invitation.Role)))
	return invitation, nil
}

// ListInvitations pages through a workspace's invitations.
func (s *Service) ListInvitations(ctx context.Context, workspaceID string, pageSize int, pageToken string) (storage.InvitationPage, error) {
	page, err := s.store.ListInvitations(ctx, workspaceID, pageSize, pageToken)
	if err != nil {
		return storage.InvitationPage{}, fmt.Errorf("list invitations: %w", err)
	}
	return page, nil
}

// RevokeInvitation settles a pending invitation as revoked. Requires admin
// or owner.
func (s *Service) RevokeInvitation(ctx context.Context, actor domain.Member, invitationID string) (domain.Invitation, error) {
	if !actor.Role.CanManageMembers() {
		return domain.Invitation{}, apperrors.New(apperrors.CodeMemberForbidden, "admin access required")
	}

	invitation, err := s.getInvitation(ctx, actor.WorkspaceID, invitationID)
	if err != nil {
		return domain.Invitation{}, err
	}

	settled, err := invitation.Settle(domain.InvitationStatusRevoked, s.now)
	if err != nil {
		return domain.Invitation{}, err
	}
	if err := s.store.PutInvitation(ctx, settled); err != nil {
		return domain.Invitation{}, fmt.Errorf("put invitation: %w", err)
	}
	return settled, nil
}

// ResendInvitation renews a pending invitation's token and expiry and
// redelivers the email. Requires admin or owner.
func (s *Service) ResendInvitation(ctx context.Context, actor domain.Member, invitationID string) (domain.Invitation, error) {
	if !actor.Role.CanManageMembers() {
		return domain.Invitation{}, apperrors.New(apperrors.CodeMemberForbidden, "admin access required")
	}

	workspace, err := s.getActiveWorkspace(ctx, actor.WorkspaceID)
	if err != nil {
		return domain.Invitation{}, err
	}

	invitation, err := s.getInvitation(ctx, workspace.ID, invitationID)
	if err != nil {
		return domain.Invitation{}, err
	}

	renewed, err := invitation.Renew(s.now, s.newID)
	if err != nil {
		return domain.Invitation{}, err
	}
	if err := s.store.PutInvitation(ctx, renewed); err != nil {
		return domain.Invitation{}, fmt.Errorf("put invitation: %w", err)
	}

	if s.mailer != nil {
		if err := s.mailer.SendInvitation(ctx, workspace.Name, renewed); err != nil {
			log.Printf("workspace: invitation email to %s failed: %v", renewed.Email, err)
		}
	}
	return renewed, nil
}

// AcceptInvitation claims an invitation by token and joins the accepting
// user to the workspace at the invited role.
func (s *Service) AcceptInvitation(ctx context.Context, token, userID string) (domain.Member, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Member{}, apperrors.New(apperrors.CodeAuthInvalidToken, "user identity is required")
	}

	invitation, err := s.getInvitationByToken(ctx, token)
	if err != nil {
		return domain.Member{}, err
	}

	if _, err := s.store.GetMember(ctx, invitation.WorkspaceID, userID); err == nil {
		return domain.Member{}, apperrors.New(apperrors.CodeMemberAlreadyExists, "already a member of this workspace")
	}

	settled, err := invitation.Settle(domain.InvitationStatusAccepted, s.now)
	if err != nil {
		if errors.Is(err, domain.ErrInvitationExpired) {
			s.settleExpired(ctx, invitation)
		}
		return domain.Member{}, err
	}

	member, err := domain.NewMember(invitation.WorkspaceID, userID, invitation.Role, invitation.InvitedBy, s.now)
	if err != nil {
		return domain.Member{}, err
	}
	if err := s.store.AcceptInvitation(ctx, member, settled); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return domain.Member{}, apperrors.New(apperrors.CodeMemberAlreadyExists, "already a member of this workspace")
		}
		return domain.Member{}, fmt.Errorf("accept invitation: %w", err)
	}

	s.record(ctx, invitation.WorkspaceID, activity.KindInvitationAccepted, userID, invitation.ID,
		fmt.Sprintf("%s joined the workspace", invitation.Email))
	return member, nil
}

// DeclineInvitation settles an invitation as declined by token.
func (s *Service) DeclineInvitation(ctx context.Context, token string) (domain.Invitation, error) {
	invitation, err := s.getInvitationByToken(ctx, token)
	if err != nil {
		return domain.Invitation{}, err
	}

	settled, err := invitation.Settle(domain.InvitationStatusDeclined, s.now)
	if err != nil {
		return domain.Invitation{}, err
	}
	if err := s.store.PutInvitation(ctx, settled); err != nil {
		return domain.Invitation{}, fmt.Errorf("put invitation: %w", err)
	}
	return settled, nil
}

// Membership resolves a user's membership in a workspace.
func (s *Service) Membership(ctx context.Context, workspaceID, userID string) (domain.Member, error) {
	return s.getMember(ctx, workspaceID, userID)
}

// settleExpired marks a deadline-passed invitation so it stops counting as
// pending and the retention sweep can remove it. Best effort: the caller
// returns the expiry error regardless.
func (s *Service) settleExpired(ctx context.Context, invitation domain.Invitation) {
	expired, err := invitation.Settle(domain.InvitationStatusExpired, s.now)
	if err != nil {
		return
	}
	if err := s.store.PutInvitation(ctx, expired); err != nil {
		log.Printf("workspace: settle expired invitation %s: %v", invitation.ID, err)
	}
}

func (s *Service) getActiveWorkspace(ctx context.Context, workspaceID string) (domain.Workspace, error) {
	workspace, err := s.store.GetWorkspace(ctx, workspaceID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Workspace{}, apperrors.New(apperrors.CodeWorkspaceNotFound, "workspace not found")
	}
	if err != nil {
		return domain.Workspace{}, fmt.Errorf("get workspace: %w", err)
	}
	if workspace.Status == domain.StatusArchived {
		return domain.Workspace{}, apperrors.New(apperrors.CodeWorkspaceArchived, "workspace is archived")
	}
	return workspace, nil
}

func (s *Service) getMember(ctx context.Context, workspaceID, userID string) (domain.Member, error) {
	member, err := s.store.GetMember(ctx, workspaceID, strings.TrimSpace(userID))
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Member{}, apperrors.New(apperrors.CodeMemberNotFound, "member not found")
	}
	if err != nil {
		return domain.Member{}, fmt.Errorf("get member: %w", err)
	}
	return member, nil
}

func (s *Service) getInvitation(ctx context.Context, workspaceID, invitationID string) (domain.Invitation, error) {
	invitation, err := s.store.GetInvitation(ctx, workspaceID, strings.TrimSpace(invitationID))
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Invitation{}, apperrors.New(apperrors.CodeInvitationNotFound, "invitation not found")
	}
	if err != nil {
		return domain.Invitation{}, fmt.Errorf("get invitation: %w", err)
	}
	return invitation, nil
}

func (s *Service) getInvitationByToken(ctx context.Context, token string) (domain.Invitation, error) {
	invitation, err := s.store.GetInvitationByToken(ctx, strings.TrimSpace(token))
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Invitation{}, apperrors.New(apperrors.CodeInvitationNotFound, "invitation not found")
	}
	if err != nil {
		return domain.Invitation{}, fmt.Errorf("get invitation: %w", err)
	}
	return invitation, nil
}

func (s *Service) record(ctx context.Context, workspaceID, kind, actorID, subjectID, summary string) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Record(ctx, workspaceID, kind, actorID, subjectID, summary); err != nil {
		log.Printf("workspace: record %s event: %v", kind, err)
	}
}
