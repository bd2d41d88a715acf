// Package storage defines persistence contracts for workspace state.
package storage

import (
	"context"
	"errors"

	"github.com/hyvve/hyvve/internal/workspace/domain"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
var ErrAlreadyExists = errors.New("record already exists")

// WorkspacePage stores a page of workspaces.
type WorkspacePage struct {
	Workspaces    []domain.Workspace
	NextPageToken string
}

// InvitationPage stores a page of invitations.
type InvitationPage struct {
	Invitations   []domain.Invitation
	NextPageToken string
}

// WorkspaceStore persists workspace records.
type WorkspaceStore interface {
	PutWorkspace(ctx context.Context, workspace domain.Workspace) error
	GetWorkspace(ctx context.Context, workspaceID string) (domain.Workspace, error)
	GetWorkspaceBySlug(ctx context.Context, slug string) (domain.Workspace, error)
	ListWorkspacesForUser(ctx context.Context, userID string, pageSize int, pageToken string) (WorkspacePage, error)
}

// MemberStore persists workspace membership records.
type MemberStore interface {
	PutMember(ctx context.Context, member domain.Member) error
	GetMember(ctx context.Context, workspaceID, userID string) (domain.Member, error)
	DeleteMember(ctx context.Context, workspaceID, userID string) error
	ListMembers(ctx context.Context, workspaceID string) ([]domain.Member, error)
	CountMembers(ctx context.Context, workspaceID string) (int, error)
}

// InvitationStore persists workspace invitation records.
type InvitationStore interface {
	PutInvitation(ctx context.Context, invitation domain.Invitation) error
	GetInvitation(ctx context.Context, workspaceID, invitationID string) (domain.Invitation, error)
	GetInvitationByToken(ctx context.Context, token string) (domain.Invitation, error)
	ListInvitations(ctx context.Context, workspaceID string, pageSize int, pageToken string) (InvitationPage, error)
	HasPendingInvitation(ctx context.Context, workspaceID, email string, nowMillis int64) (bool, error)
	DeleteSettledInvitationsBefore(ctx context.Context, cutoffMillis int64) (int, error)
}

// Store aggregates the workspace persistence contracts.
type Store interface {
	WorkspaceStore
	MemberStore
	InvitationStore

	// AcceptInvitation persists the new member and the settled invitation
	// atomically. Returns ErrAlreadyExists when the user is already a member.
	AcceptInvitation(ctx context.Context, member domain.Member, invitation domain.Invitation) error
}
