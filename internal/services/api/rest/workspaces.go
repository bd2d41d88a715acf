package rest

import (
	"net/http"
	"time"

	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
	"github.com/hyvve/hyvve/internal/platform/requestctx"
	"github.com/hyvve/hyvve/internal/workspace/domain"
	wsservice "github.com/hyvve/hyvve/internal/workspace/service"
)

type workspaceResponse struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type memberResponse struct {
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	InvitedBy   string `json:"invited_by,omitempty"`
	JoinedAt    string `json:"joined_at"`
}

type invitationResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	InvitedBy string `json:"invited_by"`
	CreatedAt string `json:"created_at"`
	ExpiresAt string `json:"expires_at"`
}

func workspaceToResponse(workspace domain.Workspace) workspaceResponse {
	return workspaceResponse{
		ID:          workspace.ID,
		Slug:        workspace.Slug,
		Name:        workspace.Name,
		Description: workspace.Description,
		Status:      domain.StatusLabel(workspace.Status),
		CreatedBy:   workspace.CreatedBy,
		CreatedAt:   workspace.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   workspace.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func memberToResponse(member domain.Member) memberResponse {
	return memberResponse{
		WorkspaceID: member.WorkspaceID,
		UserID:      member.UserID,
		Role:        domain.RoleLabel(member.Role),
		InvitedBy:   member.InvitedBy,
		JoinedAt:    member.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func invitationToResponse(invitation domain.Invitation) invitationResponse {
	return invitationResponse{
		ID:        invitation.ID,
		Email:     invitation.Email,
		Role:      domain.RoleLabel(invitation.Role),
		Status:    domain.InvitationStatusLabel(invitation.Status),
		InvitedBy: invitation.InvitedBy,
		CreatedAt: invitation.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt: invitation.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

type createWorkspaceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req createWorkspaceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	workspace, err := h.workspaces.CreateWorkspace(r.Context(), requestctx.UserIDFromContext(r.Context()), domain.CreateWorkspaceInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, workspaceToResponse(workspace))
}

type workspacePageResponse struct {
	Workspaces    []workspaceResponse `json:"workspaces"`
	NextPageToken string              `json:"next_page_token,omitempty"`
}

func (h *Handler) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	pageSize, afterID, err := pageParams(r, "")
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.workspaces.ListWorkspaces(r.Context(), requestctx.UserIDFromContext(r.Context()), pageSize, afterID)
	if err != nil {
		writeError(w, err)
		return
	}

	response := workspacePageResponse{
		Workspaces:    make([]workspaceResponse, 0, len(page.Workspaces)),
		NextPageToken: nextPageToken(page.NextPageToken, ""),
	}
	for _, workspace := range page.Workspaces {
		response.Workspaces = append(response.Workspaces, workspaceToResponse(workspace))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	workspace, err := h.workspaces.GetWorkspace(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workspaceToResponse(workspace))
}

type updateWorkspaceRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *Handler) handleUpdateWorkspace(w http.ResponseWriter, r *http.Request) {
	actor, ok := memberFromContext(r.Context())
	if !ok {
		writeError(w, apperrors.New(apperrors.CodeMemberForbidden, "workspace scope is required"))
		return
	}

	var req updateWorkspaceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	workspace, err := h.workspaces.UpdateWorkspace(r.Context(), actor, wsservice.UpdateWorkspaceInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workspaceToResponse(workspace))
}

func (h *Handler) handleArchiveWorkspace(w http.ResponseWriter, r *http.Request) {
	actor, ok := memberFromContext(r.Context())
	if !ok {
		writeError(w, apperrors.New(apperrors.CodeMemberForbidden, "workspace scope is required"))
		return
	}

	workspace, err := h.workspaces.ArchiveWorkspace(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workspaceToResponse(workspace))
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	scope, _ := requestctx.WorkspaceFromContext(r.Context())
	members, err := h.workspaces.ListMembers(r.Context(), scope.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	response := make([]memberResponse, 0, len(members))
	for _, member := range members {
		response = append(response, memberToResponse(member))
	}
	writeJSON(w, http.StatusOK, map[string][]memberResponse{"members": response})
}

type updateMemberRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) handleUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := memberFromContext(r.Context())
	if !ok {
		writeError(w, apperrors.New(apperrors.CodeMemberForbidden, "workspace scope is required"))
		return
	}

	var req updateMemberRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	member, err := h.workspaces.UpdateMemberRole(r.Context(), actor, r.PathValue("userID"), domain.RoleFromLabel(req.Role))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memberToResponse(member))
}

func (h *Handler) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := memberFromContext(r.Context())
	if !ok {
		writeError(w, apperrors.New(apperrors.CodeMemberForbidden, "workspace scope is required"))
		return
	}

	if err := h.workspaces.RemoveMember(r.Context(), actor, r.PathValue("userID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	actor, ok := memberFromContext(r.Context())
	if !ok {
		writeError(w, apperrors.New(apperrors.CodeMemberForbidden, "workspace scope is required"))
		return
	}

	var req inviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	invitation, err := h.workspaces.Invite(r.Context(), actor, domain.CreateInvitationInput{
		Email: req.Email,
		Role:  domain.RoleFromLabel(req.Role),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, invitationToResponse(invitation))
}

type invitationPageResponse struct {
	Invitations   []invitationResponse `json:"invitations"`
	NextPageToken string               `json:"next_page_token,omitempty"`
}

func (h *Handler) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	scope, _ := requestctx.WorkspaceFromContext(r.Context())
	pageSize, afterID, err := pageParams(r, "")
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.workspaces.ListInvitations(r.Context(), scope.ID, pageSize, afterID)
	if err != nil {
		writeError(w, err)
		return
	}

	response := invitationPageResponse{
		Invitations:   make([]invitationResponse, 0, len(page.Invitations)),
		NextPageToken: nextPageToken(page.NextPageToken, ""),
	}
	for _, invitation := range page.Invitations {
		response.Invitations = append(response.Invitations, invitationToResponse(invitation))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) handleResendInvitation(w http.ResponseWriter, r *http.Request) {
	actor, ok := memberFromContext(r.Context())
	if !ok {
		writeError(w, apperrors.New(apperrors.CodeMemberForbidden, "workspace scope is required"))
		return
	}

	invitation, err := h.workspaces.ResendInvitation(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invitationToResponse(invitation))
}

func (h *Handler) handleRevokeInvitation(w http.ResponseWriter, r *http.Request) {
	actor, ok := memberFromContext(r.Context())
	if !ok {
		writeError(w, apperrors.New(apperrors.CodeMemberForbidden, "workspace scope is required"))
		return
	}

	if _, err := h.workspaces.RevokeInvitation(r.Context(), actor, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
