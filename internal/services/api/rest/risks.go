package rest

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hyvve/hyvve/internal/activity"
	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
	"github.com/hyvve/hyvve/internal/platform/requestctx"
	"github.com/hyvve/hyvve/internal/pm/risk"
)

type riskResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Probability int    `json:"probability"`
	Impact      int    `json:"impact"`
	Severity    int    `json:"severity"`
	Critical    bool   `json:"critical"`
	Status      string `json:"status"`
	OwnerUserID string `json:"owner_user_id,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func riskToResponse(entry risk.Entry) riskResponse {
	return riskResponse{
		ID:          entry.ID,
		Title:       entry.Title,
		Description: entry.Description,
		Probability: entry.Probability,
		Impact:      entry.Impact,
		Severity:    entry.Severity(),
		Critical:    entry.Critical(),
		Status:      risk.StatusLabel(entry.Status),
		OwnerUserID: entry.OwnerUserID,
		CreatedAt:   entry.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   entry.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type riskPageResponse struct {
	Risks         []riskResponse `json:"risks"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

func (h *Handler) handleListRisks(w http.ResponseWriter, r *http.Request) {
	scope, _ := requestctx.WorkspaceFromContext(r.Context())
	pageSize, afterID, err := pageParams(r, "")
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.planning.ListRisks(r.Context(), scope.ID, pageSize, afterID)
	if err != nil {
		writeError(w, err)
		return
	}

	response := riskPageResponse{
		Risks:         make([]riskResponse, 0, len(page.Risks)),
		NextPageToken: nextPageToken(page.NextPageToken, ""),
	}
	for _, entry := range page.Risks {
		response.Risks = append(response.Risks, riskToResponse(entry))
	}
	writeJSON(w, http.StatusOK, response)
}

type createRiskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Probability int    `json:"probability"`
	Impact      int    `json:"impact"`
	OwnerUserID string `json:"owner_user_id"`
}

func (h *Handler) handleCreateRisk(w http.ResponseWriter, r *http.Request) {
	if !requireEditor(w, r) {
		return
	}
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	var req createRiskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	entry, err := risk.CreateEntry(risk.CreateEntryInput{
		WorkspaceID: scope.ID,
		Title:       req.Title,
		Description: req.Description,
		Probability: req.Probability,
		Impact:      req.Impact,
		OwnerUserID: req.OwnerUserID,
	}, h.now, h.newID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.planning.PutRisk(r.Context(), entry); err != nil {
		writeError(w, err)
		return
	}

	h.record(r, activity.KindRiskOpened, entry.ID, fmt.Sprintf("opened risk %q", entry.Title))
	writeJSON(w, http.StatusCreated, riskToResponse(entry))
}

type updateRiskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Probability *int    `json:"probability"`
	Impact      *int    `json:"impact"`
	Status      *string `json:"status"`
	OwnerUserID *string `json:"owner_user_id"`
}

func (h *Handler) handleUpdateRisk(w http.ResponseWriter, r *http.Request) {
	if !requireEditor(w, r) {
		return
	}
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	entry, err := h.planning.GetRisk(r.Context(), scope.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, mapPlanningError(err, apperrors.CodeRiskNotFound, "risk not found"))
		return
	}

	var req updateRiskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	input := risk.CreateEntryInput{
		WorkspaceID: entry.WorkspaceID,
		Title:       entry.Title,
		Description: entry.Description,
		Probability: entry.Probability,
		Impact:      entry.Impact,
		OwnerUserID: entry.OwnerUserID,
	}
	if req.Title != nil {
		input.Title = *req.Title
	}
	if req.Description != nil {
		input.Description = *req.Description
	}
	if req.Probability != nil {
		input.Probability = *req.Probability
	}
	if req.Impact != nil {
		input.Impact = *req.Impact
	}
	if req.OwnerUserID != nil {
		input.OwnerUserID = *req.OwnerUserID
	}

	normalized, err := risk.NormalizeCreateEntryInput(input)
	if err != nil {
		writeError(w, err)
		return
	}

	wasResolved := entry.Status == risk.StatusResolved
	if req.Status != nil {
		status := risk.StatusFromLabel(*req.Status)
		if status == risk.StatusUnspecified {
			writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "risk status is invalid"))
			return
		}
		entry.Status = status
	}

	entry.Title = normalized.Title
	entry.Description = normalized.Description
	entry.Probability = normalized.Probability
	entry.Impact = normalized.Impact
	entry.OwnerUserID = normalized.OwnerUserID
	entry.UpdatedAt = h.now().UTC()

	if err := h.planning.PutRisk(r.Context(), entry); err != nil {
		writeError(w, err)
		return
	}

	if !wasResolved && entry.Status == risk.StatusResolved {
		h.record(r, activity.KindRiskResolved, entry.ID, fmt.Sprintf("resolved risk %q", entry.Title))
	}
	writeJSON(w, http.StatusOK, riskToResponse(entry))
}

func (h *Handler) handleDeleteRisk(w http.ResponseWriter, r *http.Request) {
	if !requireEditor(w, r) {
		return
	}
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	if err := h.planning.DeleteRisk(r.Context(), scope.ID, r.PathValue("id")); err != nil {
		writeError(w, mapPlanningError(err, apperrors.CodeRiskNotFound, "risk not found"))
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
