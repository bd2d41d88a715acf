package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/hyvve/hyvve/internal/pm/dashboard"
	pmstorage "github.com/hyvve/hyvve/internal/pm/storage"
	"github.com/hyvve/hyvve/internal/pm/view"

	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
	"github.com/hyvve/hyvve/internal/platform/requestctx"
)

type viewResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Filter     string `json:"filter,omitempty"`
	OrderBy    string `json:"order_by"`
	Visibility string `json:"visibility"`
	CreatedBy  string `json:"created_by"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func viewToResponse(saved view.SavedView) viewResponse {
	return viewResponse{
		ID:         saved.ID,
		Name:       saved.Name,
		Filter:     saved.Filter,
		OrderBy:    saved.OrderBy,
		Visibility: view.VisibilityLabel(saved.Visibility),
		CreatedBy:  saved.CreatedBy,
		CreatedAt:  saved.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  saved.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// requireEditor rejects callers whose role cannot mutate workspace content.
func requireEditor(w http.ResponseWriter, r *http.Request) bool {
	member, ok := memberFromContext(r.Context())
	if !ok || !member.Role.CanEdit() {
		writeError(w, apperrors.New(apperrors.CodeMemberForbidden, "editor access required"))
		return false
	}
	return true
}

func (h *Handler) handleListViews(w http.ResponseWriter, r *http.Request) {
	scope, _ := requestctx.WorkspaceFromContext(r.Context())
	views, err := h.planning.ListViews(r.Context(), scope.ID, requestctx.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	response := make([]viewResponse, 0, len(views))
	for _, saved := range views {
		response = append(response, viewToResponse(saved))
	}
	writeJSON(w, http.StatusOK, map[string][]viewResponse{"views": response})
}

type createViewRequest struct {
	Name       string `json:"name"`
	Filter     string `json:"filter"`
	OrderBy    string `json:"order_by"`
	Visibility string `json:"visibility"`
}

func (h *Handler) handleCreateView(w http.ResponseWriter, r *http.Request) {
	if !requireEditor(w, r) {
		return
	}
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	var req createViewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	saved, err := view.CreateSavedView(view.CreateSavedViewInput{
		WorkspaceID: scope.ID,
		Name:        req.Name,
		Filter:      req.Filter,
		OrderBy:     req.OrderBy,
		Visibility:  view.VisibilityFromLabel(req.Visibility),
		CreatedBy:   requestctx.UserIDFromContext(r.Context()),
	}, h.now, h.newID)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.planning.PutView(r.Context(), saved); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewToResponse(saved))
}

// getVisibleView loads one view and hides other users' private views.
func (h *Handler) getVisibleView(w http.ResponseWriter, r *http.Request) (view.SavedView, bool) {
	scope, _ := requestctx.WorkspaceFromContext(r.Context())
	saved, err := h.planning.GetView(r.Context(), scope.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, mapPlanningError(err, apperrors.CodeViewNotFound, "view not found"))
		return view.SavedView{}, false
	}
	if !saved.VisibleTo(requestctx.UserIDFromContext(r.Context())) {
		writeError(w, apperrors.New(apperrors.CodeViewNotFound, "view not found"))
		return view.SavedView{}, false
	}
	return saved, true
}

func (h *Handler) handleGetView(w http.ResponseWriter, r *http.Request) {
	saved, ok := h.getVisibleView(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewToResponse(saved))
}

type updateViewRequest struct {
	Name       *string `json:"name"`
	Filter     *string `json:"filter"`
	OrderBy    *string `json:"order_by"`
	Visibility *string `json:"visibility"`
}

func (h *Handler) handleUpdateView(w http.ResponseWriter, r *http.Request) {
	if !requireEditor(w, r) {
		return
	}
	saved, ok := h.getVisibleView(w, r)
	if !ok {
		return
	}

	var req updateViewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	input := view.CreateSavedViewInput{
		WorkspaceID: saved.WorkspaceID,
		Name:        saved.Name,
		Filter:      saved.Filter,
		OrderBy:     saved.OrderBy,
		Visibility:  saved.Visibility,
		CreatedBy:   saved.CreatedBy,
	}
	if req.Name != nil {
		input.Name = *req.Name
	}
	if req.Filter != nil {
		input.Filter = *req.Filter
	}
	if req.OrderBy != nil {
		input.OrderBy = *req.OrderBy
	}
	if req.Visibility != nil {
		input.Visibility = view.VisibilityFromLabel(*req.Visibility)
	}

	normalized, err := view.NormalizeCreateSavedViewInput(input)
	if err != nil {
		writeError(w, err)
		return
	}

	saved.Name = normalized.Name
	saved.Filter = normalized.Filter
	saved.OrderBy = normalized.OrderBy
	saved.Visibility = normalized.Visibility
	saved.UpdatedAt = h.now().UTC()

	if err := h.planning.PutView(r.Context(), saved); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewToResponse(saved))
}

func (h *Handler) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	if !requireEditor(w, r) {
		return
	}
	saved, ok := h.getVisibleView(w, r)
	if !ok {
		return
	}

	scope, _ := requestctx.WorkspaceFromContext(r.Context())
	if err := h.planning.DeleteView(r.Context(), scope.ID, saved.ID); err != nil {
		writeError(w, mapPlanningError(err, apperrors.CodeViewNotFound, "view not found"))
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type dashboardResponse struct {
	Widgets   []dashboard.Widget `json:"widgets"`
	UpdatedAt string             `json:"updated_at,omitempty"`
}

func (h *Handler) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	scope, _ := requestctx.WorkspaceFromContext(r.Context())
	layout, err := h.planning.GetDashboard(r.Context(), scope.ID, requestctx.UserIDFromContext(r.Context()))
	if err != nil {
		// A user without a saved layout gets the empty default.
		if errors.Is(err, pmstorage.ErrNotFound) {
			writeJSON(w, http.StatusOK, dashboardResponse{Widgets: []dashboard.Widget{}})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Widgets:   layout.Widgets,
		UpdatedAt: layout.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

type putDashboardRequest struct {
	Widgets []dashboard.Widget `json:"widgets"`
}

func (h *Handler) handlePutDashboard(w http.ResponseWriter, r *http.Request) {
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	var req putDashboardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	layout, err := dashboard.NewLayout(scope.ID, requestctx.UserIDFromContext(r.Context()), req.Widgets, h.now)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.planning.PutDashboard(r.Context(), layout); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Widgets:   layout.Widgets,
		UpdatedAt: layout.UpdatedAt.UTC().Format(time.RFC3339),
	})
}
