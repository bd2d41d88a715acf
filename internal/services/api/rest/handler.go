// Package rest exposes the HYVVE HTTP JSON API.
//
// Handlers stay transport-only: they decode requests, enforce workspace
// scope, and delegate to the domain packages. Error codes map to HTTP
// statuses at this boundary and nowhere else.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hyvve/hyvve/internal/activity"
	"github.com/hyvve/hyvve/internal/agent/prism"
	"github.com/hyvve/hyvve/internal/auth/token"
	"github.com/hyvve/hyvve/internal/identity"
	"github.com/hyvve/hyvve/internal/kb"
	kbstorage "github.com/hyvve/hyvve/internal/kb/storage"
	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
	"github.com/hyvve/hyvve/internal/platform/id"
	"github.com/hyvve/hyvve/internal/platform/pagination"
	"github.com/hyvve/hyvve/internal/platform/requestctx"
	pmstorage "github.com/hyvve/hyvve/internal/pm/storage"
	"github.com/hyvve/hyvve/internal/ratelimit"
	wsservice "github.com/hyvve/hyvve/internal/workspace/service"
)

const maxRequestBodyBytes = 1 << 20

// Config carries the dependencies the API handler needs.
type Config struct {
	Workspaces *wsservice.Service
	Users      identity.UserStore
	Planning   pmstorage.Store
	Articles   kbstorage.ArticleStore
	Embedder   kb.Embedder
	Agent      *prism.Agent
	Journal    *activity.Journal
	Hub        *activity.Hub
	Limiter    *ratelimit.Limiter
	Tokens     token.Config
}

// Handler serves the versioned JSON API.
type Handler struct {
	workspaces *wsservice.Service
	users      identity.UserStore
	planning   pmstorage.Store
	articles   kbstorage.ArticleStore
	embedder   kb.Embedder
	agent      *prism.Agent
	journal    *activity.Journal
	hub        *activity.Hub
	limiter    *ratelimit.Limiter
	tokens     token.Config

	now   func() time.Time
	newID func() (string, error)
}

// NewHandler assembles the API handler.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Workspaces == nil {
		return nil, errors.New("workspace service is required")
	}
	if cfg.Users == nil {
		return nil, errors.New("user store is required")
	}
	if cfg.Planning == nil {
		return nil, errors.New("planning store is required")
	}
	if cfg.Articles == nil {
		return nil, errors.New("article store is required")
	}
	if len(cfg.Tokens.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	return &Handler{
		workspaces: cfg.Workspaces,
		users:      cfg.Users,
		planning:   cfg.Planning,
		articles:   cfg.Articles,
		embedder:   cfg.Embedder,
		agent:      cfg.Agent,
		journal:    cfg.Journal,
		hub:        cfg.Hub,
		limiter:    cfg.Limiter,
		tokens:     cfg.Tokens,
		now:        time.Now,
		newID:      id.NewID,
	}, nil
}

// SetClock overrides the handler clock. Intended for tests.
func (h *Handler) SetClock(now func() time.Time) {
	h.now = now
}

// Routes builds the API route table.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Unauthenticated routes still pass through the limiter: token minting
	// runs bcrypt and is the obvious flood target.
	mux.HandleFunc("POST /api/auth/token", h.withRateLimit(h.handleMintToken))
	mux.HandleFunc("POST /api/invitations/decline", h.withRateLimit(h.handleDeclineInvitation))

	authed := func(fn http.HandlerFunc) http.HandlerFunc {
		return h.withRateLimit(h.withAuth(fn))
	}
	scoped := func(fn http.HandlerFunc) http.HandlerFunc {
		return h.withRateLimit(h.withAuth(h.withWorkspace(fn)))
	}

	mux.HandleFunc("GET /api/me", authed(h.handleMe))
	mux.HandleFunc("POST /api/invitations/accept", authed(h.handleAcceptInvitation))

	mux.HandleFunc("POST /api/workspaces", authed(h.handleCreateWorkspace))
	mux.HandleFunc("GET /api/workspaces", authed(h.handleListWorkspaces))
	mux.HandleFunc("GET /api/workspaces/{slug}", scoped(h.handleGetWorkspace))
	mux.HandleFunc("PATCH /api/workspaces/{slug}", scoped(h.handleUpdateWorkspace))
	mux.HandleFunc("DELETE /api/workspaces/{slug}", scoped(h.handleArchiveWorkspace))

	mux.HandleFunc("GET /api/workspaces/{slug}/members", scoped(h.handleListMembers))
	mux.HandleFunc("PATCH /api/workspaces/{slug}/members/{userID}", scoped(h.handleUpdateMemberRole))
	mux.HandleFunc("DELETE /api/workspaces/{slug}/members/{userID}", scoped(h.handleRemoveMember))

	mux.HandleFunc("POST /api/workspaces/{slug}/invitations", scoped(h.handleInvite))
	mux.HandleFunc("GET /api/workspaces/{slug}/invitations", scoped(h.handleListInvitations))
	mux.HandleFunc("POST /api/workspaces/{slug}/invitations/{id}/resend", scoped(h.handleResendInvitation))
	mux.HandleFunc("DELETE /api/workspaces/{slug}/invitations/{id}", scoped(h.handleRevokeInvitation))

	mux.HandleFunc("GET /api/workspaces/{slug}/views", scoped(h.handleListViews))
	mux.HandleFunc("POST /api/workspaces/{slug}/views", scoped(h.handleCreateView))
	mux.HandleFunc("GET /api/workspaces/{slug}/views/{id}", scoped(h.handleGetView))
	mux.HandleFunc("PATCH /api/workspaces/{slug}/views/{id}", scoped(h.handleUpdateView))
	mux.HandleFunc("DELETE /api/workspaces/{slug}/views/{id}", scoped(h.handleDeleteView))

	mux.HandleFunc("GET /api/workspaces/{slug}/dashboard", scoped(h.handleGetDashboard))
	mux.HandleFunc("PUT /api/workspaces/{slug}/dashboard", scoped(h.handlePutDashboard))

	mux.HandleFunc("GET /api/workspaces/{slug}/risks", scoped(h.handleListRisks))
	mux.HandleFunc("POST /api/workspaces/{slug}/risks", scoped(h.handleCreateRisk))
	mux.HandleFunc("PATCH /api/workspaces/{slug}/risks/{id}", scoped(h.handleUpdateRisk))
	mux.HandleFunc("DELETE /api/workspaces/{slug}/risks/{id}", scoped(h.handleDeleteRisk))

	mux.HandleFunc("GET /api/workspaces/{slug}/tasks", scoped(h.handleListTasks))
	mux.HandleFunc("POST /api/workspaces/{slug}/tasks", scoped(h.handleCreateTask))
	mux.HandleFunc("PATCH /api/workspaces/{slug}/tasks/{id}", scoped(h.handleUpdateTask))
	mux.HandleFunc("DELETE /api/workspaces/{slug}/tasks/{id}", scoped(h.handleDeleteTask))

	mux.HandleFunc("GET /api/workspaces/{slug}/analytics/forecast", scoped(h.handleForecast))
	mux.HandleFunc("GET /api/workspaces/{slug}/analytics/critical-path", scoped(h.handleCriticalPath))
	mux.HandleFunc("GET /api/workspaces/{slug}/analytics/anomalies", scoped(h.handleAnomalies))
	mux.HandleFunc("POST /api/workspaces/{slug}/analytics/throughput", scoped(h.handlePutThroughput))
	mux.HandleFunc("GET /api/workspaces/{slug}/analytics/digest", scoped(h.handleGetDigest))
	mux.HandleFunc("POST /api/workspaces/{slug}/analytics/digest/refresh", scoped(h.handleRefreshDigest))

	mux.HandleFunc("GET /api/workspaces/{slug}/kb", scoped(h.handleListArticles))
	mux.HandleFunc("POST /api/workspaces/{slug}/kb", scoped(h.handleCreateArticle))
	mux.HandleFunc("GET /api/workspaces/{slug}/kb/search", scoped(h.handleSearchArticles))
	mux.HandleFunc("GET /api/workspaces/{slug}/kb/{id}", scoped(h.handleGetArticle))
	mux.HandleFunc("PATCH /api/workspaces/{slug}/kb/{id}", scoped(h.handleUpdateArticle))
	mux.HandleFunc("DELETE /api/workspaces/{slug}/kb/{id}", scoped(h.handleDeleteArticle))

	mux.HandleFunc("GET /api/workspaces/{slug}/activity", scoped(h.handleListActivity))
	mux.HandleFunc("GET /api/workspaces/{slug}/ws/activity", scoped(h.handleActivityStream))

	return mux
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()

	detail := errorDetail{Code: string(code), Message: "request failed"}
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		detail.Message = domainErr.Message
		detail.Metadata = domainErr.Metadata
	}
	if status >= http.StatusInternalServerError {
		log.Printf("api: internal error: %v", err)
		detail.Message = "internal error"
	}
	writeJSON(w, status, errorBody{Error: detail})
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, fmt.Sprintf("invalid request body: %v", err), err)
	}
	return nil
}

// record appends a journal event for the scoped workspace. Journal failures
// log and never fail the request.
func (h *Handler) record(r *http.Request, kind, subjectID, summary string) {
	if h.journal == nil {
		return
	}
	scope, ok := requestctx.WorkspaceFromContext(r.Context())
	if !ok {
		return
	}
	actorID := requestctx.UserIDFromContext(r.Context())
	if _, err := h.journal.Record(r.Context(), scope.ID, kind, actorID, subjectID, summary); err != nil {
		log.Printf("api: record %s event: %v", kind, err)
	}
}

// mapPlanningError converts a storage not-found sentinel into the resource's
// domain code; anything else passes through unchanged.
func mapPlanningError(err error, code apperrors.Code, message string) error {
	if errors.Is(err, pmstorage.ErrNotFound) || errors.Is(err, kbstorage.ErrNotFound) {
		return apperrors.Wrap(code, message, err)
	}
	return err
}

// pageParams decodes the pagination query params. page_token is an opaque
// cursor bound to the endpoint's filter: a token minted under a different
// filter is rejected instead of silently skipping or repeating rows.
func pageParams(r *http.Request, filter string) (int, string, error) {
	query := r.URL.Query()
	pageSize, _ := strconv.Atoi(query.Get("page_size"))

	token := strings.TrimSpace(query.Get("page_token"))
	if token == "" {
		return pageSize, "", nil
	}
	cursor, err := pagination.Decode(token)
	if err != nil {
		return 0, "", apperrors.Wrap(apperrors.CodeInvalidArgument, "page_token is invalid", err)
	}
	if err := pagination.ValidateFilterHash(cursor, filter); err != nil {
		return 0, "", apperrors.Wrap(apperrors.CodeInvalidArgument, "page_token does not match the request filters", err)
	}
	return pageSize, cursor.AfterID, nil
}

// nextPageToken wraps the store's keyset position in an opaque cursor.
func nextPageToken(afterID, filter string) string {
	if afterID == "" {
		return ""
	}
	token, err := pagination.Encode(pagination.NewCursor(afterID, filter))
	if err != nil {
		log.Printf("api: encode page token: %v", err)
		return ""
	}
	return token
}
