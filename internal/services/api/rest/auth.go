package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/hyvve/hyvve/internal/auth/password"
	"github.com/hyvve/hyvve/internal/auth/token"
	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
	"github.com/hyvve/hyvve/internal/platform/requestctx"
)

type mintTokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type mintTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	CreatedAt   string `json:"created_at"`
}

func (h *Handler) handleMintToken(w http.ResponseWriter, r *http.Request) {
	var req mintTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil || !password.Compare(user.PasswordHash, req.Password) {
		writeError(w, apperrors.New(apperrors.CodeAuthInvalidCredentials, "email or password is incorrect"))
		return
	}

	accessToken, err := token.Mint(user.ID, h.tokens)
	if err != nil {
		writeError(w, err)
		return
	}

	claims, err := token.Verify(accessToken, h.tokens)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mintTokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresAt:   claims.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	userID := requestctx.UserIDFromContext(r.Context())
	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeAuthInvalidToken, "user not found", err))
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt.UTC().Format(time.RFC3339),
	})
}

type invitationTokenRequest struct {
	Token string `json:"token"`
}

func (h *Handler) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req invitationTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "invitation token is required"))
		return
	}

	member, err := h.workspaces.AcceptInvitation(r.Context(), req.Token, requestctx.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memberToResponse(member))
}

func (h *Handler) handleDeclineInvitation(w http.ResponseWriter, r *http.Request) {
	var req invitationTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "invitation token is required"))
		return
	}

	if _, err := h.workspaces.DeclineInvitation(r.Context(), req.Token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
