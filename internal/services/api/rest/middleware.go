package rest

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/hyvve/hyvve/internal/auth/token"
	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
	"github.com/hyvve/hyvve/internal/platform/requestctx"
	"github.com/hyvve/hyvve/internal/workspace/domain"
)

type memberContextKey struct{}

func withMember(ctx context.Context, member domain.Member) context.Context {
	return context.WithValue(ctx, memberContextKey{}, member)
}

func memberFromContext(ctx context.Context) (domain.Member, bool) {
	member, ok := ctx.Value(memberContextKey{}).(domain.Member)
	return member, ok
}

// withAuth verifies the bearer token and stores the caller identity in the
// request context.
func (h *Handler) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		scheme, value, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			writeError(w, apperrors.New(apperrors.CodeAuthInvalidToken, "bearer token is required"))
			return
		}

		claims, err := token.Verify(strings.TrimSpace(value), h.tokens)
		if err != nil {
			writeError(w, err)
			return
		}

		next(w, r.WithContext(requestctx.WithUserID(r.Context(), claims.UserID)))
	}
}

// withWorkspace resolves the {slug} path segment to a workspace the caller
// is a member of. Missing membership reads as workspace-not-found so slugs
// stay unenumerable.
func (h *Handler) withWorkspace(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requestctx.UserIDFromContext(r.Context())

		workspace, err := h.workspaces.GetWorkspace(r.Context(), r.PathValue("slug"))
		if err != nil {
			writeError(w, err)
			return
		}

		member, err := h.workspaces.Membership(r.Context(), workspace.ID, userID)
		if err != nil {
			writeError(w, apperrors.New(apperrors.CodeWorkspaceNotFound, "workspace not found"))
			return
		}

		ctx := requestctx.WithWorkspace(r.Context(), requestctx.Workspace{
			ID:   workspace.ID,
			Role: domain.RoleLabel(member.Role),
		})
		ctx = withMember(ctx, member)
		next(w, r.WithContext(ctx))
	}
}

// withRateLimit enforces the per-principal bucket and exposes the standard
// rate headers on every response, including rejections.
func (h *Handler) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.limiter == nil {
			next(w, r)
			return
		}

		key := clientKey(r)
		decision := h.limiter.Allow(key)

		header := w.Header()
		header.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		header.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		header.Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))

		if !decision.Allowed {
			header.Set("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
			writeError(w, apperrors.New(apperrors.CodeRateLimited, "rate limit exceeded"))
			return
		}
		next(w, r)
	}
}

// clientKey buckets authenticated traffic by bearer token and anonymous
// traffic by remote address. Tokens bucket before verification so invalid
// credentials cannot bypass the limiter.
func clientKey(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if _, value, found := strings.Cut(header, " "); found && strings.TrimSpace(value) != "" {
		return "token:" + strings.TrimSpace(value)
	}
	host := r.RemoteAddr
	if index := strings.LastIndex(host, ":"); index > 0 {
		host = host[:index]
	}
	return "addr:" + host
}
