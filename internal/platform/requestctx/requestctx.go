// Package requestctx carries per-request identity through context.Context.
//
// Middleware resolves the caller and the target workspace once, at the API
// boundary, and stores the result here. Everything downstream reads the
// ambient values instead of re-parsing headers or re-checking membership.
package requestctx

import "context"

type userIDContextKey struct{}

type workspaceContextKey struct{}

// Workspace is the resolved tenant scope for a request.
type Workspace struct {
	// ID is the workspace identifier the request is scoped to.
	ID string
	// Role is the caller's membership role inside the workspace.
	Role string
}

// WithUserID stores an authenticated user identifier in context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// UserIDFromContext returns the user identifier stored in context.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(userIDContextKey{}).(string)
	return value
}

// WithWorkspace stores the resolved workspace scope in context.
func WithWorkspace(ctx context.Context, ws Workspace) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, workspaceContextKey{}, ws)
}

// WorkspaceFromContext returns the workspace scope stored in context.
func WorkspaceFromContext(ctx context.Context) (Workspace, bool) {
	if ctx == nil {
		return Workspace{}, false
	}
	ws, ok := ctx.Value(workspaceContextKey{}).(Workspace)
	if !ok || ws.ID == "" {
		return Workspace{}, false
	}
	return ws, true
}
