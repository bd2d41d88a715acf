package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hyvve/hyvve/internal/platform/pagination"
	"github.com/hyvve/hyvve/internal/workspace/domain"
	"github.com/hyvve/hyvve/internal/workspace/storage"
)

const defaultPageSize = 50
const maxPageSize = 200

func clampPageSize(pageSize int) int {
	return pagination.ClampPageSize(pageSize, pagination.PageSizeConfig{
		Default: defaultPageSize,
		Max:     maxPageSize,
	})
}

// PutWorkspace persists a workspace record. A slug collision with another
// workspace reports storage.ErrAlreadyExists.
func (s *Store) PutWorkspace(ctx context.Context, workspace domain.Workspace) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(workspace.ID) == "" {
		return fmt.Errorf("workspace id is required")
	}
	if strings.TrimSpace(workspace.Slug) == "" {
		return fmt.Errorf("workspace slug is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO workspaces (
	id, slug, name, description, status, created_by, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	slug = excluded.slug,
	name = excluded.name,
	description = excluded.description,
	status = excluded.status,
	updated_at = excluded.updated_at
`,
		workspace.ID,
		workspace.Slug,
		workspace.Name,
		workspace.Description,
		domain.StatusLabel(workspace.Status),
		workspace.CreatedBy,
		toMillis(workspace.CreatedAt),
		toMillis(workspace.UpdatedAt),
	)
	if isUniqueConstraintError(err) {
		return storage.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("put workspace: %w", err)
	}
	return nil
}

// GetWorkspace fetches a workspace by ID.
func (s *Store) GetWorkspace(ctx context.Context, workspaceID string) (domain.Workspace, error) {
	if err := ctx.Err(); err != nil {
		return domain.Workspace{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Workspace{}, fmt.Errorf("storage is not configured")
	}
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return domain.Workspace{}, fmt.Errorf("workspace id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, slug, name, description, status, created_by, created_at, updated_at
FROM workspaces
WHERE id = ?
`, workspaceID)
	return scanWorkspace(row)
}

// GetWorkspaceBySlug fetches a workspace by its URL slug.
func (s *Store) GetWorkspaceBySlug(ctx context.Context, slug string) (domain.Workspace, error) {
	if err := ctx.Err(); err != nil {
		return domain.Workspace{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Workspace{}, fmt.Errorf("storage is not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Workspace{}, fmt.Errorf("workspace slug is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, slug, name, description, status, created_by, created_at, updated_at
FROM workspaces
WHERE slug = ?
`, slug)
	return scanWorkspace(row)
}

// ListWorkspacesForUser returns a page of workspaces the user belongs to,
// ordered by workspace ID.
func (s *Store) ListWorkspacesForUser(ctx context.Context, userID string, pageSize int, pageToken string) (storage.WorkspacePage, error) {
	if err := ctx.Err(); err != nil {
		return storage.WorkspacePage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.WorkspacePage{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.WorkspacePage{}, fmt.Errorf("user id is required")
	}
	pageSize = clampPageSize(pageSize)

	afterID := ""
	if strings.TrimSpace(pageToken) != "" {
		afterID = strings.TrimSpace(pageToken)
	}

	limit := pageSize + 1
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT w.id, w.slug, w.name, w.description, w.status, w.created_by, w.created_at, w.updated_at
FROM workspaces w
JOIN workspace_members m ON m.workspace_id = w.id
WHERE m.user_id = ? AND w.id > ?
ORDER BY w.id
LIMIT ?
`, userID, afterID, limit)
	if err != nil {
		return storage.WorkspacePage{}, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	page := storage.WorkspacePage{Workspaces: make([]domain.Workspace, 0, pageSize)}
	for rows.Next() {
		workspace, err := scanWorkspaceRows(rows)
		if err != nil {
			return storage.WorkspacePage{}, err
		}
		page.Workspaces = append(page.Workspaces, workspace)
	}
	if err := rows.Err(); err != nil {
		return storage.WorkspacePage{}, fmt.Errorf("iterate workspace rows: %w", err)
	}

	if len(page.Workspaces) > pageSize {
		page.NextPageToken = page.Workspaces[pageSize-1].ID
		page.Workspaces = page.Workspaces[:pageSize]
	}
	return page, nil
}

// ListActiveWorkspaceIDs returns the IDs of every non-archived workspace,
// ordered by ID. Maintenance jobs iterate this set.
func (s *Store) ListActiveWorkspaceIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id
FROM workspaces
WHERE status = ?
ORDER BY id
`, domain.StatusLabel(domain.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("list active workspace ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan workspace id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workspace id rows: %w", err)
	}
	return ids, nil
}

func scanWorkspace(row *sql.Row) (domain.Workspace, error) {
	var workspace domain.Workspace
	var status string
	var createdAt int64
	var updatedAt int64
	if err := row.Scan(
		&workspace.ID,
		&workspace.Slug,
		&workspace.Name,
		&workspace.Description,
		&status,
		&workspace.CreatedBy,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Workspace{}, storage.ErrNotFound
		}
		return domain.Workspace{}, fmt.Errorf("scan workspace: %w", err)
	}
	workspace.Status = domain.StatusFromLabel(status)
	workspace.CreatedAt = fromMillis(createdAt)
	workspace.UpdatedAt = fromMillis(updatedAt)
	return workspace, nil
}

func scanWorkspaceRows(rows *sql.Rows) (domain.Workspace, error) {
	var workspace domain.Workspace
	var status string
	var createdAt int64
	var updatedAt int64
	if err := rows.Scan(
		&workspace.ID,
		&workspace.Slug,
		&workspace.Name,
		&workspace.Description,
		&status,
		&workspace.CreatedBy,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Workspace{}, fmt.Errorf("scan workspace row: %w", err)
	}
	workspace.Status = domain.StatusFromLabel(status)
	workspace.CreatedAt = fromMillis(createdAt)
	workspace.UpdatedAt = fromMillis(updatedAt)
	return workspace, nil
}
