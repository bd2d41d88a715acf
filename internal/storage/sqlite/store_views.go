package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hyvve/hyvve/internal/pm/dashboard"
	pmstorage "github.com/hyvve/hyvve/internal/pm/storage"
	"github.com/hyvve/hyvve/internal/pm/view"
)

// PutView persists a saved view.
func (s *Store) PutView(ctx context.Context, savedView view.SavedView) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(savedView.ID) == "" {
		return fmt.Errorf("view id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO saved_views (
	id, workspace_id, name, filter, order_by, visibility, created_by, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	filter = excluded.filter,
	order_by = excluded.order_by,
	visibility = excluded.visibility,
	updated_at = excluded.updated_at
`,
		savedView.ID,
		savedView.WorkspaceID,
		savedView.Name,
		savedView.Filter,
		savedView.OrderBy,
		view.VisibilityLabel(savedView.Visibility),
		savedView.CreatedBy,
		toMillis(savedView.CreatedAt),
		toMillis(savedView.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put view: %w", err)
	}
	return nil
}

// GetView fetches one saved view scoped to a workspace.
func (s *Store) GetView(ctx context.Context, workspaceID, viewID string) (view.SavedView, error) {
	if err := ctx.Err(); err != nil {
		return view.SavedView{}, err
	}
	if s == nil || s.sqlDB == nil {
		return view.SavedView{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, workspace_id, name, filter, order_by, visibility, created_by, created_at, updated_at
FROM saved_views
WHERE workspace_id = ? AND id = ?
`, strings.TrimSpace(workspaceID), strings.TrimSpace(viewID))
	return scanView(row.Scan)
}

// DeleteView removes one saved view.
func (s *Store) DeleteView(ctx context.Context, workspaceID, viewID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM saved_views
WHERE workspace_id = ? AND id = ?
`, strings.TrimSpace(workspaceID), strings.TrimSpace(viewID))
	if err != nil {
		return fmt.Errorf("delete view: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete view rows affected: %w", err)
	}
	if affected == 0 {
		return pmstorage.ErrNotFound
	}
	return nil
}

// ListViews lists the views visible to a user: shared views plus the user's
// private ones, ordered by name.
func (s *Store) ListViews(ctx context.Context, workspaceID, userID string) ([]view.SavedView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return nil, fmt.Errorf("workspace id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, workspace_id, name, filter, order_by, visibility, created_by, created_at, updated_at
FROM saved_views
WHERE workspace_id = ? AND (visibility = ? OR created_by = ?)
ORDER BY name, id
`, workspaceID, view.VisibilityLabel(view.VisibilityShared), strings.TrimSpace(userID))
	if err != nil {
		return nil, fmt.Errorf("list views: %w", err)
	}
	defer rows.Close()

	var views []view.SavedView
	for rows.Next() {
		savedView, err := scanView(rows.Scan)
		if err != nil {
			return nil, err
		}
		views = append(views, savedView)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate view rows: %w", err)
	}
	return views, nil
}

// PutDashboard persists one user's dashboard layout.
func (s *Store) PutDashboard(ctx context.Context, layout dashboard.Layout) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(layout.WorkspaceID) == "" || strings.TrimSpace(layout.UserID) == "" {
		return fmt.Errorf("workspace id and user id are required")
	}

	widgets, err := json.Marshal(layout.Widgets)
	if err != nil {
		return fmt.Errorf("marshal widgets: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO dashboards (
	workspace_id, user_id, widgets, updated_at
) VALUES (?, ?, ?, ?)
ON CONFLICT(workspace_id, user_id) DO UPDATE SET
	widgets = excluded.widgets,
	updated_at = excluded.updated_at
`,
		layout.WorkspaceID,
		layout.UserID,
		string(widgets),
		toMillis(layout.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put dashboard: %w", err)
	}
	return nil
}

// GetDashboard fetches the stored layout for a workspace and user.
func (s *Store) GetDashboard(ctx context.Context, workspaceID, userID string) (dashboard.Layout, error) {
	if err := ctx.Err(); err != nil {
		return dashboard.Layout{}, err
	}
	if s == nil || s.sqlDB == nil {
		return dashboard.Layout{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT workspace_id, user_id, widgets, updated_at
FROM dashboards
WHERE workspace_id = ? AND user_id = ?
`, strings.TrimSpace(workspaceID), strings.TrimSpace(userID))

	var layout dashboard.Layout
	var widgets string
	var updatedAt int64
	if err := row.Scan(&layout.WorkspaceID, &layout.UserID, &widgets, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dashboard.Layout{}, pmstorage.ErrNotFound
		}
		return dashboard.Layout{}, fmt.Errorf("scan dashboard: %w", err)
	}
	if err := json.Unmarshal([]byte(widgets), &layout.Widgets); err != nil {
		return dashboard.Layout{}, fmt.Errorf("unmarshal widgets: %w", err)
	}
	layout.UpdatedAt = fromMillis(updatedAt)
	return layout, nil
}

func scanView(scan func(...any) error) (view.SavedView, error) {
	var savedView view.SavedView
	var visibility string
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&savedView.ID,
		&savedView.WorkspaceID,
		&savedView.Name,
		&savedView.Filter,
		&savedView.OrderBy,
		&visibility,
		&savedView.CreatedBy,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return view.SavedView{}, pmstorage.ErrNotFound
		}
		return view.SavedView{}, fmt.Errorf("scan view: %w", err)
	}
	savedView.Visibility = view.VisibilityFromLabel(visibility)
	savedView.CreatedAt = fromMillis(createdAt)
	savedView.UpdatedAt = fromMillis(updatedAt)
	return savedView, nil
}
