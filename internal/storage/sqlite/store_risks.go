package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hyvve/hyvve/internal/pm/risk"
	pmstorage "github.com/hyvve/hyvve/internal/pm/storage"
)

const riskColumns = `id, workspace_id, title, description, probability, impact, status, owner_user_id, created_at, updated_at`

// PutRisk persists a risk register entry.
func (s *Store) PutRisk(ctx context.Context, entry risk.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(entry.ID) == "" {
		return fmt.Errorf("risk id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO risks (
	id, workspace_id, title, description, probability, impact, status, owner_user_id, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	description = excluded.description,
	probability = excluded.probability,
	impact = excluded.impact,
	status = excluded.status,
	owner_user_id = excluded.owner_user_id,
	updated_at = excluded.updated_at
`,
		entry.ID,
		entry.WorkspaceID,
		entry.Title,
		entry.Description,
		entry.Probability,
		entry.Impact,
		risk.StatusLabel(entry.Status),
		entry.OwnerUserID,
		toMillis(entry.CreatedAt),
		toMillis(entry.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put risk: %w", err)
	}
	return nil
}

// GetRisk fetches one risk entry scoped to a workspace.
func (s *Store) GetRisk(ctx context.Context, workspaceID, riskID string) (risk.Entry, error) {
	if err := ctx.Err(); err != nil {
		return risk.Entry{}, err
	}
	if s == nil || s.sqlDB == nil {
		return risk.Entry{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+riskColumns+`
FROM risks
WHERE workspace_id = ? AND id = ?
`, strings.TrimSpace(workspaceID), strings.TrimSpace(riskID))
	return scanRisk(row.Scan)
}

// DeleteRisk removes one risk entry.
func (s *Store) DeleteRisk(ctx context.Context, workspaceID, riskID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM risks
WHERE workspace_id = ? AND id = ?
`, strings.TrimSpace(workspaceID), strings.TrimSpace(riskID))
	if err != nil {
		return fmt.Errorf("delete risk: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete risk rows affected: %w", err)
	}
	if affected == 0 {
		return pmstorage.ErrNotFound
	}
	return nil
}

// ListRisks returns a page of risk entries ordered by severity then ID.
func (s *Store) ListRisks(ctx context.Context, workspaceID string, pageSize int, pageToken string) (pmstorage.RiskPage, error) {
	if err := ctx.Err(); err != nil {
		return pmstorage.RiskPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return pmstorage.RiskPage{}, fmt.Errorf("storage is not configured")
	}
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return pmstorage.RiskPage{}, fmt.Errorf("workspace id is required")
	}
	pageSize = clampPageSize(pageSize)

	limit := pageSize + 1
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+riskColumns+`
FROM risks
WHERE workspace_id = ? AND id > ?
ORDER BY id
LIMIT ?
`, workspaceID, strings.TrimSpace(pageToken), limit)
	if err != nil {
		return pmstorage.RiskPage{}, fmt.Errorf("list risks: %w", err)
	}
	defer rows.Close()

	page := pmstorage.RiskPage{Risks: make([]risk.Entry, 0, pageSize)}
	for rows.Next() {
		entry, err := scanRisk(rows.Scan)
		if err != nil {
			return pmstorage.RiskPage{}, err
		}
		page.Risks = append(page.Risks, entry)
	}
	if err := rows.Err(); err != nil {
		return pmstorage.RiskPage{}, fmt.Errorf("iterate risk rows: %w", err)
	}

	if len(page.Risks) > pageSize {
		page.NextPageToken = page.Risks[pageSize-1].ID
		page.Risks = page.Risks[:pageSize]
	}
	return page, nil
}

// ListAllRisks lists every risk entry in a workspace.
func (s *Store) ListAllRisks(ctx context.Context, workspaceID string) ([]risk.Entry, error) {
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
SELECT `+riskColumns+`
FROM risks
WHERE workspace_id = ?
ORDER BY probability * impact DESC, id
`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list all risks: %w", err)
	}
	defer rows.Close()

	var entries []risk.Entry
	for rows.Next() {
		entry, err := scanRisk(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate risk rows: %w", err)
	}
	return entries, nil
}

func scanRisk(scan func(...any) error) (risk.Entry, error) {
	var entry risk.Entry
	var status string
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&entry.ID,
		&entry.WorkspaceID,
		&entry.Title,
		&entry.Description,
		&entry.Probability,
		&entry.Impact,
		&status,
		&entry.OwnerUserID,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return risk.Entry{}, pmstorage.ErrNotFound
		}
		return risk.Entry{}, fmt.Errorf("scan risk: %w", err)
	}
	entry.Status = risk.StatusFromLabel(status)
	entry.CreatedAt = fromMillis(createdAt)
	entry.UpdatedAt = fromMillis(updatedAt)
	return entry, nil
}
