package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hyvve/hyvve/internal/workspace/domain"
	"github.com/hyvve/hyvve/internal/workspace/storage"
)

// PutMember persists a membership record.
func (s *Store) PutMember(ctx context.Context, member domain.Member) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(member.WorkspaceID) == "" || strings.TrimSpace(member.UserID) == "" {
		return fmt.Errorf("workspace id and user id are required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO workspace_members (
	workspace_id, user_id, role, invited_by, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(workspace_id, user_id) DO UPDATE SET
	role = excluded.role,
	updated_at = excluded.updated_at
`,
		member.WorkspaceID,
		member.UserID,
		domain.RoleLabel(member.Role),
		member.InvitedBy,
		toMillis(member.CreatedAt),
		toMillis(member.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put member: %w", err)
	}
	return nil
}

// GetMember fetches one membership record.
func (s *Store) GetMember(ctx context.Context, workspaceID, userID string) (domain.Member, error) {
	if err := ctx.Err(); err != nil {
		return domain.Member{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Member{}, fmt.Errorf("storage is not configured")
	}
	workspaceID = strings.TrimSpace(workspaceID)
	userID = strings.TrimSpace(userID)
	if workspaceID == "" || userID == "" {
		return domain.Member{}, fmt.Errorf("workspace id and user id are required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT workspace_id, user_id, role, invited_by, created_at, updated_at
FROM workspace_members
WHERE workspace_id = ? AND user_id = ?
`, workspaceID, userID)

	var member domain.Member
	var role string
	var createdAt int64
	var updatedAt int64
	if err := row.Scan(
		&member.WorkspaceID,
		&member.UserID,
		&role,
		&member.InvitedBy,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Member{}, storage.ErrNotFound
		}
		return domain.Member{}, fmt.Errorf("scan member: %w", err)
	}
	member.Role = domain.RoleFromLabel(role)
	member.CreatedAt = fromMillis(createdAt)
	member.UpdatedAt = fromMillis(updatedAt)
	return member, nil
}

// DeleteMember removes one membership record.
func (s *Store) DeleteMember(ctx context.Context, workspaceID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM workspace_members
WHERE workspace_id = ? AND user_id = ?
`, strings.TrimSpace(workspaceID), strings.TrimSpace(userID))
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete member rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListMembers lists all members of a workspace ordered by join time.
func (s *Store) ListMembers(ctx context.Context, workspaceID string) ([]domain.Member, error) {
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
SELECT workspace_id, user_id, role, invited_by, created_at, updated_at
FROM workspace_members
WHERE workspace_id = ?
ORDER BY created_at, user_id
`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var member domain.Member
		var role string
		var createdAt int64
		var updatedAt int64
		if err := rows.Scan(
			&member.WorkspaceID,
			&member.UserID,
			&role,
			&member.InvitedBy,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan member row: %w", err)
		}
		member.Role = domain.RoleFromLabel(role)
		member.CreatedAt = fromMillis(createdAt)
		member.UpdatedAt = fromMillis(updatedAt)
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member rows: %w", err)
	}
	return members, nil
}

// CountMembers reports how many members a workspace has.
func (s *Store) CountMembers(ctx context.Context, workspaceID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	var count int
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(*) FROM workspace_members WHERE workspace_id = ?
`, strings.TrimSpace(workspaceID))
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}
